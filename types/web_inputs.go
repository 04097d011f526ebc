package types

// for send
type SendMessageInput struct {
	Token           string `json:"token" validate:"required,len=64,hexadecimal"`
	Ciphertext      string `json:"ciphertext" validate:"required,min=32,hexadecimal"`
	Nonce           string `json:"nonce" validate:"required,len=48,hexadecimal"`
	SenderPublicKey string `json:"senderPublicKey" validate:"required,len=64,hexadecimal"`
	TTLSeconds      *int64 `json:"ttlSeconds,omitempty" validate:"omitempty,gt=0"` // nil means the relay default
}

// for poll and consume
type PollMessagesInput struct {
	Token string   `json:"token" validate:"required,len=64,hexadecimal"`
	Since *float64 `json:"since,omitempty" validate:"omitempty,gte=0"` // unix seconds; only envelopes received strictly after this
}
