package types

type SendMessageOutput struct {
	Status    string  `json:"status"`
	MessageID string  `json:"messageId"`
	Timestamp float64 `json:"timestamp"` // unix seconds, assigned by the server
}

type MessageOutput struct {
	MessageID       string  `json:"messageId"`
	Ciphertext      string  `json:"ciphertext"`
	Nonce           string  `json:"nonce"`
	SenderPublicKey string  `json:"senderPublicKey"`
	Timestamp       float64 `json:"timestamp"`
}

type PollMessagesOutput struct {
	Messages []MessageOutput `json:"messages"`
	Count    int             `json:"count"`
}

type SecurityStatsOutput struct {
	BlockedAddresses     int   `json:"blockedAddresses"`
	TrackedFailures      int   `json:"trackedFailures"`
	SuspiciousRejected   int64 `json:"suspiciousRejected"`
	RateLimitedRejected  int64 `json:"rateLimitedRejected"`
	MaxFailedAttempts    int   `json:"maxFailedAttempts"`
	BlockDurationSeconds int   `json:"blockDurationSeconds"`
}

type StatusOutput struct {
	Status             string              `json:"status"`
	Version            string              `json:"version"`
	UptimeSeconds      float64             `json:"uptimeSeconds"`
	TotalMessages      int                 `json:"totalMessages"`
	ActiveTokens       int                 `json:"activeTokens"`
	AutoCleanupEnabled bool                `json:"autoCleanupEnabled"`
	DefaultTTLMinutes  int                 `json:"defaultTtlMinutes"`
	SecurityStats      SecurityStatsOutput `json:"securityStats"`
}
