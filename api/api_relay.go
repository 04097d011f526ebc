package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/metrics"
	"github.com/blindrelay/go-blindrelay-server/services"
	"github.com/blindrelay/go-blindrelay-server/types"
)

// RelayApi exposes the three mailbox operations. Handlers see only opaque
// hex fields; nothing here can decrypt or correlate a message with a
// recipient identity.
type RelayApi struct {
	relayService *services.RelayService
	validate     *validator.Validate
}

func NewRelayApi(relayService *services.RelayService) *RelayApi {
	return &RelayApi{
		relayService: relayService,
		validate:     validator.New(),
	}
}

// Send an encrypted envelope to a routing token
// @Summary Send an encrypted envelope
// @Description Stores the ciphertext under the routing token; the server assigns the message id and timestamp
// @Tags Relay
// @Accept json
// @Produce json
// @Param envelope body types.SendMessageInput true "encrypted envelope"
// @Success 200 {object} types.SendMessageOutput
// @Failure 400 {object} api.ApiError "bad request"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Failure 507 {object} api.ApiError "storage limit reached"
// @Router /api/v1/send [post]
func (ra *RelayApi) SendMessage(c *gin.Context) {
	start := time.Now()

	var input types.SendMessageInput
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid format")
		return
	}

	if err := ra.validate.Struct(input); err != nil {
		var vErr validator.ValidationErrors
		if errors.As(err, &vErr) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(vErr))
		} else {
			ApiErrorf(c, http.StatusBadRequest, "invalid format")
		}
		return
	}

	envelope, sErr := ra.relayService.SubmitEnvelope(&input)
	if sErr != nil {
		if errors.Is(sErr, types.ErrStorageExhausted) {
			ApiErrorf(c, http.StatusInsufficientStorage, "storage limit reached")
			return
		}
		global.Logger.Log("error", sErr.Error(), "msg", "failed to store envelope")
		ApiErrorf(c, http.StatusInternalServerError, "failed to store message")
		return
	}

	metrics.SendProcessingLatency.Observe(float64(time.Since(start).Milliseconds()))
	c.JSON(http.StatusOK, types.SendMessageOutput{
		Status:    "success",
		MessageID: envelope.MessageID,
		Timestamp: unixSeconds(envelope.ReceivedAt),
	})
}

// Poll envelopes for a routing token
// @Summary Poll envelopes for a routing token
// @Description Returns pending envelopes without removing them
// @Tags Relay
// @Accept json
// @Produce json
// @Param query body types.PollMessagesInput true "token and optional since timestamp"
// @Success 200 {object} types.PollMessagesOutput
// @Failure 400 {object} api.ApiError "bad request"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Router /api/v1/poll [post]
func (ra *RelayApi) PollMessages(c *gin.Context) {
	ra.fetchMessages(c, false)
}

// Consume envelopes for a routing token
// @Summary Consume envelopes for a routing token
// @Description Returns pending envelopes and removes them in the same step
// @Tags Relay
// @Accept json
// @Produce json
// @Param query body types.PollMessagesInput true "token and optional since timestamp"
// @Success 200 {object} types.PollMessagesOutput
// @Failure 400 {object} api.ApiError "bad request"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Router /api/v1/consume [post]
func (ra *RelayApi) ConsumeMessages(c *gin.Context) {
	ra.fetchMessages(c, true)
}

func (ra *RelayApi) fetchMessages(c *gin.Context, destructive bool) {
	var input types.PollMessagesInput
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid format")
		return
	}

	if err := ra.validate.Struct(input); err != nil {
		var vErr validator.ValidationErrors
		if errors.As(err, &vErr) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(vErr))
		} else {
			ApiErrorf(c, http.StatusBadRequest, "invalid format")
		}
		return
	}

	envelopes := ra.relayService.FetchEnvelopes(&input, destructive)

	messages := make([]types.MessageOutput, 0, len(envelopes))
	for _, envelope := range envelopes {
		messages = append(messages, types.MessageOutput{
			MessageID:       envelope.MessageID,
			Ciphertext:      envelope.Ciphertext,
			Nonce:           envelope.Nonce,
			SenderPublicKey: envelope.SenderPublicKey,
			Timestamp:       unixSeconds(envelope.ReceivedAt),
		})
	}

	c.JSON(http.StatusOK, types.PollMessagesOutput{
		Messages: messages,
		Count:    len(messages),
	})
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
