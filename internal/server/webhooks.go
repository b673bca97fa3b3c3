package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallsites/sitebill/internal/ledger/domain"
	"github.com/smallsites/sitebill/internal/reconcile"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type webhookPayload struct {
	Event             string  `json:"event"`
	Action            string  `json:"action"`
	ProviderPaymentID string  `json:"providerPaymentId"`
	SubscriptionRef   string  `json:"subscriptionRef"`
	Status            string  `json:"status"`
	PayerEmail        string  `json:"payer_email"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
}

// HandlePaymentWebhook ingests one provider delivery. The write is append
// only; anything with a non-empty event name lands in the ledger verbatim,
// and everything else is acknowledged so the provider stops retrying.
// Malformed JSON degrades to an empty payload rather than a parse error.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	if s.webhookLimiter.Enabled() {
		allowed, err := s.webhookLimiter.AllowProvider(c.Request.Context(), provider)
		if err != nil {
			s.log.Warn("webhook rate limit check failed", zap.Error(err))
		} else if !allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "payment_webhook")
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate_limited"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Providers retry aggressively on non-2xx; a garbled body is
		// treated as an empty delivery instead of rejected.
		payload = webhookPayload{}
	}

	if strings.TrimSpace(payload.Event) == "" {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	now := s.clock.Now()
	event := ledgerdomain.PaymentEvent{
		ID:                s.genID.Generate(),
		Provider:          provider,
		Event:             payload.Event,
		Action:            payload.Action,
		ProviderPaymentID: payload.ProviderPaymentID,
		SubscriptionRef:   strings.TrimSpace(payload.SubscriptionRef),
		PayerEmail:        strings.ToLower(strings.TrimSpace(payload.PayerEmail)),
		RawStatus:         payload.Status,
		Amount:            payload.Amount,
		Currency:          payload.Currency,
		OccurredAt:        now,
		RawPayload:        datatypes.JSON(body),
		CreatedAt:         now,
	}

	if err := s.ledgerRepo.Append(c.Request.Context(), s.db, &event); err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordPaymentEvent(c.Request.Context(), provider, payload.Event)
	s.dispatcher.Enqueue(reconcile.Task{SubscriptionRef: event.SubscriptionRef})

	c.JSON(http.StatusOK, gin.H{"ok": true, "wrote": "ledger"})
}
