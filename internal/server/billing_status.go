package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type lastPaymentView struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

type billingStatusResponse struct {
	OK          bool             `json:"ok"`
	Plan        string           `json:"plan"`
	Status      string           `json:"status"`
	Provider    string           `json:"provider"`
	ManualBlock bool             `json:"manual_block"`
	NextRenewal *time.Time       `json:"next_renewal"`
	LastPayment *lastPaymentView `json:"last_payment"`
	Amount      float64          `json:"amount"`
	Currency    string           `json:"currency"`
}

// BillingStatus resolves one account's billing state. Unknown accounts get a
// defaulted pending answer, never an error.
func (s *Server) BillingStatus(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_email"})
		return
	}

	res, err := s.resolverSvc.Resolve(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := billingStatusResponse{
		OK:          true,
		Plan:        res.Plan,
		Status:      res.Status,
		Provider:    res.Provider,
		ManualBlock: res.ManualBlock,
		NextRenewal: res.NextRenewalDate,
		Amount:      res.Amount,
		Currency:    res.Currency,
	}
	if res.LastPaymentDate != nil {
		resp.LastPayment = &lastPaymentView{
			Date:   *res.LastPaymentDate,
			Amount: res.LastPaymentAmount,
		}
	}

	c.JSON(http.StatusOK, resp)
}
