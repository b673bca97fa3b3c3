package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallsites/sitebill/internal/reconcile"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
)

type signupRequest struct {
	Email  string `json:"email"`
	SiteID string `json:"siteId"`
	Plan   string `json:"plan"`
}

func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	registration, err := s.registrySvc.Signup(c.Request.Context(), registrydomain.SignupRequest{
		Email:  req.Email,
		SiteID: req.SiteID,
		Plan:   req.Plan,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"siteId": registration.SiteID,
		"plan":   registration.Plan,
	})
}

type linkSubscriptionRequest struct {
	SiteID          string `json:"siteId"`
	SubscriptionRef string `json:"subscriptionRef"`
}

// LinkSubscription attaches a payment subscription to a registration once.
// Re-linking an already linked site is a conflict, not an update.
func (s *Server) LinkSubscription(c *gin.Context) {
	var req linkSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	registration, err := s.registrySvc.LinkSubscription(c.Request.Context(), registrydomain.LinkSubscriptionRequest{
		SiteID:          req.SiteID,
		SubscriptionRef: req.SubscriptionRef,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.dispatcher.Enqueue(reconcile.Task{SubscriptionRef: registration.SubscriptionRef})

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"siteId":          registration.SiteID,
		"subscriptionRef": registration.SubscriptionRef,
	})
}
