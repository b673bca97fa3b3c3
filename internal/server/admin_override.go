package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallsites/sitebill/internal/override"
)

type adminOverrideRequest struct {
	SiteID      string `json:"siteId"`
	ManualBlock bool   `json:"manualBlock"`
	AdminToken  string `json:"adminToken"`
}

// AdminOverride toggles a site's manual block. Failures come back as
// `{ok:false, error}` with a stable error code so the admin tooling can
// branch on them.
func (s *Server) AdminOverride(c *gin.Context) {
	var req adminOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_site"})
		return
	}

	result, err := s.overrideSvc.SetManualBlock(c.Request.Context(), override.Request{
		SiteID:     req.SiteID,
		Blocked:    req.ManualBlock,
		AdminToken: req.AdminToken,
	})
	if err != nil {
		status, code := overrideErrorStatus(err)
		c.JSON(status, gin.H{"ok": false, "error": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"siteId":      result.SiteID,
		"manualBlock": result.ManualBlock,
	})
}

func overrideErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, override.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, override.ErrMissingSite):
		return http.StatusBadRequest, "missing_site"
	case errors.Is(err, override.ErrNotFound):
		return http.StatusNotFound, "site_not_found"
	case errors.Is(err, override.ErrMissingStore):
		return http.StatusInternalServerError, "missing_store"
	case errors.Is(err, override.ErrNoRows):
		return http.StatusInternalServerError, "no_rows"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
