package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallsites/sitebill/internal/siteid"
)

// AccessDecision is the yes/no the site runtime polls before serving paid
// features.
func (s *Server) AccessDecision(c *gin.Context) {
	raw := c.Param("siteId")

	enabled, err := s.accessGate.FeaturesEnabled(c.Request.Context(), raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"siteId":  siteid.Normalize(raw),
		"enabled": enabled,
	})
}
