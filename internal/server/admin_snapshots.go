package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	snapshotdomain "github.com/smallsites/sitebill/internal/snapshot/domain"
	"github.com/smallsites/sitebill/pkg/db/pagination"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuthRequired guards read-only admin endpoints with the same secret
// the override service uses. An empty configured secret rejects everything.
func (s *Server) AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := s.cfg.AdminSecret
		token := c.GetHeader(adminTokenHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) AdminListSnapshots(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if page.PageSize <= 0 || page.PageSize > 200 {
		page.PageSize = 50
	}

	rows, err := s.snapshotRepo.List(c.Request.Context(), s.db, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, page.PageSize, func(row *snapshotdomain.AccountSnapshot) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: row.SubscriptionRef})
		if err != nil {
			return ""
		}
		return token
	})
	if len(rows) > page.PageSize {
		rows = rows[:page.PageSize]
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"snapshots": rows,
		"page_info": pageInfo,
	})
}
