// Comment HTTP handlers.
//
// This file exposes the REST endpoints for threaded discussion on ideas:
//   - GET    /ideas/{id}/comments  (full thread forest, ETag support)
//   - POST   /ideas/{id}/comments  (add a comment or reply)
//   - DELETE /comments/{id}        (author or admin)
//
// The thread is returned as a forest: top-level comments with their replies
// nested recursively, siblings in chronological order.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/repo"
	"github.com/ideapool/go-ideas-backend/internal/services"
)

// AddCommentRequest is the JSON payload for creating a comment. ParentID
// nests the comment under an existing one on the same idea.
type AddCommentRequest struct {
	Content  string  `json:"content" binding:"required,min=1,max=4000"`
	ParentID *string `json:"parent_id,omitempty"`
}

// ListComments returns the idea's discussion as a nested forest. Supports
// weak ETag via If-None-Match and may return 304.
func (h *Handlers) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	ideaID := c.Param("id")

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.commentSvc.(*services.CommentService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ImprovementsStats(ctx, db, ideaID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"comments:%s:%d:%d"`, ideaID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	forest, err := h.commentSvc.Thread(ctx, ideaID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"comments": forest})
}

// PostComment adds a comment (or reply, when parent_id is set) to an idea.
func (h *Handlers) PostComment(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required (1-4000 chars)")
		return
	}

	comment, err := h.commentSvc.Add(c.Request.Context(), c.Param("id"), uid, req.Content, req.ParentID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, comment)
}

// DeleteComment removes a comment authored by the caller (or any comment when
// the caller is an admin). Replies cascade with it.
func (h *Handlers) DeleteComment(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	if err := h.commentSvc.Delete(c.Request.Context(), uid, isAdmin(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
