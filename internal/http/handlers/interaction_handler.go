// Interaction HTTP handlers.
//
// This file exposes the REST endpoints for the per-user interactions on an
// idea:
//   - POST /ideas/{id}/vote        (toggle)
//   - POST /ideas/{id}/favorite    (toggle)
//   - POST /ideas/{id}/interest    (one-way join)
//   - GET  /ideas/{id}/interested  (list of interested user ids)
//
// Votes and favorites toggle: the same call adds on the first press and
// removes on the second. Interest only joins; repeating it is a no-op. All
// three respond with the resulting state so clients can render without a
// follow-up read.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ToggleVote flips the caller's vote on an idea.
func (h *Handlers) ToggleVote(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	voted, err := h.interSvc.ToggleVote(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"voted": voted})
}

// ToggleFavorite flips the caller's private bookmark on an idea.
func (h *Handlers) ToggleFavorite(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	favorited, err := h.interSvc.ToggleFavorite(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"favorited": favorited})
}

// ExpressInterest joins the caller to the idea's interested set. The joined
// flag is false when the caller was already a member.
func (h *Handlers) ExpressInterest(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	joined, err := h.interSvc.ExpressInterest(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"joined": joined})
}

// ListInterested returns the user ids interested in collaborating on an idea.
func (h *Handlers) ListInterested(c *gin.Context) {
	users, err := h.interSvc.Interested(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"users": users})
}
