// Profile and notification HTTP handlers.
//
// This file exposes the REST endpoints for the caller's own resources:
//   - GET  /profile                  (marketplace settings)
//   - PUT  /profile                  (create or replace settings)
//   - GET  /notifications            (event queue, newest first)
//   - POST /notifications/{id}/read  (acknowledge one notification)
//
// The payment key saved here is what the payload builder embeds when someone
// pays for one of the caller's ideas.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UpsertProfileRequest is the JSON payload for saving profile settings.
type UpsertProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=120"`
	PaymentKey  string `json:"payment_key"`
	City        string `json:"city"`
}

// GetProfile returns the caller's profile.
func (h *Handlers) GetProfile(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	p, err := h.profileSvc.Get(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// PutProfile creates or replaces the caller's profile.
func (h *Handlers) PutProfile(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "display_name required (1-120 chars)")
		return
	}
	p, err := h.profileSvc.Upsert(c.Request.Context(), uid, req.DisplayName, req.PaymentKey, req.City)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// ListNotifications returns the caller's notifications, newest first.
func (h *Handlers) ListNotifications(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	list, err := h.notifSvc.List(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"notifications": list})
}

// MarkNotificationRead acknowledges one of the caller's notifications.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	if err := h.notifSvc.MarkRead(c.Request.Context(), uid, c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
