package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/notify"
)

func TestPutProfile_ThenGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, h := newEnv(t)

	r := gin.New()
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.PutProfile)

	// missing display_name → 400
	if w := postJSON(t, r, http.MethodPut, "/profile", "ana", `{"payment_key":"k"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name -> %d", w.Code)
	}

	w := postJSON(t, r, http.MethodPut, "/profile", "ana", `{"display_name":"Ana Souza","payment_key":"key-1","city":"Recife"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put -> %d body=%s", w.Code, w.Body.String())
	}

	// unknown profile → 404
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("X-User-ID", "nobody")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown profile -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("X-User-ID", "ana")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d", w.Code)
	}
	var p domain.Profile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil || p.DisplayName != "Ana Souza" || p.City != "Recife" {
		t.Fatalf("profile body = %s", w.Body.String())
	}
}

func TestNotifications_ListAndMarkRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, h := newEnv(t)

	sink := notify.NewDBSink(db)
	sink.Enqueue(context.Background(), "owner", "fan", notify.TypeNewDonation, map[string]string{"amount": "5.00"})
	sink.Enqueue(context.Background(), "owner", "fan", notify.TypeNewComment, map[string]string{"idea_id": "i1"})

	r := gin.New()
	r.GET("/notifications", h.ListNotifications)
	r.POST("/notifications/:id/read", h.MarkNotificationRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("X-User-ID", "owner")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var listed struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil || len(listed.Notifications) != 2 {
		t.Fatalf("notifications body = %s", w.Body.String())
	}

	target := listed.Notifications[0].ID

	// someone else's notification → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/notifications/"+target+"/read", nil)
	req.Header.Set("X-User-ID", "fan")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign mark-read -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/notifications/"+target+"/read", nil)
	req.Header.Set("X-User-ID", "owner")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("mark-read -> %d body=%s", w.Code, w.Body.String())
	}
}
