package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

func doInteraction(t *testing.T, r *gin.Engine, method, path, user string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	r.ServeHTTP(w, req)
	return w
}

func flagOf(t *testing.T, w *httptest.ResponseRecorder, key string) bool {
	t.Helper()
	var body map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	v, present := body[key]
	if !present {
		t.Fatalf("key %q missing in %s", key, w.Body.String())
	}
	return v
}

func TestToggleVote_AndFavorite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, h := newEnv(t)
	idea := seedHandlerIdea(t, db, &domain.Idea{OwnerID: "owner"})

	r := gin.New()
	r.POST("/ideas/:id/vote", h.ToggleVote)
	r.POST("/ideas/:id/favorite", h.ToggleFavorite)

	if w := doInteraction(t, r, http.MethodPost, "/ideas/"+idea.ID+"/vote", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous vote -> %d", w.Code)
	}

	w := doInteraction(t, r, http.MethodPost, "/ideas/"+idea.ID+"/vote", "alice")
	if w.Code != http.StatusOK || !flagOf(t, w, "voted") {
		t.Fatalf("first vote -> %d %s", w.Code, w.Body.String())
	}
	w = doInteraction(t, r, http.MethodPost, "/ideas/"+idea.ID+"/vote", "alice")
	if w.Code != http.StatusOK || flagOf(t, w, "voted") {
		t.Fatalf("second vote must untoggle: %s", w.Body.String())
	}

	w = doInteraction(t, r, http.MethodPost, "/ideas/"+idea.ID+"/favorite", "alice")
	if w.Code != http.StatusOK || !flagOf(t, w, "favorited") {
		t.Fatalf("favorite -> %d %s", w.Code, w.Body.String())
	}

	// unknown idea → 404
	if w := doInteraction(t, r, http.MethodPost, "/ideas/missing/vote", "alice"); w.Code != http.StatusNotFound {
		t.Fatalf("vote on missing idea -> %d", w.Code)
	}
}

func TestExpressInterest_JoinOnceThenList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, h := newEnv(t)
	idea := seedHandlerIdea(t, db, &domain.Idea{OwnerID: "owner"})

	r := gin.New()
	r.POST("/ideas/:id/interest", h.ExpressInterest)
	r.GET("/ideas/:id/interested", h.ListInterested)

	w := doInteraction(t, r, http.MethodPost, "/ideas/"+idea.ID+"/interest", "bob")
	if w.Code != http.StatusOK || !flagOf(t, w, "joined") {
		t.Fatalf("join -> %d %s", w.Code, w.Body.String())
	}
	// repeat join is a no-op
	w = doInteraction(t, r, http.MethodPost, "/ideas/"+idea.ID+"/interest", "bob")
	if w.Code != http.StatusOK || flagOf(t, w, "joined") {
		t.Fatalf("repeat join -> %d %s", w.Code, w.Body.String())
	}

	w = doInteraction(t, r, http.MethodGet, "/ideas/"+idea.ID+"/interested", "")
	if w.Code != http.StatusOK {
		t.Fatalf("interested -> %d", w.Code)
	}
	var listed struct {
		Users []string `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil || len(listed.Users) != 1 || listed.Users[0] != "bob" {
		t.Fatalf("interested body = %s", w.Body.String())
	}
}
