package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ideapool/go-ideas-backend/internal/discussion"
	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/repo"
)

func postJSON(t *testing.T, r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestPostComment_ThreadAndDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, h := newEnv(t)
	idea := seedHandlerIdea(t, db, &domain.Idea{OwnerID: "owner"})

	r := gin.New()
	r.GET("/ideas/:id/comments", h.ListComments)
	r.POST("/ideas/:id/comments", h.PostComment)
	r.DELETE("/comments/:id", h.DeleteComment)

	// anonymous → 401
	if w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", "", `{"content":"hi"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous -> %d", w.Code)
	}
	// blank content → 400
	if w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", "alice", `{"content":"   "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank content -> %d", w.Code)
	}

	// top-level comment → 201
	w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", "alice", `{"content":"add offline mode"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("post -> %d body=%s", w.Code, w.Body.String())
	}
	var top domain.Improvement
	if err := json.Unmarshal(w.Body.Bytes(), &top); err != nil {
		t.Fatalf("json: %v", err)
	}

	// reply under it → 201
	reply := fmt.Sprintf(`{"content":"agreed","parent_id":%q}`, top.ID)
	if w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", "bob", reply); w.Code != http.StatusCreated {
		t.Fatalf("reply -> %d body=%s", w.Code, w.Body.String())
	}

	// unknown parent → 409
	if w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", "bob", `{"content":"x","parent_id":"nope"}`); w.Code != http.StatusConflict {
		t.Fatalf("unknown parent -> %d", w.Code)
	}

	// thread: one root with one nested reply
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ideas/"+idea.ID+"/comments", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var listed struct {
		Comments []*discussion.Thread `json:"comments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(listed.Comments) != 1 || len(listed.Comments[0].Replies) != 1 {
		t.Fatalf("thread shape: %s", w.Body.String())
	}

	// delete: stranger 409, author 204
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/comments/"+top.ID, nil)
	req.Header.Set("X-User-ID", "mallory")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("stranger delete -> %d", w.Code)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/comments/"+top.ID, nil)
	req.Header.Set("X-User-ID", "alice")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("author delete -> %d body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteComment_CascadesToReplies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, h := newEnv(t)
	idea := seedHandlerIdea(t, db, &domain.Idea{OwnerID: "owner"})

	r := gin.New()
	r.GET("/ideas/:id/comments", h.ListComments)
	r.POST("/ideas/:id/comments", h.PostComment)
	r.DELETE("/comments/:id", h.DeleteComment)

	post := func(user, body string) domain.Improvement {
		t.Helper()
		w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", user, body)
		if w.Code != http.StatusCreated {
			t.Fatalf("post -> %d body=%s", w.Code, w.Body.String())
		}
		var imp domain.Improvement
		if err := json.Unmarshal(w.Body.Bytes(), &imp); err != nil {
			t.Fatalf("json: %v", err)
		}
		return imp
	}

	// root -> reply -> nested reply
	root := post("alice", `{"content":"split the API"}`)
	reply := post("bob", fmt.Sprintf(`{"content":"which part?","parent_id":%q}`, root.ID))
	post("carol", fmt.Sprintf(`{"content":"the gateway","parent_id":%q}`, reply.ID))

	if rows, err := repo.ListImprovements(context.Background(), db, idea.ID); err != nil || len(rows) != 3 {
		t.Fatalf("seed rows = %d, %v", len(rows), err)
	}

	// Deleting the root takes the whole subtree with it, including the
	// reply nested two levels down.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/comments/"+root.ID, nil)
	req.Header.Set("X-User-ID", "alice")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d body=%s", w.Code, w.Body.String())
	}

	if rows, err := repo.ListImprovements(context.Background(), db, idea.ID); err != nil || len(rows) != 0 {
		t.Fatalf("rows after cascade = %d, %v", len(rows), err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ideas/"+idea.ID+"/comments", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var listed struct {
		Comments []*discussion.Thread `json:"comments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(listed.Comments) != 0 {
		t.Fatalf("thread not empty after delete: %s", w.Body.String())
	}
}

func TestListComments_ETag304(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, h := newEnv(t)
	idea := seedHandlerIdea(t, db, &domain.Idea{OwnerID: "owner"})

	r := gin.New()
	r.GET("/ideas/:id/comments", h.ListComments)
	r.POST("/ideas/:id/comments", h.PostComment)

	if w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", "alice", `{"content":"first"}`); w.Code != http.StatusCreated {
		t.Fatalf("seed comment -> %d", w.Code)
	}

	count, maxTS, err := repo.ImprovementsStats(context.Background(), db, idea.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	etag := fmt.Sprintf(`W/"comments:%s:%d:%d"`, idea.ID, count, ts)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ideas/"+idea.ID+"/comments", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("matching etag -> %d", w.Code)
	}

	// stale tag after a new comment → 200
	if w := postJSON(t, r, http.MethodPost, "/ideas/"+idea.ID+"/comments", "bob", `{"content":"second"}`); w.Code != http.StatusCreated {
		t.Fatalf("second comment -> %d", w.Code)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ideas/"+idea.ID+"/comments", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stale etag -> %d", w.Code)
	}
}
