// Idea HTTP handlers.
//
// This file exposes REST endpoints for idea resources:
//   - POST   /ideas            (create)
//   - GET    /ideas            (list, paginated, filterable, ETag support)
//   - GET    /ideas/search     (free-text ranking)
//   - GET    /ideas/{id}       (hydrated, gated detail)
//   - PUT    /ideas/{id}       (update)
//   - DELETE /ideas/{id}       (soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/discussion"
	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/repo"
	"github.com/ideapool/go-ideas-backend/internal/services"
	"github.com/ideapool/go-ideas-backend/internal/sysutil"
	"github.com/ideapool/go-ideas-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// IdeaService defines idea lifecycle and read operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type IdeaService interface {
	// Create validates and persists a new idea owned by ownerID.
	Create(ctx context.Context, ownerID string, in services.IdeaInput) (*domain.Idea, error)
	// ListPage returns a hydrated, gated page of ideas and the total count.
	ListPage(ctx context.Context, viewerID string, filter repo.IdeaFilter, page, pageSize int) ([]services.IdeaDetail, int64, error)
	// Get returns the hydrated, gated detail view of one idea.
	Get(ctx context.Context, viewerID, ideaID string) (*services.IdeaDetail, error)
	// Update applies a full update to an idea owned by actorID.
	Update(ctx context.Context, actorID string, isAdmin bool, ideaID string, in services.IdeaInput) error
	// Delete soft-deletes an idea owned by actorID.
	Delete(ctx context.Context, actorID string, isAdmin bool, ideaID string) error
	// Search ranks ideas against a free-text query.
	Search(ctx context.Context, viewerID, query string) ([]services.IdeaDetail, error)
}

// InteractionService defines the vote/favorite/interest operations.
type InteractionService interface {
	ToggleVote(ctx context.Context, ideaID, userID string) (bool, error)
	ToggleFavorite(ctx context.Context, ideaID, userID string) (bool, error)
	ExpressInterest(ctx context.Context, ideaID, userID string) (bool, error)
	Interested(ctx context.Context, ideaID string) ([]string, error)
}

// CommentService defines threaded discussion operations.
type CommentService interface {
	Add(ctx context.Context, ideaID, authorID, content string, parentID *string) (*domain.Improvement, error)
	Thread(ctx context.Context, ideaID string) ([]*discussion.Thread, error)
	Delete(ctx context.Context, actorID string, isAdmin bool, commentID string) error
}

// TransactionService defines payment payload and transaction lifecycle
// operations.
type TransactionService interface {
	BuildPaymentCode(ctx context.Context, ideaID string, txType domain.TransactionType, amount *decimal.Decimal) (*services.PaymentCode, error)
	Submit(ctx context.Context, ideaID, payerID string, txType domain.TransactionType, amount *decimal.Decimal, artifact *services.ProofUpload) (*domain.Transaction, error)
	SetStatus(ctx context.Context, txID, actorID string, isAdmin bool, status domain.TransactionStatus) error
	ListForIdea(ctx context.Context, ideaID, actorID string, isAdmin bool) ([]domain.Transaction, error)
	Supporters(ctx context.Context, ideaID string) ([]string, error)
}

// ProfileService defines profile read/write operations.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, userID, displayName, paymentKey, city string) (*domain.Profile, error)
}

// NotificationService defines notification queue operations.
type NotificationService interface {
	List(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for ideas, interactions, comments,
// transactions, profiles, and notifications. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	ideaSvc    IdeaService
	interSvc   InteractionService
	commentSvc CommentService
	txSvc      TransactionService
	profileSvc ProfileService
	notifSvc   NotificationService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(ideaSvc IdeaService, interSvc InteractionService, commentSvc CommentService,
	txSvc TransactionService, profileSvc ProfileService, notifSvc NotificationService) *Handlers {
	return &Handlers{
		ideaSvc:    ideaSvc,
		interSvc:   interSvc,
		commentSvc: commentSvc,
		txSvc:      txSvc,
		profileSvc: profileSvc,
		notifSvc:   notifSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header. An empty
// result means the request is anonymous: reads still work, mutations are
// rejected with 401 by requireUser.
func userID(c *gin.Context) string {
	var fromCtx string
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			fromCtx = s
		}
	}
	var fromHeader string
	if c != nil && c.Request != nil {
		fromHeader = c.GetHeader("X-User-ID")
	}
	return strings.TrimSpace(sysutil.FirstNonEmpty(fromCtx, fromHeader))
}

// isAdmin reports whether the request carries the administrator role (set by
// upstream auth middleware, with the "X-User-Role" header as fallback).
func isAdmin(c *gin.Context) bool {
	if v, ok := c.Get("userRole"); ok {
		if s, ok := v.(string); ok {
			return s == "admin"
		}
	}
	if c != nil && c.Request != nil {
		return c.GetHeader("X-User-Role") == "admin"
	}
	return false
}

// requireUser returns the authenticated user id, writing a 401 and returning
// ok=false when the request is anonymous.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	return uid, true
}

//
// DTOs
//

// IdeaRequest is the JSON payload for creating or updating an idea.
type IdeaRequest struct {
	Title          string   `json:"title" binding:"required,min=1,max=255"`
	Niche          string   `json:"niche"`
	Pain           string   `json:"pain"`
	Solution       string   `json:"solution"`
	Why            string   `json:"why"`
	PricingModel   string   `json:"pricing_model"`
	Target         string   `json:"target"`
	SalesStrategy  string   `json:"sales_strategy"`
	TechnicalBrief string   `json:"technical_brief"`
	IsBuilding     bool     `json:"is_building"`
	PaymentType    string   `json:"payment_type"`
	Price          *string  `json:"price,omitempty"`
	HiddenFields   []string `json:"hidden_fields,omitempty"`
}

// toInput converts the transport payload into the service input, parsing the
// decimal price. A malformed price is a transport-level error.
func (r IdeaRequest) toInput() (services.IdeaInput, error) {
	in := services.IdeaInput{
		Title:          r.Title,
		Niche:          r.Niche,
		Pain:           r.Pain,
		Solution:       r.Solution,
		Why:            r.Why,
		PricingModel:   r.PricingModel,
		Target:         r.Target,
		SalesStrategy:  r.SalesStrategy,
		TechnicalBrief: r.TechnicalBrief,
		IsBuilding:     r.IsBuilding,
		PaymentType:    domain.PaymentType(r.PaymentType),
	}
	if r.Price != nil {
		d, err := decimal.NewFromString(*r.Price)
		if err != nil {
			return in, fmt.Errorf("price must be a decimal string: %w", err)
		}
		in.Price = &d
	}
	for _, f := range r.HiddenFields {
		in.HiddenFields = append(in.HiddenFields, domain.Field(f))
	}
	return in, nil
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListIdeasResponse wraps a page of ideas and pagination information.
type ListIdeasResponse struct {
	Ideas      []services.IdeaDetail `json:"ideas"`
	Pagination Pagination            `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ideaFilter parses the list filter query params.
func ideaFilter(c *gin.Context) repo.IdeaFilter {
	f := repo.IdeaFilter{
		Niche:   strings.TrimSpace(c.Query("niche")),
		OwnerID: strings.TrimSpace(c.Query("owner")),
	}
	if raw := strings.TrimSpace(c.Query("building")); raw != "" {
		b := sysutil.IsTruthy(raw)
		f.IsBuilding = &b
	}
	return f
}

//
// Handlers
//

// CreateIdea creates an idea for the current user and returns the resource.
func (h *Handlers) CreateIdea(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req IdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	idea, err := h.ideaSvc.Create(c.Request.Context(), uid, in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, idea)
}

// ListIdeas returns a filtered page of ideas hydrated for the viewer.
// Supports weak ETag via If-None-Match and may return 304.
func (h *Handlers) ListIdeas(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)
	filter := ideaFilter(c)

	// ETag pre-check (best effort). The body carries per-viewer flags
	// (is_favorite and friends) that change without touching the ideas
	// table, so the tag mixes in the viewer's interaction row stats next
	// to the filtered idea stats.
	var db *gorm.DB
	if svc, ok := h.ideaSvc.(*services.IdeaService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.IdeasStats(ctx, db, filter)
		var marks int64
		var marksTS *time.Time
		if err == nil && uid != "" {
			marks, marksTS, err = repo.ViewerMarksStats(ctx, db, uid)
		}
		if err == nil {
			var ts, mts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			if marksTS != nil {
				mts = marksTS.Unix()
			}
			etag := fmt.Sprintf(`W/"ideas:%s:%s:%s:%s:%d:%d:%d:%d"`,
				uid, filter.Niche, filter.OwnerID, boolParam(filter.IsBuilding), count, ts, marks, mts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.ideaSvc.ListPage(ctx, uid, filter, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListIdeasResponse{
		Ideas: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// boolParam renders an optional bool filter for the ETag key.
func boolParam(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// GetIdea returns one idea, hydrated and gated for the viewer.
func (h *Handlers) GetIdea(c *gin.Context) {
	view, err := h.ideaSvc.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// UpdateIdea replaces the editable fields of an idea owned by the caller.
func (h *Handlers) UpdateIdea(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req IdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if err := h.ideaSvc.Update(c.Request.Context(), uid, isAdmin(c), c.Param("id"), in); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// DeleteIdea soft-deletes an idea owned by the caller.
func (h *Handlers) DeleteIdea(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	if err := h.ideaSvc.Delete(c.Request.Context(), uid, isAdmin(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// SearchIdeas ranks ideas against the q query parameter.
func (h *Handlers) SearchIdeas(c *gin.Context) {
	items, err := h.ideaSvc.Search(c.Request.Context(), userID(c), c.Query("q"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ideas": items})
}
