// Package services – IdeaService
//
// This file implements the IdeaService, which manages the idea lifecycle and
// the read path that every view goes through: repository → cache → hydration
// (viewer flags) → monetization gate (field visibility). List and detail
// reads share one hydration function, so an idea appearing in both resolves
// to identical flags, and detail entries are seeded from list data so a
// detail view renders instantly while its authoritative fetch resolves.
package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
	"github.com/ideapool/go-ideas-backend/internal/cache"
	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/gate"
	"github.com/ideapool/go-ideas-backend/internal/hydrate"
	"github.com/ideapool/go-ideas-backend/internal/repo"
	"github.com/ideapool/go-ideas-backend/internal/search"
)

// IdeaService provides idea CRUD plus the hydrated, gated read path.
type IdeaService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache is the query cache every read flows through.
	Cache *cache.Store

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// SearchMaxHits caps search results.
	SearchMaxHits int
}

// NewIdeaService constructs an IdeaService with sane defaults.
func NewIdeaService(db *gorm.DB, store *cache.Store) *IdeaService {
	return &IdeaService{DB: db, Cache: store, TitleMaxLen: 255, SearchMaxHits: 20}
}

// IdeaInput carries the caller-editable idea fields.
type IdeaInput struct {
	Title          string
	Niche          string
	Pain           string
	Solution       string
	Why            string
	PricingModel   string
	Target         string
	SalesStrategy  string
	TechnicalBrief string
	IsBuilding     bool
	PaymentType    domain.PaymentType
	Price          *decimal.Decimal
	HiddenFields   []domain.Field
}

// ideaPage is the cached payload for one list signature.
type ideaPage struct {
	Items []domain.Idea
	Total int64
}

// IdeaDetail is the fully assembled detail view: hydrated flags plus the
// list of fields the gate locked for this viewer.
type IdeaDetail struct {
	hydrate.IdeaView
	LockedFields []domain.Field `json:"locked_fields,omitempty"`
}

// Create validates and persists a new idea owned by ownerID.
func (s *IdeaService) Create(ctx context.Context, ownerID string, in IdeaInput) (*domain.Idea, error) {
	idea, err := s.buildIdea(ownerID, in)
	if err != nil {
		return nil, err
	}
	created, err := repo.CreateIdea(ctx, s.DB, idea)
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(prefixIdeas)
	return created, nil
}

// buildIdea normalizes and validates input into a persistable Idea.
func (s *IdeaService) buildIdea(ownerID string, in IdeaInput) (*domain.Idea, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if s.TitleMaxLen > 0 && len([]rune(title)) > s.TitleMaxLen {
		return nil, apperr.Validation("title exceeds %d characters", s.TitleMaxLen)
	}
	pt := in.PaymentType
	if pt == "" {
		pt = domain.PaymentFree
	}
	if !pt.Valid() {
		return nil, apperr.Validation("payment_type must be free, donation, or paid")
	}
	if pt == domain.PaymentPaid {
		if in.Price == nil || in.Price.Sign() <= 0 {
			return nil, apperr.Validation("paid ideas require a positive price")
		}
		for _, f := range in.HiddenFields {
			if !domain.FieldList(domain.GatedFields).Contains(f) {
				return nil, apperr.Validation("unknown hidden field %q", f)
			}
		}
	} else {
		// Price and hidden fields are only meaningful on paid ideas.
		in.Price = nil
		in.HiddenFields = nil
	}
	return &domain.Idea{
		OwnerID:        ownerID,
		Title:          title,
		Niche:          strings.TrimSpace(in.Niche),
		Pain:           in.Pain,
		Solution:       in.Solution,
		Why:            in.Why,
		PricingModel:   in.PricingModel,
		Target:         in.Target,
		SalesStrategy:  in.SalesStrategy,
		TechnicalBrief: in.TechnicalBrief,
		IsBuilding:     in.IsBuilding,
		PaymentType:    pt,
		Price:          in.Price,
		HiddenFields:   domain.FieldList(in.HiddenFields),
	}, nil
}

// ListPage returns one hydrated, gated page of ideas for the viewer, plus
// the total match count. The raw page is shared across viewers through the
// cache; hydration and gating are applied per viewer afterwards.
func (s *IdeaService) ListPage(ctx context.Context, viewerID string, filter repo.IdeaFilter, page, pageSize int) ([]IdeaDetail, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	sig := sigIdeasList(filter, page, pageSize)
	v, err := s.Cache.Read(ctx, sig, cache.Dynamic, func(ctx context.Context) (any, error) {
		total, err := repo.CountIdeas(ctx, s.DB, filter)
		if err != nil {
			return nil, err
		}
		if total == 0 {
			return ideaPage{Items: []domain.Idea{}}, nil
		}
		items, err := repo.ListIdeasPage(ctx, s.DB, filter, offset, pageSize)
		if err != nil {
			return nil, err
		}
		return ideaPage{Items: items, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	pg := v.(ideaPage)

	// Placeholder-seed the detail entries so opening a detail view renders
	// list data instantly while its own fetch resolves.
	for i := range pg.Items {
		s.Cache.Seed(sigIdeaDetailFor(pg.Items[i].ID), pg.Items[i])
	}

	views, err := s.assemble(ctx, viewerID, pg.Items)
	if err != nil {
		return nil, 0, err
	}
	return views, pg.Total, nil
}

// Get returns the hydrated, gated detail view of one idea.
func (s *IdeaService) Get(ctx context.Context, viewerID, ideaID string) (*IdeaDetail, error) {
	v, err := s.Cache.Read(ctx, sigIdeaDetailFor(ideaID), cache.Dynamic, func(ctx context.Context) (any, error) {
		idea, err := repo.GetIdea(ctx, s.DB, ideaID)
		if err != nil {
			return nil, err
		}
		return *idea, nil
	})
	if err != nil {
		return nil, err
	}
	idea := v.(domain.Idea)

	views, err := s.assemble(ctx, viewerID, []domain.Idea{idea})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// assemble applies hydration and the monetization gate to raw ideas for one
// viewer. The gate relationship is re-derived on every call, never cached:
// confirmation of a purchase is an asynchronous event initiated by the
// owner, so staleness here would show the wrong fields.
func (s *IdeaService) assemble(ctx context.Context, viewerID string, ideas []domain.Idea) ([]IdeaDetail, error) {
	vs, err := s.viewerSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	var unlocked map[string]struct{}
	if viewerID != "" {
		ids, err := repo.ListConfirmedPurchaseIdeaIDs(ctx, s.DB, viewerID)
		if err != nil {
			return nil, err
		}
		unlocked = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			unlocked[id] = struct{}{}
		}
	}

	out := make([]IdeaDetail, len(ideas))
	for i, idea := range ideas {
		rel := gate.Relationship{IsOwner: viewerID != "" && idea.OwnerID == viewerID}
		if !rel.IsOwner {
			_, rel.HasConfirmedPurchase = unlocked[idea.ID]
		}
		redacted, locked := gate.Redact(idea, rel)
		out[i] = IdeaDetail{
			IdeaView:     hydrate.One(redacted, vs),
			LockedFields: locked,
		}
	}
	return out, nil
}

// viewerSet loads (or recomputes) the viewer's interaction sets. Keyed per
// user, so a set built for one identity can never serve another; a blank
// viewer gets nil, which hydration treats as all-false.
func (s *IdeaService) viewerSet(ctx context.Context, viewerID string) (*hydrate.ViewerSet, error) {
	if viewerID == "" {
		return nil, nil
	}
	v, err := s.Cache.Read(ctx, sigViewerSet(viewerID), cache.Dynamic, func(ctx context.Context) (any, error) {
		voted, err := repo.ListVotedIdeaIDs(ctx, s.DB, viewerID)
		if err != nil {
			return nil, err
		}
		favorited, err := repo.ListFavoriteIdeaIDs(ctx, s.DB, viewerID)
		if err != nil {
			return nil, err
		}
		interested, err := repo.ListInterestedIdeaIDs(ctx, s.DB, viewerID)
		if err != nil {
			return nil, err
		}
		return hydrate.NewViewerSet(viewerID, voted, favorited, interested), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*hydrate.ViewerSet), nil
}

// Update applies a partial update to an idea owned by actorID (or any idea
// when isAdmin). Ownership violations are constraint errors.
func (s *IdeaService) Update(ctx context.Context, actorID string, isAdmin bool, ideaID string, in IdeaInput) error {
	current, err := repo.GetIdea(ctx, s.DB, ideaID)
	if err != nil {
		return err
	}
	if !isAdmin && current.OwnerID != actorID {
		return apperr.Constraint("only the idea owner may update it")
	}
	idea, err := s.buildIdea(current.OwnerID, in)
	if err != nil {
		return err
	}
	patch := map[string]any{
		"title":           idea.Title,
		"niche":           idea.Niche,
		"pain":            idea.Pain,
		"solution":        idea.Solution,
		"why":             idea.Why,
		"pricing_model":   idea.PricingModel,
		"target":          idea.Target,
		"sales_strategy":  idea.SalesStrategy,
		"technical_brief": idea.TechnicalBrief,
		"is_building":     idea.IsBuilding,
		"payment_type":    idea.PaymentType,
		"price":           idea.Price,
		"hidden_fields":   idea.HiddenFields,
	}

	seq := s.Cache.BeginWrite(entityKey(ideaID))
	if err := repo.UpdateIdea(ctx, s.DB, ideaID, patch); err != nil {
		return err
	}
	s.Cache.CommitWrite(entityKey(ideaID), seq, func() {
		invalidateIdea(s.Cache, ideaID)
	})
	return nil
}

// Delete soft-deletes an idea owned by actorID (or any idea when isAdmin).
func (s *IdeaService) Delete(ctx context.Context, actorID string, isAdmin bool, ideaID string) error {
	current, err := repo.GetIdea(ctx, s.DB, ideaID)
	if err != nil {
		return err
	}
	if !isAdmin && current.OwnerID != actorID {
		return apperr.Constraint("only the idea owner may delete it")
	}
	seq := s.Cache.BeginWrite(entityKey(ideaID))
	if err := repo.DeleteIdea(ctx, s.DB, ideaID); err != nil {
		return err
	}
	s.Cache.CommitWrite(entityKey(ideaID), seq, func() {
		invalidateIdea(s.Cache, ideaID)
	})
	return nil
}

// Search ranks ideas against a free-text query and returns them hydrated
// and gated for the viewer. The corpus snapshot is cached under a static
// signature and the index rebuilt from it per call; idea mutations
// invalidate the snapshot along with every other ideas: signature.
func (s *IdeaService) Search(ctx context.Context, viewerID, query string) ([]IdeaDetail, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("query must not be empty")
	}
	v, err := s.Cache.Read(ctx, sigIdeasAll(), cache.Static, func(ctx context.Context) (any, error) {
		return repo.ListIdeas(ctx, s.DB, repo.IdeaFilter{})
	})
	if err != nil {
		return nil, err
	}
	all := v.([]domain.Idea)

	max := s.SearchMaxHits
	if max <= 0 {
		max = 20
	}
	hits := search.NewIndex(all).TopK(query, max)
	if len(hits) == 0 {
		return []IdeaDetail{}, nil
	}

	byID := make(map[string]domain.Idea, len(all))
	for _, it := range all {
		byID[it.ID] = it
	}
	matched := make([]domain.Idea, 0, len(hits))
	for _, h := range hits {
		if it, ok := byID[h.IdeaID]; ok {
			matched = append(matched, it)
		}
	}
	return s.assemble(ctx, viewerID, matched)
}
