// Package hydrate merges a viewer's private interaction sets onto shared
// idea records to produce viewer-scoped view-models. Hydration is a pure
// transformation: the same function is applied whether the ideas came from
// a list query or a detail query, and the idea id is the only correlation
// key, so duplicate ids across result sets always resolve to the same
// flags.
package hydrate

import "github.com/ideapool/go-ideas-backend/internal/domain"

// ViewerSet holds the idea-id sets of the current viewer: which ideas they
// have voted on, favorited, and expressed interest in. It is derived state,
// recomputed whenever the viewer identity changes, and must never be reused
// across two identities. A nil *ViewerSet represents an unauthenticated
// viewer.
type ViewerSet struct {
	UserID     string
	Voted      map[string]struct{}
	Favorited  map[string]struct{}
	Interested map[string]struct{}
}

// NewViewerSet builds a ViewerSet from raw id slices, as returned by the
// repository pluck queries.
func NewViewerSet(userID string, voted, favorited, interested []string) *ViewerSet {
	return &ViewerSet{
		UserID:     userID,
		Voted:      toSet(voted),
		Favorited:  toSet(favorited),
		Interested: toSet(interested),
	}
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// IdeaView is an idea enriched with the three viewer-scoped booleans.
type IdeaView struct {
	domain.Idea
	HasVoted     bool `json:"has_voted"`
	IsFavorite   bool `json:"is_favorite"`
	IsInterested bool `json:"is_interested"`
}

// Apply hydrates a list of ideas with vs. A nil vs (unauthenticated
// viewer) defaults every flag to false rather than failing. O(n) given
// O(1) set lookups; no side effects.
func Apply(ideas []domain.Idea, vs *ViewerSet) []IdeaView {
	out := make([]IdeaView, len(ideas))
	for i, idea := range ideas {
		out[i] = One(idea, vs)
	}
	return out
}

// One hydrates a single idea with vs.
func One(idea domain.Idea, vs *ViewerSet) IdeaView {
	v := IdeaView{Idea: idea}
	if vs == nil {
		return v
	}
	_, v.HasVoted = vs.Voted[idea.ID]
	_, v.IsFavorite = vs.Favorited[idea.ID]
	_, v.IsInterested = vs.Interested[idea.ID]
	return v
}
