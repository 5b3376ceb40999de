// Package services implements the business logic of the idea marketplace:
// idea lifecycle, viewer interactions (votes, favorites, interest), threaded
// discussion, the transaction workflow, and profiles. Services sit between
// the HTTP handlers and the repository; every repository read flows through
// the query cache and every mutation invalidates the signatures that could
// display the mutated data.
//
// This file centralizes cache signature construction so services and tests
// agree on keys, and so invalidation prefixes provably cover every signature
// they are meant to reach.
package services

import (
	"strconv"

	"github.com/ideapool/go-ideas-backend/internal/cache"
	"github.com/ideapool/go-ideas-backend/internal/repo"
)

// Signature prefixes. Invalidating prefixIdeas reaches every list, detail,
// and search signature at once.
const (
	prefixIdeas      = "ideas:"
	prefixIdeaDetail = "ideas:detail"
)

func sigIdeasList(f repo.IdeaFilter, page, pageSize int) string {
	m := map[string]string{
		"page": strconv.Itoa(page),
		"size": strconv.Itoa(pageSize),
	}
	if f.Niche != "" {
		m["niche"] = f.Niche
	}
	if f.OwnerID != "" {
		m["owner"] = f.OwnerID
	}
	if f.IsBuilding != nil {
		m["building"] = strconv.FormatBool(*f.IsBuilding)
	}
	return cache.Signature("ideas:list", m)
}

func sigIdeasAll() string {
	return cache.Signature("ideas:all", nil)
}

func sigIdeaDetailFor(ideaID string) string {
	return cache.Signature(prefixIdeaDetail, map[string]string{"id": ideaID})
}

func sigComments(ideaID string) string {
	return cache.Signature("improvements:forest", map[string]string{"idea": ideaID})
}

func sigViewerSet(userID string) string {
	return cache.Signature("viewer:set", map[string]string{"user": userID})
}

func sigIdeaTransactions(ideaID string) string {
	return cache.Signature("transactions:idea", map[string]string{"idea": ideaID})
}

func sigSupporters(ideaID string) string {
	return cache.Signature("transactions:supporters", map[string]string{"idea": ideaID})
}

// entityKey tags write sequence numbers per idea so racing mutations against
// the same idea order themselves (see cache.BeginWrite / CommitWrite).
func entityKey(ideaID string) string { return "idea:" + ideaID }

// invalidateIdea marks every cached view that could display ideaID as stale:
// the idea's detail entry, all list/search signatures, and its discussion
// and transaction entries. Staleness is deliberately never narrower than
// the set of views showing the mutated data.
func invalidateIdea(store *cache.Store, ideaID string) {
	store.Invalidate(prefixIdeas)
	store.Invalidate(sigComments(ideaID))
	store.Invalidate(sigIdeaTransactions(ideaID))
	store.Invalidate(sigSupporters(ideaID))
}

// invalidateViewer drops the viewer's interaction sets after one of their
// own mutations (vote, favorite, interest).
func invalidateViewer(store *cache.Store, userID string) {
	store.Invalidate(sigViewerSet(userID))
}
