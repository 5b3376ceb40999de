// Package discussion transforms the flat, parent-linked improvement rows of
// one idea into a rooted forest of reply threads.
//
// The transform is purely structural and deterministic: the same input set
// produces the same forest regardless of input order. Sibling order comes
// from creation timestamps (id as tiebreaker), never from array insertion
// order. Dangling parent references (including parents that live on a
// different idea) degrade gracefully to root placement instead of raising
// an error. No depth cap is enforced here; reply-depth affordances belong
// to the presentation layer.
package discussion

import (
	"sort"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// Thread is one comment plus its nested replies.
type Thread struct {
	domain.Improvement
	Replies []*Thread `json:"replies"`
}

// BuildForest builds the ordered reply forest for the improvements of a
// single idea.
//
// Algorithm: index every row by id with an empty reply list, then link each
// node under its parent when the parent (a) exists in the supplied set and
// (b) belongs to the same idea; everything else becomes a root. Finally
// sort every sibling list by (CreatedAt, ID) ascending.
func BuildForest(items []domain.Improvement) []*Thread {
	if len(items) == 0 {
		return []*Thread{}
	}

	nodes := make(map[string]*Thread, len(items))
	for _, it := range items {
		nodes[it.ID] = &Thread{Improvement: it, Replies: []*Thread{}}
	}

	roots := make([]*Thread, 0, len(items))
	for _, it := range items {
		node := nodes[it.ID]
		if it.ParentID != nil {
			if parent, ok := nodes[*it.ParentID]; ok && parent.IdeaID == it.IdeaID && parent.ID != it.ID {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	// Malformed parent data can form cycles (a under b, b under a), leaving
	// nodes unreachable from any root. Promote one node per cycle to a root
	// so no comment is silently dropped.
	reached := make(map[string]struct{}, len(nodes))
	var mark func(t *Thread)
	mark = func(t *Thread) {
		reached[t.ID] = struct{}{}
		for _, r := range t.Replies {
			mark(r)
		}
	}
	for _, r := range roots {
		mark(r)
	}
	if len(reached) < len(nodes) {
		for _, it := range items {
			node := nodes[it.ID]
			if _, ok := reached[node.ID]; ok {
				continue
			}
			// Detach from its parent's reply list and promote.
			if it.ParentID != nil {
				if parent, ok := nodes[*it.ParentID]; ok {
					parent.Replies = remove(parent.Replies, node)
				}
			}
			roots = append(roots, node)
			mark(node)
		}
	}

	sortSiblings(roots)
	for _, n := range nodes {
		sortSiblings(n.Replies)
	}
	return roots
}

// remove drops node from a sibling list, preserving order.
func remove(s []*Thread, node *Thread) []*Thread {
	for i, t := range s {
		if t == node {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// sortSiblings orders a sibling list by creation time ascending, breaking
// timestamp ties by id so the ordering is total.
func sortSiblings(s []*Thread) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.Before(s[j].CreatedAt)
		}
		return s[i].ID < s[j].ID
	})
}

// Count returns the total number of comments in the forest.
func Count(forest []*Thread) int {
	n := 0
	for _, t := range forest {
		n += 1 + Count(t.Replies)
	}
	return n
}
