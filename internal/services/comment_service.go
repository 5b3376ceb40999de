// Package services – CommentService
//
// This file implements the threaded discussion on an idea. Comments are
// stored flat with an optional parent reference and rebuilt into a forest
// on read by the discussion package. Creation enforces the same-idea parent
// invariant up front; the tree builder additionally degrades malformed
// legacy rows (dangling or cross-idea parents) to roots instead of failing.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
	"github.com/ideapool/go-ideas-backend/internal/cache"
	"github.com/ideapool/go-ideas-backend/internal/discussion"
	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/notify"
	"github.com/ideapool/go-ideas-backend/internal/repo"
)

// CommentService manages idea discussions.
type CommentService struct {
	DB     *gorm.DB
	Cache  *cache.Store
	Notify notify.Sink

	// MaxContentLen caps comment length by rune count.
	MaxContentLen int
}

// NewCommentService constructs a CommentService with sane defaults.
func NewCommentService(db *gorm.DB, store *cache.Store, sink notify.Sink) *CommentService {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &CommentService{DB: db, Cache: store, Notify: sink, MaxContentLen: 4000}
}

// Add posts a comment (or reply, when parentID is set) on ideaID. A parent
// must exist and belong to the same idea; violations are constraint errors.
// The idea owner is notified unless they authored the comment themselves.
func (s *CommentService) Add(ctx context.Context, ideaID, authorID, content string, parentID *string) (*domain.Improvement, error) {
	if authorID == "" {
		return nil, apperr.Validation("a signed-in user is required to comment")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("comment content is required")
	}
	if s.MaxContentLen > 0 && len([]rune(content)) > s.MaxContentLen {
		return nil, apperr.Validation("comment exceeds %d characters", s.MaxContentLen)
	}

	idea, err := repo.GetIdea(ctx, s.DB, ideaID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := repo.GetImprovement(ctx, s.DB, *parentID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return nil, apperr.Constraint("parent comment %s does not exist", *parentID)
			}
			return nil, err
		}
		if parent.IdeaID != ideaID {
			return nil, apperr.Constraint("parent comment belongs to a different idea")
		}
	}

	seq := s.Cache.BeginWrite(entityKey(ideaID))
	imp, err := repo.CreateImprovement(ctx, s.DB, ideaID, authorID, content, parentID)
	if err != nil {
		return nil, err
	}

	if idea.OwnerID != authorID {
		s.Notify.Enqueue(ctx, idea.OwnerID, authorID, notify.TypeNewComment, map[string]string{
			"idea_id":    ideaID,
			"idea_title": idea.Title,
			"comment_id": imp.ID,
		})
	}

	s.Cache.CommitWrite(entityKey(ideaID), seq, func() {
		invalidateIdea(s.Cache, ideaID)
	})
	return imp, nil
}

// Thread returns ideaID's discussion as an ordered forest. The flat rows
// are cached and shared; the forest is rebuilt per call so no caller ever
// mutates another's tree.
func (s *CommentService) Thread(ctx context.Context, ideaID string) ([]*discussion.Thread, error) {
	if _, err := repo.GetIdea(ctx, s.DB, ideaID); err != nil {
		return nil, err
	}
	v, err := s.Cache.Read(ctx, sigComments(ideaID), cache.Dynamic, func(ctx context.Context) (any, error) {
		return repo.ListImprovements(ctx, s.DB, ideaID)
	})
	if err != nil {
		return nil, err
	}
	return discussion.BuildForest(v.([]domain.Improvement)), nil
}

// Delete removes a comment authored by actorID (or any comment when
// isAdmin). The whole reply subtree is deleted with it.
func (s *CommentService) Delete(ctx context.Context, actorID string, isAdmin bool, commentID string) error {
	imp, err := repo.GetImprovement(ctx, s.DB, commentID)
	if err != nil {
		return err
	}
	if !isAdmin && imp.AuthorID != actorID {
		return apperr.Constraint("only the comment author may delete it")
	}
	seq := s.Cache.BeginWrite(entityKey(imp.IdeaID))
	if err := repo.DeleteImprovement(ctx, s.DB, commentID); err != nil {
		return err
	}
	s.Cache.CommitWrite(entityKey(imp.IdeaID), seq, func() {
		invalidateIdea(s.Cache, imp.IdeaID)
	})
	return nil
}
