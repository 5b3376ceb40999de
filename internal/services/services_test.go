package services

// Shared test fixtures: an isolated in-memory database per test and a
// recording notification sink.

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ideapool/go-ideas-backend/internal/cache"
	"github.com/ideapool/go-ideas-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Idea{}, &domain.Improvement{}, &domain.Interest{},
		&domain.Vote{}, &domain.Favorite{}, &domain.Transaction{},
		&domain.Profile{}, &domain.Notification{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestCache() *cache.Store { return cache.New() }

type sinkEvent struct {
	Recipient string
	Sender    string
	Type      string
	Payload   any
}

// sinkRecorder captures enqueued notifications for assertions.
type sinkRecorder struct {
	events []sinkEvent
}

func (r *sinkRecorder) Enqueue(_ context.Context, recipient, sender, eventType string, payload any) {
	r.events = append(r.events, sinkEvent{Recipient: recipient, Sender: sender, Type: eventType, Payload: payload})
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// seedIdea inserts an idea directly, bypassing service validation.
func seedIdea(t *testing.T, db *gorm.DB, idea *domain.Idea) *domain.Idea {
	t.Helper()
	if idea.ID == "" {
		idea.ID = uuid.NewString()
	}
	if idea.Title == "" {
		idea.Title = "an idea"
	}
	if idea.PaymentType == "" {
		idea.PaymentType = domain.PaymentFree
	}
	if err := db.Create(idea).Error; err != nil {
		t.Fatalf("seed idea: %v", err)
	}
	return idea
}

func seedProfile(t *testing.T, db *gorm.DB, userID, name, key, city string) {
	t.Helper()
	p := &domain.Profile{UserID: userID, DisplayName: name, PaymentKey: key, City: city}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}
