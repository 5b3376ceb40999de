// Package domain defines the persistence models for the idea marketplace:
// ideas, improvements (threaded comments), interests, votes, favorites,
// transactions, profiles, and notifications. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentType describes how an idea is monetized.
type PaymentType string

const (
	// PaymentFree means every field of the idea is public.
	PaymentFree PaymentType = "free"
	// PaymentDonation means the owner accepts voluntary donations; no field
	// is ever hidden for donation ideas.
	PaymentDonation PaymentType = "donation"
	// PaymentPaid means selected fields are locked behind a purchase.
	PaymentPaid PaymentType = "paid"
)

// Valid reports whether t is one of the known payment types.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentFree, PaymentDonation, PaymentPaid:
		return true
	}
	return false
}

// Field names an idea content field that can be hidden behind a paywall.
// Only the fields below participate in gating; everything else on an idea
// is always public.
type Field string

const (
	FieldPain           Field = "pain"
	FieldSolution       Field = "solution"
	FieldTechnicalBrief Field = "technical_brief"
)

// GatedFields lists every field that may appear in an idea's hidden set.
var GatedFields = []Field{FieldPain, FieldSolution, FieldTechnicalBrief}

// FieldList is a set of gated field names stored as a single CSV column.
// It implements sql.Scanner / driver.Valuer so GORM can persist it in a
// plain TEXT column.
type FieldList []Field

// Contains reports whether f is present in the list.
func (l FieldList) Contains(f Field) bool {
	for _, v := range l {
		if v == f {
			return true
		}
	}
	return false
}

// Value serializes the list as a comma-separated string.
func (l FieldList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	parts := make([]string, len(l))
	for i, f := range l {
		parts[i] = string(f)
	}
	return strings.Join(parts, ","), nil
}

// Scan deserializes a comma-separated string into the list.
func (l *FieldList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("fieldlist: cannot scan %T", src)
	}
	if strings.TrimSpace(s) == "" {
		*l = nil
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(FieldList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Field(p))
		}
	}
	*l = out
	return nil
}

// Idea is the core content unit: a pitched problem/solution owned by its
// creator. VotesCount is server-authoritative and mutated only through the
// vote protocol; Price is meaningful only when PaymentType is "paid".
type Idea struct {
	ID             string           `json:"id"              gorm:"type:char(36);primaryKey"`
	OwnerID        string           `json:"owner_id"        gorm:"type:varchar(64);not null;index:idx_owner_ideas"`
	Title          string           `json:"title"           gorm:"type:varchar(255);not null"`
	Niche          string           `json:"niche"           gorm:"type:varchar(64);index"`
	Pain           string           `json:"pain"            gorm:"type:text"`
	Solution       string           `json:"solution"        gorm:"type:text"`
	Why            string           `json:"why"             gorm:"type:text"`
	PricingModel   string           `json:"pricing_model"   gorm:"type:varchar(128)"`
	Target         string           `json:"target"          gorm:"type:varchar(255)"`
	SalesStrategy  string           `json:"sales_strategy"  gorm:"type:text"`
	TechnicalBrief string           `json:"technical_brief,omitempty" gorm:"type:text"`
	VotesCount     int              `json:"votes_count"     gorm:"not null;default:0;check:votes_count >= 0"`
	IsBuilding     bool             `json:"is_building"     gorm:"not null;default:false"`
	PaymentType    PaymentType      `json:"payment_type"    gorm:"type:varchar(16);not null;default:'free';check:payment_type IN ('free','donation','paid')"`
	Price          *decimal.Decimal `json:"price,omitempty" gorm:"type:decimal(12,2)"`
	HiddenFields   FieldList        `json:"hidden_fields,omitempty" gorm:"type:text"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `json:"-"               gorm:"index"`
}

// TableName returns the database table name for Idea.
func (Idea) TableName() string { return "ideas" }

// Improvement is a comment on an idea. A nil ParentID marks a root comment;
// otherwise the parent must be another improvement on the same idea.
// Improvements form a forest per idea, rebuilt from the flat rows by the
// discussion package.
type Improvement struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	IdeaID    string         `json:"idea_id"    gorm:"type:char(36);not null;index:idx_idea_improvements,priority:1"`
	AuthorID  string         `json:"author_id"  gorm:"type:varchar(64);not null;index"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	ParentID  *string        `json:"parent_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_idea_improvements,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Idea is the parent idea. Improvements are cascade-deleted with it.
	Idea Idea `json:"-" gorm:"foreignKey:IdeaID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Improvement.
func (Improvement) TableName() string { return "improvements" }

// Interest records that a user wants to join an idea's team. At most one
// row per (idea, user); re-expressing interest is an idempotent join.
type Interest struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	IdeaID    string         `json:"idea_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_interest_idea_user"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_interest_idea_user"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Interest.
func (Interest) TableName() string { return "interests" }

// Vote is a boolean, unweighted upvote. At most one per (idea, user),
// enforced by a unique index; duplicates are treated as no-ops upstream.
type Vote struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	IdeaID    string    `json:"idea_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_vote_idea_user"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_vote_idea_user"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }

// Favorite is a toggled bookmark on an idea; boolean existence per
// (idea, user).
type Favorite struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	IdeaID    string    `json:"idea_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_favorite_idea_user"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_favorite_idea_user"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }

// TransactionType distinguishes voluntary donations from content purchases.
type TransactionType string

const (
	TransactionDonation TransactionType = "donation"
	TransactionPurchase TransactionType = "purchase"
)

// TransactionStatus is the lifecycle state of a recorded transaction.
// Transactions are created pending and moved to a terminal state only by
// the idea owner or an administrator. The system never verifies that funds
// moved; it records a claim plus a proof artifact.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionRejected  TransactionStatus = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionConfirmed || s == TransactionRejected
}

// Transaction is a claimed payment against an idea. A confirmed purchase is
// the sole unlock mechanism for paid content; pending transactions count
// for social proof only.
type Transaction struct {
	ID        string            `json:"id"         gorm:"type:char(36);primaryKey"`
	IdeaID    string            `json:"idea_id"    gorm:"type:char(36);not null;index:idx_idea_txns"`
	PayerID   string            `json:"payer_id"   gorm:"type:varchar(64);not null;index"`
	Type      TransactionType   `json:"type"       gorm:"type:varchar(16);not null;check:type IN ('donation','purchase')"`
	Amount    decimal.Decimal   `json:"amount"     gorm:"type:decimal(12,2);not null"`
	ProofRef  string            `json:"proof_ref"  gorm:"type:varchar(255)"`
	ProofURL  string            `json:"proof_url"  gorm:"type:varchar(512)"`
	Status    TransactionStatus `json:"status"     gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','confirmed','rejected')"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Idea is the target of the payment claim.
	Idea Idea `json:"-" gorm:"foreignKey:IdeaID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Transaction.
func (Transaction) TableName() string { return "transactions" }

// Profile carries the marketplace-facing settings of a user. Identity
// itself is external; this row only holds what the core needs, notably the
// payment key and city used to build payment payloads for the user's ideas.
type Profile struct {
	UserID      string    `json:"user_id"      gorm:"type:varchar(64);primaryKey"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(128);not null"`
	PaymentKey  string    `json:"payment_key"  gorm:"type:varchar(128)"`
	City        string    `json:"city"         gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Notification is an event record addressed to a user, produced as a side
// effect of transactions and comments. Delivery transport is external;
// failure to enqueue never rolls back the triggering operation.
type Notification struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	RecipientID string     `json:"recipient_id" gorm:"type:varchar(64);not null;index"`
	SenderID    string     `json:"sender_id"    gorm:"type:varchar(64)"`
	Type        string     `json:"type"         gorm:"type:varchar(32);not null"`
	Payload     string     `json:"payload"      gorm:"type:text"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
