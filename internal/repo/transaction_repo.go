// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Transaction model. Note there is deliberately no uniqueness guard on
// (idea, payer, type): duplicate submissions are recorded as independent
// pending rows and reconciled by a human review step.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/domain"
)

// CreateTransaction records a claimed payment in pending state.
func CreateTransaction(ctx context.Context, db *gorm.DB, ideaID, payerID string, txType domain.TransactionType, amount decimal.Decimal, proofRef, proofURL string) (*domain.Transaction, error) {
	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		IdeaID:    ideaID,
		PayerID:   payerID,
		Type:      txType,
		Amount:    amount,
		ProofRef:  proofRef,
		ProofURL:  proofURL,
		Status:    domain.TransactionPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(tx).Error; err != nil {
		return nil, translate(err, "transaction", "")
	}
	return tx, nil
}

// GetTransaction fetches a transaction by ID.
func GetTransaction(ctx context.Context, db *gorm.DB, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		return nil, translate(err, "transaction", id)
	}
	return &tx, nil
}

// ListTransactions returns every transaction on ideaID, newest first.
func ListTransactions(ctx context.Context, db *gorm.DB, ideaID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := db.WithContext(ctx).
		Where("idea_id = ?", ideaID).
		Order("created_at desc").
		Find(&out).Error
	return out, translate(err, "transaction", "")
}

// ListTransactionsByPayer returns every transaction submitted by payerID,
// newest first.
func ListTransactionsByPayer(ctx context.Context, db *gorm.DB, payerID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := db.WithContext(ctx).
		Where("payer_id = ?", payerID).
		Order("created_at desc").
		Find(&out).Error
	return out, translate(err, "transaction", "")
}

// HasConfirmedPurchase reports whether payerID holds a confirmed purchase
// transaction on ideaID, the unlock condition for paid content.
func HasConfirmedPurchase(ctx context.Context, db *gorm.DB, ideaID, payerID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("idea_id = ? AND payer_id = ? AND type = ? AND status = ?",
			ideaID, payerID, domain.TransactionPurchase, domain.TransactionConfirmed).
		Count(&n).Error
	return n > 0, translate(err, "transaction", "")
}

// ListConfirmedPurchaseIdeaIDs returns the ids of every idea payerID has
// unlocked with a confirmed purchase. Used to gate fields across whole list
// views without a per-idea query.
func ListConfirmedPurchaseIdeaIDs(ctx context.Context, db *gorm.DB, payerID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("payer_id = ? AND type = ? AND status = ?",
			payerID, domain.TransactionPurchase, domain.TransactionConfirmed).
		Pluck("idea_id", &ids).Error
	return ids, translate(err, "transaction", "")
}

// ListSupporterIDs returns the distinct payer ids with a non-rejected
// transaction on ideaID. Pending rows count here: supporter badges are
// social proof, not an unlock.
func ListSupporterIDs(ctx context.Context, db *gorm.DB, ideaID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Distinct("payer_id").
		Where("idea_id = ? AND status <> ?", ideaID, domain.TransactionRejected).
		Pluck("payer_id", &ids).Error
	return ids, translate(err, "transaction", "")
}

// UpdateTransactionStatus moves a transaction to status. The transition
// guard (pending-only, owner/admin) lives in the service layer; this only
// refuses to touch rows already in a terminal state.
func UpdateTransactionStatus(ctx context.Context, db *gorm.DB, id string, status domain.TransactionStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, domain.TransactionPending).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error, "transaction", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "transaction", id)
	}
	return nil
}
