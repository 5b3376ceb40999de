// Package services – TransactionService
//
// This file implements the transaction workflow: building the payment
// payload a payer scans, recording a claimed payment with its proof
// artifact in pending state, and the owner/admin confirmation step that is
// the sole unlock mechanism for paid content. The system never verifies
// that funds moved; it records a claim and lets a human settle it.
//
// Duplicate submissions per (idea, payer, type) are deliberately allowed
// and recorded as independent pending rows; reconciliation is a human
// review step, not a system invariant.
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
	"github.com/ideapool/go-ideas-backend/internal/cache"
	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/notify"
	"github.com/ideapool/go-ideas-backend/internal/payments"
	"github.com/ideapool/go-ideas-backend/internal/proof"
	"github.com/ideapool/go-ideas-backend/internal/repo"
)

// TransactionService manages payment payloads and the transaction lifecycle.
type TransactionService struct {
	DB     *gorm.DB
	Cache  *cache.Store
	Notify notify.Sink
	Proofs proof.Store

	// DonationProofRequired forces donations to carry a proof artifact.
	// Purchases always require one regardless.
	DonationProofRequired bool
}

// NewTransactionService constructs a TransactionService.
func NewTransactionService(db *gorm.DB, store *cache.Store, sink notify.Sink, proofs proof.Store) *TransactionService {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &TransactionService{DB: db, Cache: store, Notify: sink, Proofs: proofs}
}

// PaymentCode is the payload handed to the payer plus the reference that
// ties a later submission back to it.
type PaymentCode struct {
	Payload   string           `json:"payload"`
	Reference string           `json:"reference"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// BuildPaymentCode constructs the payment payload for a donation or
// purchase on ideaID. Purchase amounts are fixed to the idea's price;
// the payer cannot alter them. Donation amounts are payer-chosen; nil
// produces an open-amount payload where the payer types the value in
// their banking app.
//
// The payload is regenerated on every call, never cached: it must change
// whenever the amount or the beneficiary's settings change.
func (s *TransactionService) BuildPaymentCode(ctx context.Context, ideaID string, txType domain.TransactionType, amount *decimal.Decimal) (*PaymentCode, error) {
	idea, err := repo.GetIdea(ctx, s.DB, ideaID)
	if err != nil {
		return nil, err
	}
	amt, err := s.resolveAmount(idea, txType, amount)
	if err != nil {
		return nil, err
	}

	prof, err := repo.GetProfile(ctx, s.DB, idea.OwnerID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Configuration("idea owner has not configured payment settings")
		}
		return nil, err
	}

	ref := uuid.NewString()
	payload, err := payments.BuildPayload(payments.Request{
		BeneficiaryKey:  prof.PaymentKey,
		BeneficiaryName: prof.DisplayName,
		City:            prof.City,
		Amount:          amt,
		Reference:       ref,
	})
	if err != nil {
		return nil, err
	}
	return &PaymentCode{Payload: payload, Reference: ref, Amount: amt}, nil
}

// resolveAmount applies the amount semantics per transaction type.
func (s *TransactionService) resolveAmount(idea *domain.Idea, txType domain.TransactionType, amount *decimal.Decimal) (*decimal.Decimal, error) {
	switch txType {
	case domain.TransactionPurchase:
		if idea.PaymentType != domain.PaymentPaid {
			return nil, apperr.Validation("idea %s does not sell content", idea.ID)
		}
		if idea.Price == nil || idea.Price.Sign() <= 0 {
			return nil, apperr.Configuration("paid idea %s has no price configured", idea.ID)
		}
		return idea.Price, nil
	case domain.TransactionDonation:
		if idea.PaymentType == domain.PaymentFree {
			return nil, apperr.Validation("idea %s does not accept payments", idea.ID)
		}
		if amount != nil && amount.Sign() <= 0 {
			return nil, apperr.Validation("donation amount must be positive")
		}
		return amount, nil
	default:
		return nil, apperr.Validation("transaction type must be donation or purchase")
	}
}

// ProofUpload carries the raw proof artifact attached to a submission.
type ProofUpload struct {
	Data []byte
	Meta proof.Metadata
}

// Submit records a claimed payment in pending state. Purchases always
// require a proof artifact; donations require one only when configured.
// The proof is validated locally (size, type) before anything is stored.
// On success the idea owner is notified and every cached view of the idea
// is invalidated so the pending transaction shows up.
func (s *TransactionService) Submit(ctx context.Context, ideaID, payerID string, txType domain.TransactionType, amount *decimal.Decimal, artifact *ProofUpload) (*domain.Transaction, error) {
	if payerID == "" {
		return nil, apperr.Validation("a signed-in user is required to submit a payment")
	}
	idea, err := repo.GetIdea(ctx, s.DB, ideaID)
	if err != nil {
		return nil, err
	}
	amt, err := s.resolveAmount(idea, txType, amount)
	if err != nil {
		return nil, err
	}
	if txType == domain.TransactionDonation && amt == nil {
		return nil, apperr.Validation("donation amount is required on submission")
	}

	needProof := txType == domain.TransactionPurchase || s.DonationProofRequired
	if needProof && (artifact == nil || len(artifact.Data) == 0) {
		return nil, apperr.Validation("a payment proof is required")
	}

	var ref, url string
	if artifact != nil && len(artifact.Data) > 0 {
		if err := proof.Validate(artifact.Data, artifact.Meta); err != nil {
			return nil, err
		}
		stored, err := s.Proofs.Upload(ctx, artifact.Data, artifact.Meta)
		if err != nil {
			return nil, err
		}
		ref, url = stored.Ref, stored.URL
	}

	seq := s.Cache.BeginWrite(entityKey(ideaID))
	tx, err := repo.CreateTransaction(ctx, s.DB, ideaID, payerID, txType, *amt, ref, url)
	if err != nil {
		return nil, err
	}

	eventType := notify.TypeNewDonation
	if txType == domain.TransactionPurchase {
		eventType = notify.TypeNewPurchase
	}
	s.Notify.Enqueue(ctx, idea.OwnerID, payerID, eventType, map[string]string{
		"idea_id":        ideaID,
		"idea_title":     idea.Title,
		"transaction_id": tx.ID,
		"type":           string(txType),
		"amount":         amt.StringFixed(2),
	})

	s.Cache.CommitWrite(entityKey(ideaID), seq, func() {
		invalidateIdea(s.Cache, ideaID)
	})
	return tx, nil
}

// SetStatus settles a pending transaction as confirmed or rejected. Only
// the idea owner or an administrator may settle, and terminal states never
// change again. Confirmation re-gates the idea for the payer on their next
// read, because the detail and viewer caches are invalidated here.
func (s *TransactionService) SetStatus(ctx context.Context, txID, actorID string, isAdmin bool, status domain.TransactionStatus) error {
	if !status.Terminal() {
		return apperr.Validation("status must be confirmed or rejected")
	}
	tx, err := repo.GetTransaction(ctx, s.DB, txID)
	if err != nil {
		return err
	}
	idea, err := repo.GetIdea(ctx, s.DB, tx.IdeaID)
	if err != nil {
		return err
	}
	if !isAdmin && idea.OwnerID != actorID {
		return apperr.Constraint("only the idea owner may settle this transaction")
	}
	if tx.Status.Terminal() {
		return apperr.Constraint("transaction %s is already settled", txID)
	}

	seq := s.Cache.BeginWrite(entityKey(tx.IdeaID))
	if err := repo.UpdateTransactionStatus(ctx, s.DB, txID, status); err != nil {
		return err
	}
	s.Cache.CommitWrite(entityKey(tx.IdeaID), seq, func() {
		invalidateIdea(s.Cache, tx.IdeaID)
		invalidateViewer(s.Cache, tx.PayerID)
	})
	return nil
}

// ListForIdea returns ideaID's transactions for its owner or an admin,
// served through a realtime cache signature so the review queue stays
// close to live.
func (s *TransactionService) ListForIdea(ctx context.Context, ideaID, actorID string, isAdmin bool) ([]domain.Transaction, error) {
	idea, err := repo.GetIdea(ctx, s.DB, ideaID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && idea.OwnerID != actorID {
		return nil, apperr.Constraint("only the idea owner may list its transactions")
	}
	v, err := s.Cache.Read(ctx, sigIdeaTransactions(ideaID), cache.Realtime, func(ctx context.Context) (any, error) {
		return repo.ListTransactions(ctx, s.DB, ideaID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Transaction), nil
}

// Supporters returns the payer ids with a non-rejected transaction on
// ideaID. Pending rows count: the supporter badge is social proof, while
// content unlock separately requires a confirmed purchase.
func (s *TransactionService) Supporters(ctx context.Context, ideaID string) ([]string, error) {
	if _, err := repo.GetIdea(ctx, s.DB, ideaID); err != nil {
		return nil, err
	}
	v, err := s.Cache.Read(ctx, sigSupporters(ideaID), cache.Realtime, func(ctx context.Context) (any, error) {
		return repo.ListSupporterIDs(ctx, s.DB, ideaID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
