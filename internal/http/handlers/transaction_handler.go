// Transaction HTTP handlers.
//
// This file exposes the REST endpoints for the payment workflow:
//   - GET   /ideas/{id}/payment-code   (build a scannable payment payload)
//   - POST  /ideas/{id}/transactions   (submit a claimed payment, multipart)
//   - GET   /ideas/{id}/transactions   (owner/admin review queue)
//   - GET   /ideas/{id}/supporters     (public supporter badge)
//   - PATCH /transactions/{id}/status  (owner/admin settles pending claims)
//
// Submissions arrive as multipart/form-data because they can carry a proof
// artifact (an image or PDF of the banking receipt). The artifact is
// validated and stored before the pending transaction row is written.
package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ideapool/go-ideas-backend/internal/domain"
	"github.com/ideapool/go-ideas-backend/internal/proof"
	"github.com/ideapool/go-ideas-backend/internal/services"
)

// parseTxType validates the transaction type parameter.
func parseTxType(raw string) (domain.TransactionType, bool) {
	t := domain.TransactionType(strings.TrimSpace(raw))
	switch t {
	case domain.TransactionDonation, domain.TransactionPurchase:
		return t, true
	}
	return "", false
}

// parseAmount parses an optional decimal amount parameter.
func parseAmount(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetPaymentCode builds the scannable payment payload for an idea. The type
// query parameter selects donation or purchase; amount applies to donations
// only (purchases are fixed to the idea price).
func (h *Handlers) GetPaymentCode(c *gin.Context) {
	txType, okType := parseTxType(c.Query("type"))
	if !okType {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be donation or purchase")
		return
	}
	amount, err := parseAmount(c.Query("amount"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount must be a decimal string")
		return
	}

	code, err := h.txSvc.BuildPaymentCode(c.Request.Context(), c.Param("id"), txType, amount)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, code)
}

// SubmitTransaction records a claimed payment in pending state. The request
// is multipart/form-data with fields `type`, `amount` (donations), and an
// optional `proof` file part.
func (h *Handlers) SubmitTransaction(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	txType, okType := parseTxType(c.PostForm("type"))
	if !okType {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be donation or purchase")
		return
	}
	amount, err := parseAmount(c.PostForm("amount"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount must be a decimal string")
		return
	}

	var artifact *services.ProofUpload
	if fh, err := c.FormFile("proof"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "proof file unreadable")
			return
		}
		defer f.Close()
		// Read one byte past the cap so oversize uploads fail validation
		// instead of being silently truncated.
		data, err := io.ReadAll(io.LimitReader(f, proof.MaxSize+1))
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "proof file unreadable")
			return
		}
		artifact = &services.ProofUpload{
			Data: data,
			Meta: proof.Metadata{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
			},
		}
	}

	tx, err := h.txSvc.Submit(c.Request.Context(), c.Param("id"), uid, txType, amount, artifact)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, tx)
}

// ListTransactions returns the idea's transaction review queue for its owner
// or an admin.
func (h *Handlers) ListTransactions(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	list, err := h.txSvc.ListForIdea(c.Request.Context(), c.Param("id"), uid, isAdmin(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"transactions": list})
}

// ListSupporters returns the payer ids backing an idea. Pending claims count.
func (h *Handlers) ListSupporters(c *gin.Context) {
	users, err := h.txSvc.Supporters(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"users": users})
}

// SetTransactionStatusRequest is the JSON payload for settling a transaction.
type SetTransactionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed rejected"`
}

// SetTransactionStatus settles a pending transaction as confirmed or
// rejected. Only the idea owner or an admin may settle.
func (h *Handlers) SetTransactionStatus(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req SetTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be confirmed or rejected")
		return
	}
	status := domain.TransactionStatus(req.Status)
	if err := h.txSvc.SetStatus(c.Request.Context(), c.Param("id"), uid, isAdmin(c), status); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
