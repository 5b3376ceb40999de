// Package gate decides, per idea and per viewer, which content fields are
// visible. It is a pure total function over (idea state, viewer
// relationship): no storage access, no caching. Callers must re-derive the
// relationship whenever the idea's transaction list changes, because
// confirmation is an asynchronous event initiated by a different user.
//
// Rule: a field is hidden only when ALL of the following hold: the idea is
// paid, the field is in its hidden set, the viewer is not the owner, and
// the viewer holds no confirmed purchase on the idea. Ownership and a
// confirmed purchase are independent escape hatches, not additive
// requirements. An empty hidden set on a paid idea hides nothing, and
// donation-type ideas never hide fields.
package gate

import "github.com/ideapool/go-ideas-backend/internal/domain"

// Relationship captures the viewer's standing toward one idea.
type Relationship struct {
	// IsOwner is true when the viewer created the idea (or is an admin, who
	// is treated as owner for visibility purposes).
	IsOwner bool
	// HasConfirmedPurchase is true when the viewer holds a purchase
	// transaction on the idea with status confirmed. Pending transactions
	// do not count.
	HasConfirmedPurchase bool
}

// FieldVisible reports whether a single field is visible to the viewer.
func FieldVisible(idea *domain.Idea, rel Relationship, f domain.Field) bool {
	if idea.PaymentType != domain.PaymentPaid {
		return true
	}
	if !idea.HiddenFields.Contains(f) {
		return true
	}
	if rel.IsOwner || rel.HasConfirmedPurchase {
		return true
	}
	return false
}

// Visibility evaluates the gate for every gated field and returns the full
// visibility map. Fields outside domain.GatedFields are always visible and
// not present in the map.
func Visibility(idea *domain.Idea, rel Relationship) map[domain.Field]bool {
	m := make(map[domain.Field]bool, len(domain.GatedFields))
	for _, f := range domain.GatedFields {
		m[f] = FieldVisible(idea, rel, f)
	}
	return m
}

// Redact returns a copy of idea with every gated-invisible field blanked
// and the list of fields that were locked. The original is not modified.
func Redact(idea domain.Idea, rel Relationship) (domain.Idea, []domain.Field) {
	var locked []domain.Field
	for _, f := range domain.GatedFields {
		if FieldVisible(&idea, rel, f) {
			continue
		}
		locked = append(locked, f)
		switch f {
		case domain.FieldPain:
			idea.Pain = ""
		case domain.FieldSolution:
			idea.Solution = ""
		case domain.FieldTechnicalBrief:
			idea.TechnicalBrief = ""
		}
	}
	return idea, locked
}
