// Idempotency persistence model backing safe-retry semantics on unsafe
// HTTP endpoints. A record ties an (user, scope, key) tuple to the entity
// a previous successful request produced, within a TTL window.
package domain

import "time"

// Idempotency stores the outcome of a previously completed unsafe request.
// Scope namespaces keys per operation target (e.g. an idea id), so the same
// client key can be reused safely across different resources.
type Idempotency struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_idem_user_scope_key"`
	Scope     string    `json:"scope"      gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_user_scope_key"`
	Key       string    `json:"key"        gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_user_scope_key"`
	RefID     string    `json:"ref_id"     gorm:"type:char(36)"`
	Status    int       `json:"status"     gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

// TableName returns the database table name for Idempotency.
func (Idempotency) TableName() string { return "idempotency_keys" }
