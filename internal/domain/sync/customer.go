package sync

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is the local projection of a remote customer. The email is the
// case-insensitive lookup key; OrdersCount is a denormalized aggregate
// maintained by the order sync engine, not by a direct customer sync.
type Customer struct {
	TenantID  uuid.UUID
	RemoteID  int64
	Email     string
	FirstName string
	LastName  string

	OrdersCount int

	RemoteCreatedAt time.Time
}

// NormalizeEmail lowercases an email and strips any "+suffix" from the local
// part, so jane+promo@x.com and Jane@x.com compare equal.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	return local + domain
}

// SyncCursor tracks incremental progress per (tenant, entity type). It is
// written only after a sync completes successfully.
type SyncCursor struct {
	TenantID     uuid.UUID
	EntityType   EntityType
	LastSyncedAt time.Time
}
