package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MatchStatus records the outcome of review-to-order matching
type MatchStatus string

const (
	// MatchStatusMatched indicates a best-candidate order was linked
	MatchStatusMatched MatchStatus = "matched"
	// MatchStatusUnmatched indicates no candidate passed the heuristic
	MatchStatusUnmatched MatchStatus = "unmatched"
)

// Review is the local projection of a remote product review.
// OrderRemoteID is populated by the scored matching heuristic; the remote
// platform has no review-to-order foreign key.
type Review struct {
	TenantID        uuid.UUID
	RemoteID        int64
	ProductRemoteID int64

	Rating  int
	Content string
	Status  string

	ReviewerName  string
	ReviewerEmail string

	CustomerRemoteID *int64
	OrderRemoteID    *int64
	MatchStatus      MatchStatus

	RawPayload json.RawMessage

	RemoteCreatedAt time.Time
}
