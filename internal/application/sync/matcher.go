package sync

import (
	"strings"
	"time"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// Match score tiers, strongest identity signal first. The weak temporal
// fallback only applies inside a tighter window around the review date.
const (
	scoreCustomerID    = 100
	scoreCustomerEmail = 90
	scoreReviewerEmail = 80
	scoreReviewerName  = 60
	scoreProximity     = 40

	proximityMin = 7 * 24 * time.Hour
	proximityMax = 60 * 24 * time.Hour
)

// candidateIndex maps product and variation remote IDs to the orders that
// contain them. Built once per review page from the lightweight match
// projection so matching cost stays bounded regardless of order volume.
type candidateIndex struct {
	byProduct map[int64][]*domain.OrderMatchCandidate
}

func buildCandidateIndex(candidates []domain.OrderMatchCandidate) *candidateIndex {
	idx := &candidateIndex{byProduct: make(map[int64][]*domain.OrderMatchCandidate)}
	for i := range candidates {
		c := &candidates[i]
		seen := make(map[int64]struct{}, len(c.ItemProductIDs)+len(c.ItemVariationIDs))
		for _, id := range c.ItemProductIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			idx.byProduct[id] = append(idx.byProduct[id], c)
		}
		for _, id := range c.ItemVariationIDs {
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			idx.byProduct[id] = append(idx.byProduct[id], c)
		}
	}
	return idx
}

// lookup returns the candidate orders containing the product
func (idx *candidateIndex) lookup(productRemoteID int64) []*domain.OrderMatchCandidate {
	return idx.byProduct[productRemoteID]
}

// matchResult is the outcome of scoring one review against its candidates
type matchResult struct {
	OrderRemoteID int64
	Score         int
}

// matchReview scores the review against candidate orders for its product and
// returns the best match, or nil when no candidate passes any tier. The
// resolved customer (looked up by the reviewer's email) may be nil. Ties at
// equal score break by smallest date distance between order and review.
func matchReview(
	review *domain.Review,
	idx *candidateIndex,
	resolvedCustomer *domain.Customer,
	lookback time.Duration,
) *matchResult {
	candidates := idx.lookup(review.ProductRemoteID)
	if len(candidates) == 0 {
		return nil
	}

	reviewerEmail := domain.NormalizeEmail(review.ReviewerEmail)
	var customerEmail string
	if resolvedCustomer != nil {
		customerEmail = domain.NormalizeEmail(resolvedCustomer.Email)
	}

	var best *matchResult
	var bestDistance time.Duration
	for _, c := range candidates {
		distance := review.RemoteCreatedAt.Sub(c.RemoteCreatedAt)
		if distance < 0 || distance > lookback {
			continue
		}

		score := scoreCandidate(review, c, resolvedCustomer, reviewerEmail, customerEmail, distance)
		if score == 0 {
			continue
		}
		if best == nil || score > best.Score ||
			(score == best.Score && distance < bestDistance) {
			best = &matchResult{OrderRemoteID: c.RemoteID, Score: score}
			bestDistance = distance
		}
	}
	return best
}

// scoreCandidate applies the tiered rules to one candidate order
func scoreCandidate(
	review *domain.Review,
	c *domain.OrderMatchCandidate,
	resolvedCustomer *domain.Customer,
	reviewerEmail, customerEmail string,
	distance time.Duration,
) int {
	orderEmail := domain.NormalizeEmail(c.BillingEmail)

	if resolvedCustomer != nil && c.CustomerRemoteID != nil &&
		*c.CustomerRemoteID == resolvedCustomer.RemoteID {
		return scoreCustomerID
	}
	if customerEmail != "" && orderEmail != "" && orderEmail == customerEmail {
		return scoreCustomerEmail
	}
	if reviewerEmail != "" && orderEmail != "" && orderEmail == reviewerEmail {
		return scoreReviewerEmail
	}
	if nameMatches(review.ReviewerName, c.BillingFirstName, c.BillingLastName) {
		return scoreReviewerName
	}
	if distance >= proximityMin && distance <= proximityMax {
		return scoreProximity
	}
	return 0
}

// nameMatches reports whether the reviewer's display name plausibly matches
// the billing name: exact full-name match, both name parts present as
// substrings, or the last name equal to any token of the reviewer name.
func nameMatches(reviewerName, firstName, lastName string) bool {
	reviewer := strings.ToLower(strings.TrimSpace(reviewerName))
	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))
	if reviewer == "" || (first == "" && last == "") {
		return false
	}

	full := strings.TrimSpace(first + " " + last)
	if full != "" && reviewer == full {
		return true
	}
	if first != "" && last != "" &&
		strings.Contains(reviewer, first) && strings.Contains(reviewer, last) {
		return true
	}
	if last != "" {
		for _, token := range strings.Fields(reviewer) {
			if token == last {
				return true
			}
		}
	}
	return false
}
