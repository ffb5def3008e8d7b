package sync

import (
	"encoding/json"
	"time"
)

// ---------------------------------------------------------------------------
// Wire Records
//
// Typed shapes of the remote platform's JSON records. Validation tags are
// enforced by the schema validator; the original payload is preserved next
// to the decoded struct so unmapped fields survive the round trip.
// ---------------------------------------------------------------------------

// remoteTimeLayout is the platform's date format (local time, no zone)
const remoteTimeLayout = "2006-01-02T15:04:05"

// ParseRemoteTime parses a platform timestamp, accepting the platform's
// zoneless layout and RFC3339. The zero time is returned for empty input.
func ParseRemoteTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(remoteTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// BillingRecord is the billing block embedded in an order record
type BillingRecord struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Country   string `json:"country"`
}

// LineItemRecord is one purchased line on an order record
type LineItemRecord struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	VariationID int64  `json:"variation_id" validate:"gte=0"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	Name        string `json:"name"`
	Total       string `json:"total"`
}

// OrderRecord is the wire shape of a remote order
type OrderRecord struct {
	ID           int64            `json:"id" validate:"required,gt=0"`
	Status       string           `json:"status" validate:"required"`
	Currency     string           `json:"currency" validate:"required,len=3"`
	Total        string           `json:"total" validate:"required"`
	CustomerID   int64            `json:"customer_id" validate:"gte=0"`
	Billing      BillingRecord    `json:"billing"`
	LineItems    []LineItemRecord `json:"line_items" validate:"dive"`
	DateCreated  string           `json:"date_created" validate:"required"`
	DateModified string           `json:"date_modified"`

	// Raw preserves the original record; populated by the validator
	Raw json.RawMessage `json:"-"`
}

// ProductRecord is the wire shape of a remote product.
// Price is a string on the wire; empty means "not priced at this level" and
// must map to a nil price, never zero. StockQuantity nil means stock tracking
// is disabled, distinct from an explicit zero.
type ProductRecord struct {
	ID            int64  `json:"id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required"`
	SKU           string `json:"sku"`
	Type          string `json:"type" validate:"required,oneof=simple variable"`
	Price         string `json:"price"`
	StockStatus   string `json:"stock_status" validate:"omitempty,oneof=instock outofstock onbackorder"`
	StockQuantity *int   `json:"stock_quantity"`
	DateCreated   string `json:"date_created"`
	DateModified  string `json:"date_modified"`

	Raw json.RawMessage `json:"-"`
}

// VariationRecord is the wire shape of a remote product variation
type VariationRecord struct {
	ID            int64  `json:"id" validate:"required,gt=0"`
	SKU           string `json:"sku"`
	Price         string `json:"price"`
	StockStatus   string `json:"stock_status" validate:"omitempty,oneof=instock outofstock onbackorder"`
	StockQuantity *int   `json:"stock_quantity"`
	DateCreated   string `json:"date_created"`
	DateModified  string `json:"date_modified"`

	Raw json.RawMessage `json:"-"`
}

// ReviewRecord is the wire shape of a remote product review
type ReviewRecord struct {
	ID            int64  `json:"id" validate:"required,gt=0"`
	ProductID     int64  `json:"product_id" validate:"required,gt=0"`
	Rating        int    `json:"rating" validate:"gte=0,lte=5"`
	Review        string `json:"review"`
	Status        string `json:"status"`
	ReviewerName  string `json:"reviewer"`
	ReviewerEmail string `json:"reviewer_email" validate:"omitempty,email"`
	DateCreated   string `json:"date_created" validate:"required"`

	Raw json.RawMessage `json:"-"`
}

// MapStockStatus converts the wire stock status to the domain enum.
// The wire uses bare words; the domain uses snake_case.
func MapStockStatus(wire string) StockStatus {
	switch wire {
	case "outofstock":
		return StockStatusOutOfStock
	case "onbackorder":
		return StockStatusOnBackorder
	default:
		return StockStatusInStock
	}
}

// ---------------------------------------------------------------------------
// Validator Port
// ---------------------------------------------------------------------------

// ValidationIssue is one structural problem found in a raw record
type ValidationIssue struct {
	Field   string
	Message string
}

// RecordValidator validates raw platform records into typed wire records.
// Implementations never panic on malformed input; a non-empty issue slice
// marks the record invalid and it is skipped, never fatal to the batch.
type RecordValidator interface {
	ValidateOrder(raw json.RawMessage) (*OrderRecord, []ValidationIssue)
	ValidateProduct(raw json.RawMessage) (*ProductRecord, []ValidationIssue)
	ValidateVariation(raw json.RawMessage) (*VariationRecord, []ValidationIssue)
	ValidateReview(raw json.RawMessage) (*ReviewRecord, []ValidationIssue)
}
