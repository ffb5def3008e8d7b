// Package models defines the GORM persistence models and their conversions
// to and from the domain projections.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// OrderModel persists one synced order per (tenant, remote ID). Line items
// and the original remote payload are stored as JSONB; line items are always
// read back for matching and consumption, the raw payload only on demand.
type OrderModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_orders_tenant_remote"`
	RemoteID int64     `gorm:"not null;uniqueIndex:idx_orders_tenant_remote"`

	Status   string          `gorm:"type:varchar(32);not null;index"`
	Total    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency string          `gorm:"type:varchar(3);not null"`

	BillingEmail     string `gorm:"type:varchar(255);index"`
	BillingFirstName string `gorm:"type:varchar(128)"`
	BillingLastName  string `gorm:"type:varchar(128)"`
	BillingCountry   string `gorm:"type:varchar(2)"`

	CustomerRemoteID *int64 `gorm:"index"`

	LineItems  json.RawMessage `gorm:"type:jsonb"`
	RawPayload json.RawMessage `gorm:"type:jsonb"`

	RemoteCreatedAt  time.Time `gorm:"index"`
	RemoteModifiedAt time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (OrderModel) TableName() string { return "orders" }

// orderLineItemRow is the JSONB shape of one stored line item
type orderLineItemRow struct {
	ProductRemoteID   int64           `json:"product_remote_id"`
	VariationRemoteID int64           `json:"variation_remote_id"`
	Quantity          int             `json:"quantity"`
	Name              string          `json:"name"`
	Total             decimal.Decimal `json:"total"`
}

// FromDomain populates the model from a domain order
func (m *OrderModel) FromDomain(o *domain.Order) error {
	rows := make([]orderLineItemRow, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		rows = append(rows, orderLineItemRow{
			ProductRemoteID:   li.ProductRemoteID,
			VariationRemoteID: li.VariationRemoteID,
			Quantity:          li.Quantity,
			Name:              li.Name,
			Total:             li.Total,
		})
	}
	items, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	m.TenantID = o.TenantID
	m.RemoteID = o.RemoteID
	m.Status = string(o.Status)
	m.Total = o.Total
	m.Currency = o.Currency
	m.BillingEmail = o.BillingEmail
	m.BillingFirstName = o.BillingFirstName
	m.BillingLastName = o.BillingLastName
	m.BillingCountry = o.BillingCountry
	m.CustomerRemoteID = o.CustomerRemoteID
	m.LineItems = items
	m.RawPayload = o.RawPayload
	m.RemoteCreatedAt = o.RemoteCreatedAt
	m.RemoteModifiedAt = o.RemoteModifiedAt
	return nil
}

// ToDomain converts the model to a domain order
func (m *OrderModel) ToDomain() (*domain.Order, error) {
	var rows []orderLineItemRow
	if len(m.LineItems) > 0 {
		if err := json.Unmarshal(m.LineItems, &rows); err != nil {
			return nil, err
		}
	}
	items := make([]domain.OrderLineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.OrderLineItem{
			ProductRemoteID:   row.ProductRemoteID,
			VariationRemoteID: row.VariationRemoteID,
			Quantity:          row.Quantity,
			Name:              row.Name,
			Total:             row.Total,
		})
	}

	return &domain.Order{
		TenantID:         m.TenantID,
		RemoteID:         m.RemoteID,
		Status:           domain.OrderStatus(m.Status),
		Total:            m.Total,
		Currency:         m.Currency,
		BillingEmail:     m.BillingEmail,
		BillingFirstName: m.BillingFirstName,
		BillingLastName:  m.BillingLastName,
		BillingCountry:   m.BillingCountry,
		CustomerRemoteID: m.CustomerRemoteID,
		LineItems:        items,
		RawPayload:       m.RawPayload,
		RemoteCreatedAt:  m.RemoteCreatedAt,
		RemoteModifiedAt: m.RemoteModifiedAt,
	}, nil
}

// ProductModel persists one synced product per (tenant, remote ID).
// Price and StockQuantity are nullable on purpose: an empty remote price and
// a disabled stock tracker are distinct from zero values.
type ProductModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_products_tenant_remote"`
	RemoteID int64     `gorm:"not null;uniqueIndex:idx_products_tenant_remote"`

	Name string `gorm:"type:varchar(512);not null"`
	SKU  string `gorm:"type:varchar(128);index"`
	Type string `gorm:"type:varchar(16);not null"`

	Price         *decimal.Decimal `gorm:"type:numeric(14,2)"`
	StockStatus   string           `gorm:"type:varchar(16);not null"`
	StockQuantity *int

	Internal bool `gorm:"not null;default:false"`

	SEOScore        int `gorm:"not null;default:0"`
	ComplianceScore int `gorm:"not null;default:0"`

	RawPayload json.RawMessage `gorm:"type:jsonb"`

	RemoteCreatedAt  time.Time
	RemoteModifiedAt time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (ProductModel) TableName() string { return "products" }

// FromDomain populates the model from a domain product
func (m *ProductModel) FromDomain(p *domain.Product) {
	m.TenantID = p.TenantID
	m.RemoteID = p.RemoteID
	m.Name = p.Name
	m.SKU = p.SKU
	m.Type = string(p.Type)
	m.Price = p.Price
	m.StockStatus = string(p.StockStatus)
	m.StockQuantity = p.StockQuantity
	m.Internal = p.Internal
	m.SEOScore = p.SEOScore
	m.ComplianceScore = p.ComplianceScore
	m.RawPayload = p.RawPayload
	m.RemoteCreatedAt = p.RemoteCreatedAt
	m.RemoteModifiedAt = p.RemoteModifiedAt
}

// ToDomain converts the model to a domain product
func (m *ProductModel) ToDomain() *domain.Product {
	return &domain.Product{
		TenantID:         m.TenantID,
		RemoteID:         m.RemoteID,
		Name:             m.Name,
		SKU:              m.SKU,
		Type:             domain.ProductType(m.Type),
		Price:            m.Price,
		StockStatus:      domain.StockStatus(m.StockStatus),
		StockQuantity:    m.StockQuantity,
		Internal:         m.Internal,
		SEOScore:         m.SEOScore,
		ComplianceScore:  m.ComplianceScore,
		RawPayload:       m.RawPayload,
		RemoteCreatedAt:  m.RemoteCreatedAt,
		RemoteModifiedAt: m.RemoteModifiedAt,
	}
}

// VariationModel persists one product variation per (tenant, remote ID)
type VariationModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_variations_tenant_remote"`
	RemoteID        int64     `gorm:"not null;uniqueIndex:idx_variations_tenant_remote"`
	ProductRemoteID int64     `gorm:"not null;index"`

	SKU           string           `gorm:"type:varchar(128)"`
	Price         *decimal.Decimal `gorm:"type:numeric(14,2)"`
	StockStatus   string           `gorm:"type:varchar(16);not null"`
	StockQuantity *int

	RawPayload json.RawMessage `gorm:"type:jsonb"`

	RemoteCreatedAt  time.Time
	RemoteModifiedAt time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (VariationModel) TableName() string { return "product_variations" }

// FromDomain populates the model from a domain variation
func (m *VariationModel) FromDomain(v *domain.ProductVariation) {
	m.TenantID = v.TenantID
	m.RemoteID = v.RemoteID
	m.ProductRemoteID = v.ProductRemoteID
	m.SKU = v.SKU
	m.Price = v.Price
	m.StockStatus = string(v.StockStatus)
	m.StockQuantity = v.StockQuantity
	m.RawPayload = v.RawPayload
	m.RemoteCreatedAt = v.RemoteCreatedAt
	m.RemoteModifiedAt = v.RemoteModifiedAt
}

// ToDomain converts the model to a domain variation
func (m *VariationModel) ToDomain() *domain.ProductVariation {
	return &domain.ProductVariation{
		TenantID:         m.TenantID,
		RemoteID:         m.RemoteID,
		ProductRemoteID:  m.ProductRemoteID,
		SKU:              m.SKU,
		Price:            m.Price,
		StockStatus:      domain.StockStatus(m.StockStatus),
		StockQuantity:    m.StockQuantity,
		RawPayload:       m.RawPayload,
		RemoteCreatedAt:  m.RemoteCreatedAt,
		RemoteModifiedAt: m.RemoteModifiedAt,
	}
}

// ReviewModel persists one synced review per (tenant, remote ID)
type ReviewModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_tenant_remote"`
	RemoteID        int64     `gorm:"not null;uniqueIndex:idx_reviews_tenant_remote"`
	ProductRemoteID int64     `gorm:"not null;index"`

	Rating  int    `gorm:"not null"`
	Content string `gorm:"type:text"`
	Status  string `gorm:"type:varchar(32)"`

	ReviewerName  string `gorm:"type:varchar(255)"`
	ReviewerEmail string `gorm:"type:varchar(255)"`

	CustomerRemoteID *int64
	OrderRemoteID    *int64
	MatchStatus      string `gorm:"type:varchar(16);not null"`

	RawPayload json.RawMessage `gorm:"type:jsonb"`

	RemoteCreatedAt time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (ReviewModel) TableName() string { return "reviews" }

// FromDomain populates the model from a domain review
func (m *ReviewModel) FromDomain(r *domain.Review) {
	m.TenantID = r.TenantID
	m.RemoteID = r.RemoteID
	m.ProductRemoteID = r.ProductRemoteID
	m.Rating = r.Rating
	m.Content = r.Content
	m.Status = r.Status
	m.ReviewerName = r.ReviewerName
	m.ReviewerEmail = r.ReviewerEmail
	m.CustomerRemoteID = r.CustomerRemoteID
	m.OrderRemoteID = r.OrderRemoteID
	m.MatchStatus = string(r.MatchStatus)
	m.RawPayload = r.RawPayload
	m.RemoteCreatedAt = r.RemoteCreatedAt
}

// ToDomain converts the model to a domain review
func (m *ReviewModel) ToDomain() *domain.Review {
	return &domain.Review{
		TenantID:         m.TenantID,
		RemoteID:         m.RemoteID,
		ProductRemoteID:  m.ProductRemoteID,
		Rating:           m.Rating,
		Content:          m.Content,
		Status:           m.Status,
		ReviewerName:     m.ReviewerName,
		ReviewerEmail:    m.ReviewerEmail,
		CustomerRemoteID: m.CustomerRemoteID,
		OrderRemoteID:    m.OrderRemoteID,
		MatchStatus:      domain.MatchStatus(m.MatchStatus),
		RawPayload:       m.RawPayload,
		RemoteCreatedAt:  m.RemoteCreatedAt,
	}
}

// CustomerModel persists one synced customer per (tenant, remote ID)
type CustomerModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_customers_tenant_remote"`
	RemoteID int64     `gorm:"not null;uniqueIndex:idx_customers_tenant_remote"`

	Email     string `gorm:"type:varchar(255);not null;index"`
	FirstName string `gorm:"type:varchar(128)"`
	LastName  string `gorm:"type:varchar(128)"`

	OrdersCount int `gorm:"not null;default:0"`

	RemoteCreatedAt time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (CustomerModel) TableName() string { return "customers" }

// FromDomain populates the model from a domain customer
func (m *CustomerModel) FromDomain(c *domain.Customer) {
	m.TenantID = c.TenantID
	m.RemoteID = c.RemoteID
	m.Email = c.Email
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.OrdersCount = c.OrdersCount
	m.RemoteCreatedAt = c.RemoteCreatedAt
}

// ToDomain converts the model to a domain customer
func (m *CustomerModel) ToDomain() *domain.Customer {
	return &domain.Customer{
		TenantID:        m.TenantID,
		RemoteID:        m.RemoteID,
		Email:           m.Email,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		OrdersCount:     m.OrdersCount,
		RemoteCreatedAt: m.RemoteCreatedAt,
	}
}

// SyncCursorModel persists the incremental cursor per (tenant, entity type)
type SyncCursorModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cursors_tenant_entity"`
	EntityType string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_cursors_tenant_entity"`

	LastSyncedAt time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (SyncCursorModel) TableName() string { return "sync_cursors" }
