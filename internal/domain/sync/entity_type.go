package sync

// EntityType identifies which remote collection a sync job covers
type EntityType string

const (
	// EntityTypeOrders covers the remote order collection
	EntityTypeOrders EntityType = "orders"
	// EntityTypeProducts covers the remote product collection
	EntityTypeProducts EntityType = "products"
	// EntityTypeReviews covers the remote product review collection
	EntityTypeReviews EntityType = "reviews"
)

// IsValid returns true if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeOrders, EntityTypeProducts, EntityTypeReviews:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}
