// Package scoring computes the denormalized product listing scores stored on
// each product row. Both scores are pure functions of the product projection.
package scoring

import (
	"strings"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// Name lengths that search result pages render without truncation
const (
	seoNameMinLength = 10
	seoNameMaxLength = 70
)

// Calculator implements the ScoreCalculator port with keyword and
// completeness rules.
type Calculator struct{}

// NewCalculator creates a Calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// SEOScore scores listing quality from 0 to 100. Listings earn points for a
// descriptive name, a SKU, a price and tracked stock.
func (c *Calculator) SEOScore(p *domain.Product) int {
	score := 0

	name := strings.TrimSpace(p.Name)
	if name != "" {
		score += 25
		if len(name) >= seoNameMinLength {
			score += 15
		}
		if len(name) <= seoNameMaxLength {
			score += 10
		}
	}
	if strings.TrimSpace(p.SKU) != "" {
		score += 20
	}
	if p.Price != nil && !p.Price.IsNegative() {
		score += 20
	}
	if p.StockQuantity != nil {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// ComplianceScore scores marketplace compliance from 0 to 100, deducting for
// missing required listing data. Variable parents are not penalized for a
// missing price since their variations carry it.
func (c *Calculator) ComplianceScore(p *domain.Product) int {
	score := 100

	if strings.TrimSpace(p.Name) == "" {
		score -= 40
	}
	if strings.TrimSpace(p.SKU) == "" {
		score -= 25
	}
	if p.Price == nil && p.Type != domain.ProductTypeVariable {
		score -= 25
	}
	if p.StockStatus == domain.StockStatusOnBackorder {
		score -= 10
	}

	if score < 0 {
		score = 0
	}
	return score
}

var _ domain.ScoreCalculator = (*Calculator)(nil)
