package bom

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bomdomain "github.com/storebridge/backend/internal/domain/bom"
)

// cascade recomputes the effective stock of every BOM-bearing parent that
// references a touched component, so a shared component's depletion shows up
// everywhere it is used. Parents recomputed here are themselves treated as
// touched, with a visited set guarding against reference cycles.
func (s *ConsumptionService) cascade(ctx context.Context, tenantID uuid.UUID, touched []bomdomain.Component) error {
	visited := make(map[string]struct{}, len(touched))
	queue := make([]bomdomain.Component, 0, len(touched))
	for _, c := range touched {
		visited[c.Key()] = struct{}{}
		queue = append(queue, c)
	}

	for len(queue) > 0 {
		component := queue[0]
		queue = queue[1:]

		referencing, err := s.boms.FindReferencing(ctx, tenantID, component)
		if err != nil {
			return fmt.Errorf("find BOMs referencing %s: %w", component.Key(), err)
		}
		for _, bill := range referencing {
			parent := bill.ParentComponent()
			if _, ok := visited[parent.Key()]; ok {
				continue
			}
			visited[parent.Key()] = struct{}{}

			recomputed, err := s.recomputeEffectiveStock(ctx, tenantID, bill)
			if err != nil {
				return err
			}
			if recomputed {
				queue = append(queue, parent)
			}
		}
	}
	return nil
}

// recomputeEffectiveStock derives how many units of the parent assembly its
// components can still build: the minimum over all tracked components of
// floor(componentStock / multiplier). Parents whose components are all
// untracked are left alone.
func (s *ConsumptionService) recomputeEffectiveStock(ctx context.Context, tenantID uuid.UUID, bill *bomdomain.BillOfMaterials) (bool, error) {
	effective := -1
	for _, item := range bill.Items {
		stock, err := s.componentStock(ctx, tenantID, item.Component)
		if err != nil {
			return false, fmt.Errorf("read stock for %s: %w", item.Component.Key(), err)
		}
		if stock == nil {
			continue
		}
		buildable := *stock / item.Quantity
		if effective < 0 || buildable < effective {
			effective = buildable
		}
	}
	if effective < 0 {
		return false, nil
	}

	parent := bill.ParentComponent()
	if err := s.setComponentStock(ctx, tenantID, parent, effective); err != nil {
		return false, fmt.Errorf("write stock for %s: %w", parent.Key(), err)
	}
	if err := s.pushRemoteStock(ctx, tenantID, parent, effective); err != nil {
		return false, fmt.Errorf("push stock for %s: %w", parent.Key(), err)
	}

	s.logger.Debug("effective stock recomputed",
		zap.String("parent", parent.Key()),
		zap.Int("effective", effective),
	)
	return true, nil
}
