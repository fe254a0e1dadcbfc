package core

import (
	"context"
	"fmt"

	"growvertising/pkg/domain"
)

// ProgressBoundsRule blocks any plant write whose progress leaves the 0..100 range.
func ProgressBoundsRule() domain.Rule {
	return progressBoundsRule{}
}

type progressBoundsRule struct{}

func (progressBoundsRule) Name() string { return "progress_bounds" }

func (progressBoundsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityPlant {
			continue
		}
		plant, ok := change.After.(domain.Plant)
		if !ok {
			continue
		}
		if plant.Progress < 0 || plant.Progress > 100 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "progress_bounds",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("plant %s has progress %d outside 0..100", plant.ID, plant.Progress),
				Entity:   domain.EntityPlant,
				EntityID: plant.ID,
			})
		}
	}
	return res, nil
}
