package core

import (
	"context"
	"fmt"

	"growvertising/pkg/domain"
)

// LikeMonotonicRule blocks updates that would decrease a like counter.
// Like totals only ever grow; there is no unlike operation.
func LikeMonotonicRule() domain.Rule {
	return likeMonotonicRule{}
}

type likeMonotonicRule struct{}

func (likeMonotonicRule) Name() string { return "like_monotonic" }

func (likeMonotonicRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Action != domain.ActionUpdate {
			continue
		}
		switch change.Entity {
		case domain.EntityUpload:
			before, okB := change.Before.(domain.Upload)
			after, okA := change.After.(domain.Upload)
			if okB && okA && after.Likes < before.Likes {
				res.Violations = append(res.Violations, likeViolation(domain.EntityUpload, after.ID, before.Likes, after.Likes))
			}
		case domain.EntityComment:
			before, okB := change.Before.(domain.Comment)
			after, okA := change.After.(domain.Comment)
			if okB && okA && after.Likes < before.Likes {
				res.Violations = append(res.Violations, likeViolation(domain.EntityComment, after.ID, before.Likes, after.Likes))
			}
		}
	}
	return res, nil
}

func likeViolation(entity domain.EntityType, id string, before, after int) domain.Violation {
	return domain.Violation{
		Rule:     "like_monotonic",
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("%s %s like count cannot decrease from %d to %d", entity, id, before, after),
		Entity:   entity,
		EntityID: id,
	}
}
