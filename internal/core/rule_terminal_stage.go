package core

import (
	"context"
	"fmt"

	"growvertising/pkg/domain"
)

// TerminalStageRule blocks illegal lifecycle transitions on plants. The only
// legal move is growing to harvested; a harvested plant never changes stage.
func TerminalStageRule() domain.Rule {
	return terminalStageRule{}
}

type terminalStageRule struct{}

var validPlantStages = map[domain.PlantStage]struct{}{
	domain.StageGrowing:   {},
	domain.StageHarvested: {},
}

func (terminalStageRule) Name() string { return "terminal_stage" }

func (terminalStageRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityPlant {
			continue
		}

		after, ok := change.After.(domain.Plant)
		if ok {
			if _, valid := validPlantStages[after.Stage]; !valid {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "terminal_stage",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("plant %s is set to invalid stage %s", after.ID, after.Stage),
					Entity:   domain.EntityPlant,
					EntityID: after.ID,
				})
				continue
			}
		}

		before, ok := change.Before.(domain.Plant)
		if !ok || before.Stage != domain.StageHarvested {
			continue
		}
		if after.Stage != before.Stage {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "terminal_stage",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("cannot move plant %s from terminal stage %s to %s", before.ID, before.Stage, after.Stage),
				Entity:   domain.EntityPlant,
				EntityID: before.ID,
			})
		}
	}
	return res, nil
}
