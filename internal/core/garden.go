package core

import (
	"context"
	"strings"
	"time"

	"growvertising/pkg/domain"
)

// Seed progress for a new plant falls in [seedProgressMin, seedProgressMax).
const (
	seedProgressMin = 5
	seedProgressMax = 15
)

// StartGrowing registers a new plant in the growing stage with a small random
// head start on progress.
func (s *Service) StartGrowing(ctx context.Context, species domain.Species, plantedAt time.Time, notes string) (Plant, Result, error) {
	if !species.Valid() {
		return Plant{}, Result{}, domain.ValidationError{Field: "species", Reason: "unknown species " + string(species)}
	}
	if plantedAt.IsZero() {
		plantedAt = s.clock.Now()
	}
	progress := s.randRange(seedProgressMin, seedProgressMax-1)

	var created Plant
	var res Result
	err := s.instrument(ctx, "start_growing", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreatePlant(domain.Plant{
				Species:   species,
				Stage:     domain.StageGrowing,
				Progress:  progress,
				PlantedAt: plantedAt,
				Notes:     strings.TrimSpace(notes),
			})
			return txErr
		})
		return created.ID, err
	})
	return created, res, err
}

// AdvanceProgress adds a growth increment onto a plant, clamping at 100.
func (s *Service) AdvanceProgress(ctx context.Context, id string, delta int) (Plant, Result, error) {
	if delta <= 0 {
		return Plant{}, Result{}, domain.ValidationError{Field: "delta", Reason: "progress delta must be positive"}
	}

	var updated Plant
	var res Result
	err := s.instrument(ctx, "advance_progress", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdatePlant(id, func(p *Plant) error {
				if p.Stage != domain.StageGrowing {
					return domain.ValidationError{Field: "stage", Reason: "plant " + id + " is no longer growing"}
				}
				p.Progress += delta
				if p.Progress > 100 {
					p.Progress = 100
				}
				return nil
			})
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

// Harvest finishes a plant: it leaves the active collection and an immutable
// record joins the harvest history. Success requires progress beyond the
// harvest threshold.
func (s *Service) Harvest(ctx context.Context, id string) (HarvestRecord, Result, error) {
	var record HarvestRecord
	var res Result
	err := s.instrument(ctx, "harvest", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			plant, ok := tx.FindPlant(id)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityPlant, ID: id}
			}
			if err := tx.DeletePlant(id); err != nil {
				return err
			}
			var txErr error
			record, txErr = tx.AppendHarvest(domain.HarvestRecord{
				Species:   plant.Species,
				PlantedAt: plant.PlantedAt,
				Success:   plant.Progress > domain.HarvestSuccessThreshold,
			})
			if txErr != nil {
				return txErr
			}
			tx.AddPlantsGrown(1)
			return nil
		})
		return record.ID, err
	})
	return record, res, err
}

// ListActivePlants returns every plant still growing, in creation order.
func (s *Service) ListActivePlants(ctx context.Context) ([]Plant, error) {
	var plants []Plant
	err := s.store.View(ctx, func(view domain.RuleView) error {
		plants = view.ListPlants()
		return nil
	})
	return plants, err
}

// GetPlant returns a single active plant.
func (s *Service) GetPlant(ctx context.Context, id string) (Plant, error) {
	var plant Plant
	err := s.store.View(ctx, func(view domain.RuleView) error {
		p, ok := view.FindPlant(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityPlant, ID: id}
		}
		plant = p
		return nil
	})
	return plant, err
}

// ListHarvestHistory returns harvest records, most recent harvest first.
func (s *Service) ListHarvestHistory(ctx context.Context) ([]HarvestRecord, error) {
	var records []HarvestRecord
	err := s.store.View(ctx, func(view domain.RuleView) error {
		records = view.ListHarvests()
		return nil
	})
	return records, err
}
