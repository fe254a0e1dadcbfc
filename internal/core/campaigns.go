package core

import (
	"context"
	"strings"

	"growvertising/pkg/domain"
)

// CreateCampaign registers a sponsored billboard campaign.
func (s *Service) CreateCampaign(ctx context.Context, campaign Campaign) (Campaign, Result, error) {
	campaign.Name = strings.TrimSpace(campaign.Name)
	if campaign.Name == "" {
		return Campaign{}, Result{}, domain.ValidationError{Field: "name", Reason: "campaign name must not be empty"}
	}
	if campaign.Sponsor == "" {
		return Campaign{}, Result{}, domain.ValidationError{Field: "sponsor", Reason: "campaign sponsor must not be empty"}
	}
	if campaign.Investment < 0 {
		return Campaign{}, Result{}, domain.ValidationError{Field: "investment", Reason: "investment cannot be negative"}
	}

	var created Campaign
	var res Result
	err := s.instrument(ctx, "create_campaign", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateCampaign(campaign)
			return txErr
		})
		return created.ID, err
	})
	return created, res, err
}

// ListCampaigns returns every campaign in creation order.
func (s *Service) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign
	err := s.store.View(ctx, func(view domain.RuleView) error {
		campaigns = view.ListCampaigns()
		return nil
	})
	return campaigns, err
}

// RequestSeedKit records a seed-kit claim against a campaign, advancing the
// community seed-kit counter.
func (s *Service) RequestSeedKit(ctx context.Context, campaignID string) (int, Result, error) {
	var total int
	var res Result
	err := s.instrument(ctx, "request_seed_kit", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindCampaign(campaignID); !ok {
				return domain.NotFoundError{Entity: domain.EntityCampaign, ID: campaignID}
			}
			total = tx.AddSeedKits(1)
			return nil
		})
		return campaignID, err
	})
	return total, res, err
}
