package core

import (
	"context"
	"errors"
	"testing"

	"growvertising/pkg/domain"
)

func TestCreateCampaignValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var validation domain.ValidationError
	if _, _, err := svc.CreateCampaign(ctx, Campaign{Sponsor: "EcoEats", Investment: 100}); !errors.As(err, &validation) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}
	if _, _, err := svc.CreateCampaign(ctx, Campaign{Name: "Greens", Investment: 100}); !errors.As(err, &validation) {
		t.Fatalf("expected validation error for missing sponsor, got %v", err)
	}
	if _, _, err := svc.CreateCampaign(ctx, Campaign{Name: "Greens", Sponsor: "EcoEats", Investment: -1}); !errors.As(err, &validation) {
		t.Fatalf("expected validation error for negative investment, got %v", err)
	}

	created, _, err := svc.CreateCampaign(ctx, Campaign{Name: "Greens", Sponsor: "EcoEats", Investment: 5000})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned campaign id")
	}

	campaigns, err := svc.ListCampaigns(ctx)
	if err != nil {
		t.Fatalf("list campaigns: %v", err)
	}
	if len(campaigns) != 1 {
		t.Fatalf("expected one campaign, got %d", len(campaigns))
	}
}

func TestRequestSeedKitCountsClaims(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	campaign, _, err := svc.CreateCampaign(ctx, Campaign{Name: "Grow Your Greens", Sponsor: "OrganicFoods Co.", Investment: 15000})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	before := svc.Counters().SeedKits
	total, _, err := svc.RequestSeedKit(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("request seed kit: %v", err)
	}
	if total != before+1 {
		t.Fatalf("expected seed kit total %d, got %d", before+1, total)
	}
	if svc.Counters().SeedKits != before+1 {
		t.Fatalf("counter not persisted: %d", svc.Counters().SeedKits)
	}

	var notFound domain.NotFoundError
	if _, _, err := svc.RequestSeedKit(ctx, "campaign-missing"); !errors.As(err, &notFound) {
		t.Fatalf("expected not found for unknown campaign, got %v", err)
	}
}
