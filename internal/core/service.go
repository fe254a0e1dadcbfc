package core

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"growvertising/pkg/domain"
)

// Service exposes the transactional session operations: the plant lifecycle,
// the community feed, campaigns, and engagement counters.
type Service struct {
	store   domain.SessionStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	seedSamples bool
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder installs a metrics recorder observing every operation.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer installs a tracer wrapping every operation in a span.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder installs an audit recorder for mutation trails.
func WithAuditRecorder(audit AuditRecorder) ServiceOption {
	return func(s *Service) {
		if audit != nil {
			s.audit = audit
		}
	}
}

// WithClock overrides the service clock. Intended for tests.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRandSource overrides the randomness source used for progress rolls and
// baseline counters. Intended for tests needing determinism.
func WithRandSource(src rand.Source) ServiceOption {
	return func(s *Service) {
		if src != nil {
			s.rng = rand.New(src)
		}
	}
}

// WithoutSampleData skips installing the sample feed content and baseline
// counters on first construction.
func WithoutSampleData() ServiceOption {
	return func(s *Service) {
		s.seedSamples = false
	}
}

// NewService constructs a service backed by the supplied store. Sample feed
// content is installed once per store lifetime unless disabled.
func NewService(store domain.SessionStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:       store,
		logger:      noopLogger{},
		metrics:     noopMetricsRecorder{},
		tracer:      noopTracer{},
		audit:       noopAuditRecorder{},
		clock:       ClockFunc(func() time.Time { return time.Now().UTC() }),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		seedSamples: true,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if clocked, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
		clocked.SetNowFunc(svc.clock.Now)
	}
	if svc.seedSamples {
		svc.installSampleData(context.Background())
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.SessionStore {
	return s.store
}

// randRange returns a uniform integer in [lo, hi].
func (s *Service) randRange(lo, hi int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return lo + s.rng.Intn(hi-lo+1)
}

type sampleCampaign struct {
	name        string
	description string
	sponsor     string
	imageRef    string
	investment  float64
}

var sampleCampaigns = []sampleCampaign{
	{
		name:        "Grow Your Greens",
		description: "Promoting home vegetable gardening.",
		sponsor:     "OrganicFoods Co.",
		imageRef:    "https://i.imgur.com/U4A0lRQ.jpg",
		investment:  15000,
	},
	{
		name:        "From Message to Meal",
		description: "Turning ad space into food production.",
		sponsor:     "EcoEats",
		imageRef:    "https://i.imgur.com/GQhuf0U.jpg",
		investment:  12000,
	},
	{
		name:        "Food Waste Awareness",
		description: "Highlighting reducing food waste.",
		sponsor:     "WasteNot Foundation",
		imageRef:    "https://i.imgur.com/XY5NJJx.jpg",
		investment:  8000,
	},
	{
		name:        "Urban Farming Revolution",
		description: "Transforming city spaces.",
		sponsor:     "CityGrow Initiative",
		imageRef:    "https://i.imgur.com/U4A0lRQ.jpg",
		investment:  10000,
	},
}

type sampleComment struct {
	author    string
	text      string
	likes     int
	createdAt time.Time
}

var sampleComments = []sampleComment{
	{author: "GreenThumb", text: "Harvested!", likes: 12, createdAt: time.Date(2025, 4, 25, 14, 32, 0, 0, time.UTC)},
	{author: "PlantLover", text: "Yellowing basil?", likes: 8, createdAt: time.Date(2025, 4, 26, 9, 15, 0, 0, time.UTC)},
	{author: "UrbanFarmer", text: "Garden progress!", likes: 15, createdAt: time.Date(2025, 4, 27, 16, 45, 0, 0, time.UTC)},
}

// installSampleData seeds the campaign catalog, starter discussion, and
// baseline community counters. A persisted flag keeps the seed from being
// applied twice even across durable restarts.
func (s *Service) installSampleData(ctx context.Context) {
	plantsGrown := s.randRange(1000, 1500)
	co2Offset := s.randRange(300, 500)
	seedKits := s.randRange(700, 1000)

	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if tx.Seeded() {
			return nil
		}
		for _, c := range sampleCampaigns {
			if _, err := tx.CreateCampaign(domain.Campaign{
				Name:        c.name,
				Description: c.description,
				Sponsor:     c.sponsor,
				ImageRef:    c.imageRef,
				Investment:  c.investment,
			}); err != nil {
				return err
			}
		}
		for _, c := range sampleComments {
			comment := domain.Comment{
				Author: c.author,
				Text:   c.text,
				Likes:  c.likes,
			}
			comment.CreatedAt = c.createdAt
			if _, err := tx.CreateComment(comment); err != nil {
				return err
			}
		}
		tx.AddPlantsGrown(plantsGrown)
		tx.AddCO2Offset(co2Offset)
		tx.AddSeedKits(seedKits)
		tx.MarkSeeded()
		return nil
	})
	if err != nil {
		s.logger.Error("sample data installation failed", "error", err)
		return
	}
	s.logger.Info("sample data installed",
		"campaigns", len(sampleCampaigns),
		"comments", len(sampleComments),
	)
}

// Counters returns the cumulative engagement totals.
func (s *Service) Counters() EngagementCounters {
	return s.store.Counters()
}
