package analytics

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"growvertising/pkg/domain"
)

// ROI weights applied to the synthetic series when estimating campaign value.
const (
	engagementWeight = 0.5
	growthWeight     = 10
)

// EngagementTotals are the real counts pulled from session state.
type EngagementTotals struct {
	Uploads      int `json:"uploads"`
	Comments     int `json:"comments"`
	UploadLikes  int `json:"upload_likes"`
	CommentLikes int `json:"comment_likes"`
	PlantsGrown  int `json:"plants_grown"`
	SeedKits     int `json:"seed_kits"`
	CO2OffsetKG  int `json:"co2_offset_kg"`
}

// CampaignMetrics is the derived per-campaign dashboard row. It is
// recomputed on demand and never persisted.
type CampaignMetrics struct {
	Campaign      string    `json:"campaign"`
	Sponsor       string    `json:"sponsor"`
	Investment    float64   `json:"investment"`
	Engagement    []float64 `json:"engagement"`
	Growth        []float64 `json:"growth"`
	EngagementSum float64   `json:"engagement_sum"`
	LastGrowth    float64   `json:"last_growth"`
	Value         float64   `json:"value"`
	ROI           float64   `json:"roi"`
}

// Snapshot is one full aggregation pass: real totals, per-campaign metrics,
// and any recoverable warnings raised while shaping the synthetic series.
type Snapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	SeriesDays  int               `json:"series_days"`
	Totals      EngagementTotals  `json:"totals"`
	Campaigns   []CampaignMetrics `json:"campaigns"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Logger is the minimal structured logging surface the aggregator needs.
type Logger interface {
	Warn(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Aggregator combines real session counts with injected synthetic series.
// The two sources stay separate: totals never feed the series and the series
// never mutates state.
type Aggregator struct {
	store     domain.SessionStore
	generator SeriesGenerator
	logger    Logger
	days      int
	nowFn     func() time.Time
}

// Option customizes aggregator construction.
type Option func(*Aggregator)

// WithSeriesDays overrides the chart window length.
func WithSeriesDays(days int) Option {
	return func(a *Aggregator) {
		if days > 0 {
			a.days = days
		}
	}
}

// WithLogger installs a warning logger.
func WithLogger(logger Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithNowFunc overrides the aggregator clock. Intended for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.nowFn = now
		}
	}
}

// New constructs an aggregator over the given store. A nil generator falls
// back to the random illustrative generator.
func New(store domain.SessionStore, generator SeriesGenerator, opts ...Option) *Aggregator {
	if generator == nil {
		generator = NewRandomSeriesGenerator(rand.NewSource(time.Now().UnixNano()))
	}
	a := &Aggregator{
		store:     store,
		generator: generator,
		logger:    noopLogger{},
		days:      DefaultSeriesDays,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot produces one aggregation pass. Malformed synthetic series are
// absorbed: the affected campaign gets zero-filled series of the correct
// shape and a warning joins the snapshot, so the read path never fails on
// generator defects.
func (a *Aggregator) Snapshot(ctx context.Context) (Snapshot, error) {
	var campaigns []domain.Campaign
	var totals EngagementTotals
	err := a.store.View(ctx, func(view domain.RuleView) error {
		campaigns = view.ListCampaigns()
		for _, u := range view.ListUploads() {
			totals.Uploads++
			totals.UploadLikes += u.Likes
		}
		for _, c := range view.ListComments() {
			totals.Comments++
			totals.CommentLikes += c.Likes
		}
		counters := view.Counters()
		totals.PlantsGrown = counters.PlantsGrown
		totals.SeedKits = counters.SeedKits
		totals.CO2OffsetKG = counters.CO2OffsetKG
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		GeneratedAt: a.nowFn(),
		SeriesDays:  a.days,
		Totals:      totals,
	}

	// Series are keyed by campaign id, not display name: names are not
	// unique, ids are.
	ids := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}

	series, genErr := a.generator.Generate(ids, a.days)
	byCampaign := make(map[string]CampaignSeries, len(series))
	if genErr != nil {
		a.warn(&snapshot, domain.AggregationError{Generator: "series", Reason: genErr.Error()})
	} else {
		for _, s := range series {
			byCampaign[s.Campaign] = s
		}
		if len(series) != len(ids) {
			a.warn(&snapshot, domain.AggregationError{
				Generator: "series",
				Reason:    fmt.Sprintf("expected %d campaign series, got %d", len(ids), len(series)),
			})
		}
	}

	for _, campaign := range campaigns {
		metrics := CampaignMetrics{
			Campaign:   campaign.Name,
			Sponsor:    campaign.Sponsor,
			Investment: campaign.Investment,
		}
		s, ok := byCampaign[campaign.ID]
		switch {
		case genErr != nil:
			// Already warned once for the whole batch.
			s = zeroSeries(campaign.ID, a.days)
		case !ok:
			a.warn(&snapshot, domain.AggregationError{
				Generator: "series",
				Reason:    fmt.Sprintf("missing series for campaign %s", campaign.ID),
			})
			s = zeroSeries(campaign.ID, a.days)
		case len(s.Engagement) != a.days || len(s.Growth) != a.days:
			a.warn(&snapshot, domain.AggregationError{
				Generator: "series",
				Reason:    fmt.Sprintf("campaign %s series has %d/%d points, want %d", campaign.ID, len(s.Engagement), len(s.Growth), a.days),
			})
			s = zeroSeries(campaign.ID, a.days)
		}

		metrics.Engagement = s.Engagement
		metrics.Growth = s.Growth
		for _, v := range s.Engagement {
			metrics.EngagementSum += v
		}
		if len(s.Growth) > 0 {
			metrics.LastGrowth = s.Growth[len(s.Growth)-1]
		}
		metrics.Value = metrics.EngagementSum*engagementWeight + metrics.LastGrowth*growthWeight
		if campaign.Investment > 0 {
			metrics.ROI = (metrics.Value - campaign.Investment) / campaign.Investment
		}
		snapshot.Campaigns = append(snapshot.Campaigns, metrics)
	}

	return snapshot, nil
}

func (a *Aggregator) warn(snapshot *Snapshot, err domain.AggregationError) {
	snapshot.Warnings = append(snapshot.Warnings, err.Error())
	a.logger.Warn("series generator produced malformed output", "error", err)
}

func zeroSeries(campaign string, days int) CampaignSeries {
	return CampaignSeries{
		Campaign:   campaign,
		Engagement: make([]float64, days),
		Growth:     make([]float64, days),
	}
}
