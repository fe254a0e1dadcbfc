// Package analytics derives sponsor and admin dashboard metrics from session
// state combined with synthetic illustrative chart series.
package analytics

import (
	"math/rand"
	"sync"
)

// DefaultSeriesDays is the standard chart window of daily points per campaign.
const DefaultSeriesDays = 30

// CampaignSeries holds the synthetic chart series for one campaign,
// identified by its campaign id.
type CampaignSeries struct {
	Campaign   string    `json:"campaign"`
	Engagement []float64 `json:"engagement"`
	Growth     []float64 `json:"growth"`
}

// SeriesGenerator produces fixed-length daily series for each campaign id.
// Implementations must return exactly one series per id with len(days)
// points in both channels; the aggregator treats anything else as malformed.
type SeriesGenerator interface {
	Generate(campaigns []string, days int) ([]CampaignSeries, error)
}

// RandomSeriesGenerator produces illustrative random series: daily engagement
// scaled by a per-campaign multiplier and a cumulative growth curve.
type RandomSeriesGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSeriesGenerator constructs a generator seeded from src.
func NewRandomSeriesGenerator(src rand.Source) *RandomSeriesGenerator {
	return &RandomSeriesGenerator{rng: rand.New(src)}
}

// Generate implements SeriesGenerator.
func (g *RandomSeriesGenerator) Generate(campaigns []string, days int) ([]CampaignSeries, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]CampaignSeries, 0, len(campaigns))
	for _, campaign := range campaigns {
		// One reach multiplier per campaign in [0.7, 1.5).
		multiplier := 0.7 + g.rng.Float64()*0.8
		engagement := make([]float64, days)
		growth := make([]float64, days)
		var cumulative float64
		for day := 0; day < days; day++ {
			engagement[day] = float64(10+g.rng.Intn(91)) * multiplier
			cumulative += g.rng.Float64() * 5
			growth[day] = cumulative
		}
		out = append(out, CampaignSeries{Campaign: campaign, Engagement: engagement, Growth: growth})
	}
	return out, nil
}
