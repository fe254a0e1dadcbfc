// Package domain defines the core entities, value types, role model, and
// rule evaluation primitives used by the growvertising engine.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPlant identifies an actively growing plant record.
	EntityPlant EntityType = "plant"
	// EntityHarvest identifies an immutable harvest history record.
	EntityHarvest EntityType = "harvest_record"
	// EntityUpload identifies a community photo upload record.
	EntityUpload EntityType = "upload"
	// EntityComment identifies a community discussion comment record.
	EntityComment EntityType = "comment"
	// EntityCampaign identifies a sponsored campaign record.
	EntityCampaign EntityType = "campaign"
)

// PlantStage represents the canonical plant lifecycle states.
type PlantStage string

// Plant lifecycle stages. StageHarvested is terminal: no transition leaves it.
const (
	StageGrowing   PlantStage = "growing"
	StageHarvested PlantStage = "harvested"
)

// Species names a plant type from the cultivation catalog.
type Species string

// Cultivation catalog offered to growers.
const (
	SpeciesTomato  Species = "Tomato"
	SpeciesBasil   Species = "Basil"
	SpeciesLettuce Species = "Lettuce"
	SpeciesSpinach Species = "Spinach"
	SpeciesMint    Species = "Mint"
	SpeciesPepper  Species = "Pepper"
	SpeciesChives  Species = "Chives"
)

// SpeciesCatalog lists every species accepted by StartGrowing, in menu order.
func SpeciesCatalog() []Species {
	return []Species{
		SpeciesTomato,
		SpeciesBasil,
		SpeciesLettuce,
		SpeciesSpinach,
		SpeciesMint,
		SpeciesPepper,
		SpeciesChives,
	}
}

// Valid reports whether the species belongs to the cultivation catalog.
func (s Species) Valid() bool {
	for _, known := range SpeciesCatalog() {
		if s == known {
			return true
		}
	}
	return false
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plant represents an in-progress growing entity tracked per user.
// Progress is always within [0,100]; mutations clamp at both bounds.
type Plant struct {
	Base
	Species   Species    `json:"species"`
	Stage     PlantStage `json:"stage"`
	Progress  int        `json:"progress"`
	PlantedAt time.Time  `json:"planted_at"`
	Notes     string     `json:"notes,omitempty"`
}

// HarvestRecord is the immutable historical record created when a plant's
// lifecycle ends. PlantedAt is preserved verbatim from the harvested plant.
type HarvestRecord struct {
	ID          string    `json:"id"`
	Species     Species   `json:"species"`
	PlantedAt   time.Time `json:"planted_at"`
	HarvestedAt time.Time `json:"harvested_at"`
	Success     bool      `json:"success"`
}

// Upload is a community photo wall entry. ImageRef is an opaque handle issued
// by the image store collaborator; the engine never interprets it.
type Upload struct {
	Base
	Author   string `json:"author"`
	ImageRef string `json:"image_ref"`
	Caption  string `json:"caption"`
	Location string `json:"location"`
	Likes    int    `json:"likes"`
}

// Comment is a community discussion entry with an independent like counter.
type Comment struct {
	Base
	Author string `json:"author"`
	Text   string `json:"text"`
	Likes  int    `json:"likes"`
}

// Campaign captures a sponsored billboard campaign. Investment feeds the
// illustrative ROI computation and is not a real payment amount.
type Campaign struct {
	Base
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Sponsor     string  `json:"sponsor"`
	ImageRef    string  `json:"image_ref,omitempty"`
	Investment  float64 `json:"investment"`
}

// EngagementCounters aggregates the cumulative community totals maintained by
// the store. All counters are monotonically non-decreasing.
type EngagementCounters struct {
	PlantsGrown int `json:"plants_grown"`
	SeedKits    int `json:"seed_kits"`
	CO2OffsetKG int `json:"co2_offset_kg"`
}

// DefaultLocation is recorded on uploads submitted without a location.
const DefaultLocation = "Unknown"

// MaxCommentLength bounds discussion comment text.
const MaxCommentLength = 300

// HarvestSuccessThreshold is the progress a plant must exceed at harvest time
// for the harvest to count as successful, matching the health scale where
// progress above 60 reads as "Good".
const HarvestSuccessThreshold = 60
