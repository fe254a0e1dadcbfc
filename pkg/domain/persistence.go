package domain

import "context"

// Transaction exposes the mutation primitives a session storage implementation
// must support within an atomic scope. Managers compose these; the store
// enforces identity generation, timestamps, and rule evaluation.
type Transaction interface {
	CreatePlant(Plant) (Plant, error)
	UpdatePlant(id string, mutator func(*Plant) error) (Plant, error)
	DeletePlant(id string) error
	AppendHarvest(HarvestRecord) (HarvestRecord, error)
	CreateUpload(Upload) (Upload, error)
	UpdateUpload(id string, mutator func(*Upload) error) (Upload, error)
	CreateComment(Comment) (Comment, error)
	UpdateComment(id string, mutator func(*Comment) error) (Comment, error)
	CreateCampaign(Campaign) (Campaign, error)
	AddPlantsGrown(n int) int
	AddSeedKits(n int) int
	AddCO2Offset(kg int) int
	FindPlant(id string) (Plant, bool)
	FindUpload(id string) (Upload, bool)
	FindComment(id string) (Comment, bool)
	FindCampaign(id string) (Campaign, bool)
	Seeded() bool
	MarkSeeded()
}

// SessionStore is the abstraction over session state backends. It mirrors the
// subset of memory-store capabilities used directly by higher layers so that
// snapshotting durable backends can wrap the in-memory implementation.
type SessionStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(RuleView) error) error
	GetPlant(id string) (Plant, bool)
	ListPlants() []Plant
	ListHarvests() []HarvestRecord
	ListUploads() []Upload
	ListComments() []Comment
	ListCampaigns() []Campaign
	Counters() EngagementCounters
}
