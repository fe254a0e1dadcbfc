package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"growvertising/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SessionStore = (*MemoryStore)(nil)

type memoryState struct {
	seq       uint64
	seeded    bool
	counters  EngagementCounters
	plants    map[string]Plant
	harvests  []HarvestRecord
	uploads   map[string]Upload
	comments  map[string]Comment
	campaigns map[string]Campaign
}

func newMemoryState() memoryState {
	return memoryState{
		plants:    make(map[string]Plant),
		uploads:   make(map[string]Upload),
		comments:  make(map[string]Comment),
		campaigns: make(map[string]Campaign),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	cloned.seq = s.seq
	cloned.seeded = s.seeded
	cloned.counters = s.counters
	for k, v := range s.plants {
		cloned.plants[k] = v
	}
	cloned.harvests = append([]HarvestRecord(nil), s.harvests...)
	for k, v := range s.uploads {
		cloned.uploads[k] = v
	}
	for k, v := range s.comments {
		cloned.comments[k] = v
	}
	for k, v := range s.campaigns {
		cloned.campaigns[k] = v
	}
	return cloned
}

// Snapshot is the serializable form of the full session state. Durable
// backends persist it after every committed transaction and hydrate from it
// on startup.
type Snapshot struct {
	Seq       uint64             `json:"seq"`
	Seeded    bool               `json:"seeded"`
	Counters  EngagementCounters `json:"counters"`
	Plants    []Plant            `json:"plants"`
	Harvests  []HarvestRecord    `json:"harvests"`
	Uploads   []Upload           `json:"uploads"`
	Comments  []Comment          `json:"comments"`
	Campaigns []Campaign         `json:"campaigns"`
}

// MemoryStore provides an in-memory transactional store for the session
// domain. All mutations run through RunInTransaction under a single writer
// lock, which keeps appends linearizable and like increments atomic.
type MemoryStore struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewMemoryStore constructs an in-memory store backed by the provided rules engine.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return &MemoryStore{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the store clock. Intended for tests.
func (s *MemoryStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.nowFn = now
	}
}

// RulesEngine returns the engine evaluating transactions on this store.
func (s *MemoryStore) RulesEngine() *RulesEngine {
	return s.engine
}

// ExportState returns a serializable snapshot of committed state.
func (s *MemoryStore) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces committed state with the provided snapshot.
func (s *MemoryStore) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snapshot)
}

func snapshotFromState(state memoryState) Snapshot {
	snap := Snapshot{
		Seq:      state.seq,
		Seeded:   state.seeded,
		Counters: state.counters,
		Harvests: append([]HarvestRecord(nil), state.harvests...),
	}
	for _, p := range state.plants {
		snap.Plants = append(snap.Plants, p)
	}
	for _, u := range state.uploads {
		snap.Uploads = append(snap.Uploads, u)
	}
	for _, c := range state.comments {
		snap.Comments = append(snap.Comments, c)
	}
	for _, c := range state.campaigns {
		snap.Campaigns = append(snap.Campaigns, c)
	}
	sort.Slice(snap.Plants, func(i, j int) bool { return snap.Plants[i].ID < snap.Plants[j].ID })
	sort.Slice(snap.Uploads, func(i, j int) bool { return snap.Uploads[i].ID < snap.Uploads[j].ID })
	sort.Slice(snap.Comments, func(i, j int) bool { return snap.Comments[i].ID < snap.Comments[j].ID })
	sort.Slice(snap.Campaigns, func(i, j int) bool { return snap.Campaigns[i].ID < snap.Campaigns[j].ID })
	return snap
}

func stateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	state.seq = snap.Seq
	state.seeded = snap.Seeded
	state.counters = snap.Counters
	state.harvests = append([]HarvestRecord(nil), snap.Harvests...)
	for _, p := range snap.Plants {
		state.plants[p.ID] = p
	}
	for _, u := range snap.Uploads {
		state.uploads[u.ID] = u
	}
	for _, c := range snap.Comments {
		state.comments[c.ID] = c
	}
	for _, c := range snap.Campaigns {
		state.campaigns[c.ID] = c
	}
	return state
}

// transaction applies a mutation set against a cloned state. Identifiers come
// from a sequence carried in the state itself, so they stay unique for the
// store lifetime and are never reused after a delete.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) newID(entity EntityType) string {
	tx.state.seq++
	return fmt.Sprintf("%s-%08d", entity, tx.state.seq)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// ruleView exposes a read-only snapshot of transactional or committed state.
type ruleView struct {
	state *memoryState
}

var _ domain.RuleView = ruleView{}

func (v ruleView) ListPlants() []Plant {
	out := make([]Plant, 0, len(v.state.plants))
	for _, p := range v.state.plants {
		out = append(out, p)
	}
	// Creation order: sequence identifiers sort lexicographically.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v ruleView) ListHarvests() []HarvestRecord {
	out := append([]HarvestRecord(nil), v.state.harvests...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].HarvestedAt.Equal(out[j].HarvestedAt) {
			return out[i].HarvestedAt.After(out[j].HarvestedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (v ruleView) ListUploads() []Upload {
	out := make([]Upload, 0, len(v.state.uploads))
	for _, u := range v.state.uploads {
		out = append(out, u)
	}
	sortNewestFirst(out, func(u Upload) (time.Time, string) { return u.CreatedAt, u.ID })
	return out
}

func (v ruleView) ListComments() []Comment {
	out := make([]Comment, 0, len(v.state.comments))
	for _, c := range v.state.comments {
		out = append(out, c)
	}
	sortNewestFirst(out, func(c Comment) (time.Time, string) { return c.CreatedAt, c.ID })
	return out
}

func (v ruleView) ListCampaigns() []Campaign {
	out := make([]Campaign, 0, len(v.state.campaigns))
	for _, c := range v.state.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v ruleView) FindPlant(id string) (Plant, bool) {
	p, ok := v.state.plants[id]
	return p, ok
}

func (v ruleView) FindUpload(id string) (Upload, bool) {
	u, ok := v.state.uploads[id]
	return u, ok
}

func (v ruleView) FindComment(id string) (Comment, bool) {
	c, ok := v.state.comments[id]
	return c, ok
}

func (v ruleView) FindCampaign(id string) (Campaign, bool) {
	c, ok := v.state.campaigns[id]
	return c, ok
}

func (v ruleView) Counters() EngagementCounters {
	return v.state.counters
}

// sortNewestFirst orders feed entries newest-first with identifier ties
// resolved toward the higher sequence. Feed ordering is a derived view;
// storage order is never rewritten.
func sortNewestFirst[T any](entries []T, key func(T) (time.Time, string)) {
	sort.Slice(entries, func(i, j int) bool {
		ti, idi := key(entries[i])
		tj, idj := key(entries[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The rules engine evaluates the recorded change set against the
// candidate state; blocking violations abort the commit.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := ruleView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *MemoryStore) View(_ context.Context, fn func(domain.RuleView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(ruleView{state: &snapshot})
}

// CreatePlant stores a new plant within the transaction.
func (tx *transaction) CreatePlant(p Plant) (Plant, error) {
	if p.ID == "" {
		p.ID = tx.newID(EntityPlant)
	}
	if _, exists := tx.state.plants[p.ID]; exists {
		return Plant{}, fmt.Errorf("plant %q already exists", p.ID)
	}
	if p.Stage == "" {
		p.Stage = StageGrowing
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.plants[p.ID] = p
	tx.recordChange(Change{Entity: EntityPlant, Action: ActionCreate, After: p})
	return p, nil
}

// UpdatePlant mutates a plant using the provided mutator function.
func (tx *transaction) UpdatePlant(id string, mutator func(*Plant) error) (Plant, error) {
	current, ok := tx.state.plants[id]
	if !ok {
		return Plant{}, domain.NotFoundError{Entity: EntityPlant, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Plant{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.plants[id] = current
	tx.recordChange(Change{Entity: EntityPlant, Action: ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeletePlant removes a plant from the active collection.
func (tx *transaction) DeletePlant(id string) error {
	current, ok := tx.state.plants[id]
	if !ok {
		return domain.NotFoundError{Entity: EntityPlant, ID: id}
	}
	delete(tx.state.plants, id)
	tx.recordChange(Change{Entity: EntityPlant, Action: ActionDelete, Before: current})
	return nil
}

// AppendHarvest appends an immutable harvest record to the history log.
func (tx *transaction) AppendHarvest(r HarvestRecord) (HarvestRecord, error) {
	if r.ID == "" {
		r.ID = tx.newID(EntityHarvest)
	}
	if r.HarvestedAt.IsZero() {
		r.HarvestedAt = tx.now
	}
	tx.state.harvests = append(tx.state.harvests, r)
	tx.recordChange(Change{Entity: EntityHarvest, Action: ActionCreate, After: r})
	return r, nil
}

// CreateUpload appends an upload to the photo wall log.
func (tx *transaction) CreateUpload(u Upload) (Upload, error) {
	if u.ID == "" {
		u.ID = tx.newID(EntityUpload)
	}
	if _, exists := tx.state.uploads[u.ID]; exists {
		return Upload{}, fmt.Errorf("upload %q already exists", u.ID)
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.uploads[u.ID] = u
	tx.recordChange(Change{Entity: EntityUpload, Action: ActionCreate, After: u})
	return u, nil
}

// UpdateUpload mutates an upload addressed by its unique identifier.
func (tx *transaction) UpdateUpload(id string, mutator func(*Upload) error) (Upload, error) {
	current, ok := tx.state.uploads[id]
	if !ok {
		return Upload{}, domain.NotFoundError{Entity: EntityUpload, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Upload{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.uploads[id] = current
	tx.recordChange(Change{Entity: EntityUpload, Action: ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateComment appends a comment to the discussion log.
func (tx *transaction) CreateComment(c Comment) (Comment, error) {
	if c.ID == "" {
		c.ID = tx.newID(EntityComment)
	}
	if _, exists := tx.state.comments[c.ID]; exists {
		return Comment{}, fmt.Errorf("comment %q already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.now
	}
	c.UpdatedAt = tx.now
	tx.state.comments[c.ID] = c
	tx.recordChange(Change{Entity: EntityComment, Action: ActionCreate, After: c})
	return c, nil
}

// UpdateComment mutates a comment addressed by its unique identifier.
func (tx *transaction) UpdateComment(id string, mutator func(*Comment) error) (Comment, error) {
	current, ok := tx.state.comments[id]
	if !ok {
		return Comment{}, domain.NotFoundError{Entity: EntityComment, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Comment{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.comments[id] = current
	tx.recordChange(Change{Entity: EntityComment, Action: ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateCampaign stores a sponsored campaign record.
func (tx *transaction) CreateCampaign(c Campaign) (Campaign, error) {
	if c.ID == "" {
		c.ID = tx.newID(EntityCampaign)
	}
	if _, exists := tx.state.campaigns[c.ID]; exists {
		return Campaign{}, fmt.Errorf("campaign %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.campaigns[c.ID] = c
	tx.recordChange(Change{Entity: EntityCampaign, Action: ActionCreate, After: c})
	return c, nil
}

// AddPlantsGrown advances the cumulative plants-grown counter.
func (tx *transaction) AddPlantsGrown(n int) int {
	tx.state.counters.PlantsGrown += n
	return tx.state.counters.PlantsGrown
}

// AddSeedKits advances the cumulative seed-kit counter.
func (tx *transaction) AddSeedKits(n int) int {
	tx.state.counters.SeedKits += n
	return tx.state.counters.SeedKits
}

// AddCO2Offset advances the cumulative CO2 offset estimate in kilograms.
func (tx *transaction) AddCO2Offset(kg int) int {
	tx.state.counters.CO2OffsetKG += kg
	return tx.state.counters.CO2OffsetKG
}

func (tx *transaction) FindPlant(id string) (Plant, bool) {
	p, ok := tx.state.plants[id]
	return p, ok
}

func (tx *transaction) FindUpload(id string) (Upload, bool) {
	u, ok := tx.state.uploads[id]
	return u, ok
}

func (tx *transaction) FindComment(id string) (Comment, bool) {
	c, ok := tx.state.comments[id]
	return c, ok
}

func (tx *transaction) FindCampaign(id string) (Campaign, bool) {
	c, ok := tx.state.campaigns[id]
	return c, ok
}

// Seeded reports whether sample content was installed for this store lifetime.
func (tx *transaction) Seeded() bool {
	return tx.state.seeded
}

// MarkSeeded latches the sample-content flag. It is never reset.
func (tx *transaction) MarkSeeded() {
	tx.state.seeded = true
}

// Read helpers ---------------------------------------------------------------

// GetPlant retrieves an active plant by ID from committed state.
func (s *MemoryStore) GetPlant(id string) (Plant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.plants[id]
	return p, ok
}

// ListPlants returns the active plants in creation order.
func (s *MemoryStore) ListPlants() []Plant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ruleView{state: &s.state}.ListPlants()
}

// ListHarvests returns the harvest history, newest harvest first.
func (s *MemoryStore) ListHarvests() []HarvestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ruleView{state: &s.state}.ListHarvests()
}

// ListUploads returns the photo wall, newest first.
func (s *MemoryStore) ListUploads() []Upload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ruleView{state: &s.state}.ListUploads()
}

// ListComments returns the discussion feed, newest first.
func (s *MemoryStore) ListComments() []Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ruleView{state: &s.state}.ListComments()
}

// ListCampaigns returns all campaigns in creation order.
func (s *MemoryStore) ListCampaigns() []Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ruleView{state: &s.state}.ListCampaigns()
}

// Counters returns the cumulative engagement totals.
func (s *MemoryStore) Counters() EngagementCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.counters
}
