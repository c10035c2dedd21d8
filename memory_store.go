package tuplekit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a complete in-memory implementation of Store. It mirrors the
// Postgres-backed Service semantics row for row: soft deletes, transaction id
// stamping, changelog entries and the single-active-model invariant all
// behave the same, so code written against MemoryStore ports unchanged.
//
// Intended for tests and small embedded setups; nothing is persisted.
type MemoryStore struct {
	mu sync.RWMutex

	tuples    []*RelationTuple
	changelog []*ChangelogEntry
	models    map[string]*ModelRecord
	compiled  map[string]*AuthorizationModel
	activeID  string
	txid      int64
}

var _ Store = (*MemoryStore)(nil)
var _ CheckStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models:   make(map[string]*ModelRecord),
		compiled: make(map[string]*AuthorizationModel),
	}
}

// nextTxid advances the logical clock. Callers must hold the write lock.
func (s *MemoryStore) nextTxid() int64 {
	s.txid++
	return s.txid
}

// findLive returns the live row for a key, or nil. Callers must hold a lock.
func (s *MemoryStore) findLive(key TupleKey) *RelationTuple {
	for _, rt := range s.tuples {
		if rt.IsLive() && rt.Key() == key {
			return rt
		}
	}
	return nil
}

// WriteTuples inserts tuples atomically: either every key is written or none
// is, and all rows share one transaction id.
func (s *MemoryStore) WriteTuples(ctx context.Context, keys []TupleKey) (int64, error) {
	if len(keys) == 0 {
		return 0, NewError(ErrInvalidRef, "no tuples to write")
	}
	for _, key := range keys {
		if err := key.Validate(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if s.findLive(key) != nil {
			return 0, NewError(ErrDuplicateTuple, key.String())
		}
	}

	txid := s.nextTxid()
	for _, key := range keys {
		rt := newRelationTuple(key, txid)
		s.tuples = append(s.tuples, rt)
		s.changelog = append(s.changelog, newChangelogEntry(OpWrite, rt.ID, txid))
	}
	return txid, nil
}

// DeleteTuples soft-deletes tuples atomically. Rows stay in place with the
// deleting transaction id stamped, so the same fact can be written again
// later as a fresh row.
func (s *MemoryStore) DeleteTuples(ctx context.Context, keys []TupleKey) (int64, error) {
	if len(keys) == 0 {
		return 0, NewError(ErrInvalidRef, "no tuples to delete")
	}
	for _, key := range keys {
		if err := key.Validate(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*RelationTuple, 0, len(keys))
	for _, key := range keys {
		rt := s.findLive(key)
		if rt == nil {
			return 0, NewError(ErrTupleNotFound, key.String())
		}
		rows = append(rows, rt)
	}

	txid := s.nextTxid()
	for _, rt := range rows {
		rt.DeletedTxid = txid
		s.changelog = append(s.changelog, newChangelogEntry(OpDelete, rt.ID, txid))
	}
	return txid, nil
}

// FindTuples returns all live tuples on an object.
func (s *MemoryStore) FindTuples(ctx context.Context, object ObjectRef) ([]TupleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TupleKey
	for _, rt := range s.tuples {
		if rt.IsLive() && rt.ObjectType == object.Type && rt.ObjectID == object.ID {
			out = append(out, rt.Key())
		}
	}
	return out, nil
}

// FindTuplesByRelation returns all live tuples on an object holding a
// specific relation.
func (s *MemoryStore) FindTuplesByRelation(ctx context.Context, object ObjectRef, relation string) ([]TupleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TupleKey
	for _, rt := range s.tuples {
		if rt.IsLive() && rt.ObjectType == object.Type && rt.ObjectID == object.ID && rt.Relation == relation {
			out = append(out, rt.Key())
		}
	}
	return out, nil
}

// QueryTuples returns rows matching the filter, in insertion order.
func (s *MemoryStore) QueryTuples(ctx context.Context, q TupleQuery) ([]RelationTuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RelationTuple
	skipped := 0
	for _, rt := range s.tuples {
		if !q.Matches(rt) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, *rt)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// CreateModel compiles and stores DSL source as a new model version.
func (s *MemoryStore) CreateModel(ctx context.Context, source string, activate bool) (*AuthorizationModel, error) {
	model, err := Compile(source)
	if err != nil {
		return nil, err
	}
	model.VersionID = newModelVersionID()

	s.mu.Lock()
	defer s.mu.Unlock()

	record := &ModelRecord{
		VersionID:     model.VersionID,
		SchemaVersion: model.SchemaVersion,
		Source:        source,
		IsActive:      activate,
		CreatedAt:     time.Now(),
	}
	if activate {
		if s.activeID != "" {
			s.models[s.activeID].IsActive = false
		}
		s.activeID = model.VersionID
	}
	s.models[model.VersionID] = record
	s.compiled[model.VersionID] = model
	return model, nil
}

// GetActiveModel returns the active model.
func (s *MemoryStore) GetActiveModel(ctx context.Context) (*AuthorizationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil, NewError(ErrNoActiveModel, "create or activate a model first")
	}
	return s.compiled[s.activeID], nil
}

// GetModel returns a specific model version.
func (s *MemoryStore) GetModel(ctx context.Context, versionID string) (*AuthorizationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, ok := s.compiled[versionID]
	if !ok {
		return nil, NewError(ErrModelNotFound, versionID).WithModel(versionID)
	}
	return model, nil
}

// ActivateModel makes the given version the single active model.
func (s *MemoryStore) ActivateModel(ctx context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.models[versionID]
	if !ok {
		return NewError(ErrModelNotFound, versionID).WithModel(versionID)
	}
	if s.activeID != "" && s.activeID != versionID {
		s.models[s.activeID].IsActive = false
	}
	record.IsActive = true
	s.activeID = versionID
	return nil
}

// ListModels returns every stored model version, newest first.
func (s *MemoryStore) ListModels(ctx context.Context) ([]ModelRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ModelRecord, 0, len(s.models))
	for _, record := range s.models {
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VersionID > out[j].VersionID
	})
	return out, nil
}

// DeleteModel removes an inactive model version.
func (s *MemoryStore) DeleteModel(ctx context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[versionID]; !ok {
		return NewError(ErrModelNotFound, versionID).WithModel(versionID)
	}
	if s.activeID == versionID {
		return NewError(ErrModelActive, versionID).WithModel(versionID)
	}
	delete(s.models, versionID)
	delete(s.compiled, versionID)
	return nil
}

// InvalidateModelCache is a no-op: the in-memory store has no separate cache
// to fall behind.
func (s *MemoryStore) InvalidateModelCache() {}

// FindUnprocessed returns unacknowledged changelog entries ordered by txid.
func (s *MemoryStore) FindUnprocessed(ctx context.Context, limit int) ([]ChangelogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ChangelogEntry
	for _, entry := range s.changelog {
		if entry.Processed {
			continue
		}
		out = append(out, *entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkProcessed acknowledges changelog entries by id.
func (s *MemoryStore) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.changelog {
		if _, ok := wanted[entry.ID]; ok {
			entry.Processed = true
		}
	}
	return nil
}

// GetChangesAfter returns changelog entries with txid strictly greater than
// the given id.
func (s *MemoryStore) GetChangesAfter(ctx context.Context, txid int64, limit int) ([]ChangelogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ChangelogEntry
	for _, entry := range s.changelog {
		if entry.Txid <= txid {
			continue
		}
		out = append(out, *entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetLatestTxid returns the highest transaction id assigned so far.
func (s *MemoryStore) GetLatestTxid(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txid, nil
}
