package tuplekit

import (
	"context"
)

// TupleReader is the read side of the tuple store contract: everything the
// check engine needs to resolve rewrites against stored facts. Only live
// rows are visible through it.
type TupleReader interface {
	// FindTuples returns all live tuples on an object.
	FindTuples(ctx context.Context, object ObjectRef) ([]TupleKey, error)

	// FindTuplesByRelation returns all live tuples on an object holding a
	// specific relation.
	FindTuplesByRelation(ctx context.Context, object ObjectRef, relation string) ([]TupleKey, error)
}

// TupleStore adds transactional mutation to the reader contract. Every
// write/delete runs in one transaction that assigns a monotonically
// increasing transaction id, stamps it on the affected rows and appends
// changelog entries; the id is returned as a consistency token.
type TupleStore interface {
	TupleReader

	// WriteTuples inserts tuples and returns the transaction id. Writing a
	// fact that already has a live row fails with ErrDuplicateTuple.
	WriteTuples(ctx context.Context, keys []TupleKey) (int64, error)

	// DeleteTuples soft-deletes tuples and returns the transaction id.
	// Deleting a fact with no live row fails with ErrTupleNotFound.
	DeleteTuples(ctx context.Context, keys []TupleKey) (int64, error)
}

// ModelStore persists compiled authorization models. Exactly one model is
// active at a time; activation deactivates every other version in the same
// transaction.
type ModelStore interface {
	// CreateModel compiles and persists DSL source, optionally activating
	// the new version.
	CreateModel(ctx context.Context, source string, activate bool) (*AuthorizationModel, error)

	// GetActiveModel returns the cached active model, loading and caching
	// it on a miss. ErrNoActiveModel when nothing is active.
	GetActiveModel(ctx context.Context) (*AuthorizationModel, error)

	// GetModel loads a specific model version.
	GetModel(ctx context.Context, versionID string) (*AuthorizationModel, error)

	// ActivateModel flips the active flag to the given version in one
	// transaction and refreshes the cache.
	ActivateModel(ctx context.Context, versionID string) error

	// ListModels returns every stored model version, newest first.
	ListModels(ctx context.Context) ([]ModelRecord, error)

	// DeleteModel removes an inactive model version. Deleting the active
	// model fails with ErrModelActive.
	DeleteModel(ctx context.Context, versionID string) error

	// InvalidateModelCache drops the cached active model so the next
	// GetActiveModel reloads from storage.
	InvalidateModelCache()
}

// ChangelogStore exposes the append-only tuple mutation log to polling
// consumers (cache invalidators, audit shippers). The engine never pushes
// notifications.
type ChangelogStore interface {
	// FindUnprocessed returns unacknowledged entries ordered by txid.
	FindUnprocessed(ctx context.Context, limit int) ([]ChangelogEntry, error)

	// MarkProcessed acknowledges entries by id.
	MarkProcessed(ctx context.Context, ids []string) error

	// GetChangesAfter returns entries with txid strictly greater than the
	// given id, ordered by txid.
	GetChangesAfter(ctx context.Context, txid int64, limit int) ([]ChangelogEntry, error)

	// GetLatestTxid returns the highest transaction id the store has seen,
	// or zero when no mutation has happened yet.
	GetLatestTxid(ctx context.Context) (int64, error)
}

// CheckStore is the slice of the store contract the check engine consumes:
// tuple reads, model resolution and the logical clock for consistency
// tokens.
type CheckStore interface {
	TupleReader

	GetActiveModel(ctx context.Context) (*AuthorizationModel, error)
	GetModel(ctx context.Context, versionID string) (*AuthorizationModel, error)
	GetLatestTxid(ctx context.Context) (int64, error)
}

// Store is the full persistence contract: the Postgres-backed Service and
// the in-memory MemoryStore both satisfy it.
type Store interface {
	TupleStore
	ModelStore
	ChangelogStore
}

// Authorizer is the permission-check surface consumed by middleware and
// embedding services.
type Authorizer interface {
	Check(ctx context.Context, req CheckRequest) (CheckResult, error)
	BatchCheck(ctx context.Context, reqs []CheckRequest) ([]BatchCheckResult, error)
}
