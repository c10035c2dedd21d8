package tuplekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// CHANGELOG
// ============================================================================

// FindUnprocessed returns unacknowledged changelog entries ordered by txid.
// Consumers poll this, act on the entries and acknowledge with MarkProcessed.
//
// Example:
//
//	entries, err := service.FindUnprocessed(ctx, 100)
//	for _, e := range entries {
//	    invalidateCacheFor(e.TupleID)
//	}
//	err = service.MarkProcessed(ctx, ids)
func (s *Service) FindUnprocessed(ctx context.Context, limit int) ([]ChangelogEntry, error) {
	var entries []ChangelogEntry
	q := s.db.NewSelect().
		Model(&entries).
		Where("processed = false").
		Order("txid ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := dbkit.WithErr1(q.Scan(ctx), "FindUnprocessed").Err()
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkProcessed acknowledges changelog entries by id. Unknown ids are
// ignored, so acknowledging twice is harmless.
func (s *Service) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	result, err := s.db.NewUpdate().
		Model((*ChangelogEntry)(nil)).
		Set("processed = true").
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return dbkit.WithErr(result, err, "MarkProcessed").Err()
}

// GetChangesAfter returns changelog entries with txid strictly greater than
// the given id, ordered by txid. This is the incremental-sync read: callers
// remember the highest txid they have seen and page forward from it.
func (s *Service) GetChangesAfter(ctx context.Context, txid int64, limit int) ([]ChangelogEntry, error) {
	var entries []ChangelogEntry
	q := s.db.NewSelect().
		Model(&entries).
		Where("txid > ?", txid).
		Order("txid ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := dbkit.WithErr1(q.Scan(ctx), "GetChangesAfter").Err()
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetLatestTxid returns the highest transaction id recorded in the changelog,
// or zero when no mutation has happened yet. Consistency-token checks compare
// against this.
func (s *Service) GetLatestTxid(ctx context.Context) (int64, error) {
	var txid int64
	err := dbkit.WithErr1(s.db.NewRaw(
		"SELECT COALESCE(MAX(txid), 0) FROM tuple_changelog").Scan(ctx, &txid), "GetLatestTxid").Err()
	if err != nil {
		return 0, err
	}
	return txid, nil
}
