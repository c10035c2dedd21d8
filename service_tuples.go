package tuplekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// TUPLE OPERATIONS
// ============================================================================

// WriteTuples inserts relationship facts atomically. All rows are stamped
// with one freshly drawn transaction id, a WRITE changelog entry is appended
// per tuple, and the id is returned as the consistency token for the batch.
//
// Writing a fact that already has a live row fails the whole batch with
// ErrDuplicateTuple; the partial unique index on live rows enforces this even
// under concurrent writers.
//
// Example:
//
//	txid, err := service.WriteTuples(ctx, []tuplekit.TupleKey{
//	    tuplekit.NewTupleKey("user", "alice", "owner", "document", "readme"),
//	})
func (s *Service) WriteTuples(ctx context.Context, keys []TupleKey) (int64, error) {
	if len(keys) == 0 {
		return 0, NewError(ErrInvalidRef, "no tuples to write")
	}
	for _, key := range keys {
		if err := key.Validate(); err != nil {
			return 0, err
		}
	}

	var txid int64
	err := s.runInTx(ctx, func(tx dbkit.IDB) error {
		id, err := nextTxid(ctx, tx)
		if err != nil {
			return err
		}

		rows := make([]*RelationTuple, 0, len(keys))
		entries := make([]*ChangelogEntry, 0, len(keys))
		for _, key := range keys {
			rt := newRelationTuple(key, id)
			rows = append(rows, rt)
			entries = append(entries, newChangelogEntry(OpWrite, rt.ID, id))
		}

		result, err := tx.NewInsert().Model(&rows).Exec(ctx)
		err = dbkit.WithErr(result, err, "WriteTuples").Err()
		if err != nil {
			if dbkit.IsDuplicate(err) {
				return NewError(ErrDuplicateTuple, "a tuple in the batch already exists as a live row")
			}
			return err
		}

		result, err = tx.NewInsert().Model(&entries).Exec(ctx)
		if err := dbkit.WithErr(result, err, "AppendChangelog").Err(); err != nil {
			return err
		}

		txid = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return txid, nil
}

// DeleteTuples soft-deletes relationship facts atomically: live rows get the
// deleting transaction id stamped and a DELETE changelog entry each, and the
// id is returned as the consistency token. History rows stay in place, so the
// same fact can be written again later as a fresh row.
//
// Deleting a fact with no live row fails the whole batch with
// ErrTupleNotFound.
func (s *Service) DeleteTuples(ctx context.Context, keys []TupleKey) (int64, error) {
	if len(keys) == 0 {
		return 0, NewError(ErrInvalidRef, "no tuples to delete")
	}
	for _, key := range keys {
		if err := key.Validate(); err != nil {
			return 0, err
		}
	}

	var txid int64
	err := s.runInTx(ctx, func(tx dbkit.IDB) error {
		id, err := nextTxid(ctx, tx)
		if err != nil {
			return err
		}

		entries := make([]*ChangelogEntry, 0, len(keys))
		for _, key := range keys {
			where, args := tupleWhere(key)

			var tupleIDs []string
			err := tx.NewUpdate().
				Model((*RelationTuple)(nil)).
				Set("deleted_txid = ?", id).
				Where(where, args...).
				Where("deleted_txid = 0").
				Returning("id").
				Scan(ctx, &tupleIDs)
			if err := dbkit.WithErr1(err, "DeleteTuples").Err(); err != nil {
				return err
			}
			if len(tupleIDs) == 0 {
				return NewError(ErrTupleNotFound, key.String())
			}
			for _, tupleID := range tupleIDs {
				entries = append(entries, newChangelogEntry(OpDelete, tupleID, id))
			}
		}

		result, err := tx.NewInsert().Model(&entries).Exec(ctx)
		if err := dbkit.WithErr(result, err, "AppendChangelog").Err(); err != nil {
			return err
		}

		txid = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return txid, nil
}

// FindTuples returns all live tuples on an object.
func (s *Service) FindTuples(ctx context.Context, object ObjectRef) ([]TupleKey, error) {
	var rows []RelationTuple
	err := dbkit.WithErr1(s.db.NewSelect().
		Model(&rows).
		Where("object_type = ? AND object_id = ?", object.Type, object.ID).
		Where("deleted_txid = 0").
		Scan(ctx), "FindTuples").Err()
	if err != nil {
		return nil, err
	}
	return rowsToKeys(rows), nil
}

// FindTuplesByRelation returns all live tuples on an object holding a
// specific relation. This is the hot read of the check engine; the
// (object_type, object_id, relation) index serves it.
func (s *Service) FindTuplesByRelation(ctx context.Context, object ObjectRef, relation string) ([]TupleKey, error) {
	var rows []RelationTuple
	err := dbkit.WithErr1(s.db.NewSelect().
		Model(&rows).
		Where("object_type = ? AND object_id = ?", object.Type, object.ID).
		Where("relation = ?", relation).
		Where("deleted_txid = 0").
		Scan(ctx), "FindTuplesByRelation").Err()
	if err != nil {
		return nil, err
	}
	return rowsToKeys(rows), nil
}
