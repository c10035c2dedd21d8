package tuplekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// nextTxid draws the next transaction id from the shared sequence. Ids are
// assigned inside the mutation transaction, so every row and changelog entry
// written together carries the same id.
func nextTxid(ctx context.Context, db dbkit.IDB) (int64, error) {
	var txid int64
	err := dbkit.WithErr1(db.NewRaw("SELECT nextval('tuple_txid_seq')").Scan(ctx, &txid), "NextTxid").Err()
	if err != nil {
		return 0, err
	}
	return txid, nil
}

// tupleWhere narrows a query to one tuple key.
func tupleWhere(key TupleKey) (string, []any) {
	return "user_type = ? AND user_id = ? AND user_relation = ? AND relation = ? AND object_type = ? AND object_id = ?",
		[]any{
			key.User.Object.Type,
			key.User.Object.ID,
			key.User.Relation,
			key.Relation,
			key.Object.Type,
			key.Object.ID,
		}
}

// rowsToKeys converts stored rows back to tuple keys.
func rowsToKeys(rows []RelationTuple) []TupleKey {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]TupleKey, len(rows))
	for i := range rows {
		keys[i] = rows[i].Key()
	}
	return keys
}
