package tuplekit

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RelationTuple is a stored relationship fact. Rows are never physically
// removed: deletion stamps DeletedTxid, so history stays available to the
// changelog and audit consumers. A row is live while DeletedTxid is zero.
type RelationTuple struct {
	bun.BaseModel `bun:"table:relation_tuples,alias:rt"`

	ID           string    `bun:"id,pk,type:uuid"`
	UserType     string    `bun:"user_type,notnull"`
	UserID       string    `bun:"user_id,notnull"`
	UserRelation string    `bun:"user_relation,notnull,default:''"`
	Relation     string    `bun:"relation,notnull"`
	ObjectType   string    `bun:"object_type,notnull"`
	ObjectID     string    `bun:"object_id,notnull"`
	CreatedTxid  int64     `bun:"created_txid,notnull"`
	DeletedTxid  int64     `bun:"deleted_txid,notnull,default:0"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// IsLive reports whether the row is the current version of its fact.
func (rt *RelationTuple) IsLive() bool {
	return rt.DeletedTxid == 0
}

// Key converts the row back to its tuple key.
func (rt *RelationTuple) Key() TupleKey {
	return TupleKey{
		User: UserRef{
			Object:   ObjectRef{Type: rt.UserType, ID: rt.UserID},
			Relation: rt.UserRelation,
		},
		Relation: rt.Relation,
		Object:   ObjectRef{Type: rt.ObjectType, ID: rt.ObjectID},
	}
}

// newRelationTuple creates a row for a key inside a transaction stamped with
// the transaction id.
func newRelationTuple(key TupleKey, txid int64) *RelationTuple {
	return &RelationTuple{
		ID:           uuid.NewString(),
		UserType:     key.User.Object.Type,
		UserID:       key.User.Object.ID,
		UserRelation: key.User.Relation,
		Relation:     key.Relation,
		ObjectType:   key.Object.Type,
		ObjectID:     key.Object.ID,
		CreatedTxid:  txid,
		CreatedAt:    time.Now(),
	}
}

// ModelRecord is the stored form of an authorization model. The compiled
// form is rebuilt from Source on load; compilation is deterministic, so the
// row only needs the DSL text.
type ModelRecord struct {
	bun.BaseModel `bun:"table:authorization_models,alias:am"`

	VersionID     string    `bun:"version_id,pk"`
	SchemaVersion string    `bun:"schema_version,notnull"`
	Source        string    `bun:"source,notnull"`
	IsActive      bool      `bun:"is_active,notnull,default:false"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// newModelVersionID returns a sortable version id: UUIDv7 embeds the
// creation time, so lexical order matches creation order.
func newModelVersionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4
		// rather than failing model creation.
		return uuid.NewString()
	}
	return id.String()
}

// ChangeOperation is the kind of tuple mutation a changelog entry records.
type ChangeOperation string

const (
	OpWrite  ChangeOperation = "WRITE"
	OpDelete ChangeOperation = "DELETE"
)

// ChangelogEntry is one row of the append-only tuple mutation log, ordered
// by transaction id. Consumers flip Processed; nothing else ever mutates a
// row.
type ChangelogEntry struct {
	bun.BaseModel `bun:"table:tuple_changelog,alias:tc"`

	ID        string          `bun:"id,pk,type:uuid"`
	Operation ChangeOperation `bun:"operation,notnull"`
	TupleID   string          `bun:"tuple_id,notnull,type:uuid"`
	Txid      int64           `bun:"txid,notnull"`
	Timestamp time.Time       `bun:"timestamp,notnull,default:current_timestamp"`
	Processed bool            `bun:"processed,notnull,default:false"`
}

// newChangelogEntry creates an entry for a mutation inside its transaction.
func newChangelogEntry(op ChangeOperation, tupleID string, txid int64) *ChangelogEntry {
	return &ChangelogEntry{
		ID:        uuid.NewString(),
		Operation: op,
		TupleID:   tupleID,
		Txid:      txid,
		Timestamp: time.Now(),
	}
}
