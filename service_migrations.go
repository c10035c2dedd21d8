package tuplekit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for TupleKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "tuplekit-001",
			Description: "Create transaction id sequence",
			SQL: `
                CREATE SEQUENCE IF NOT EXISTS tuple_txid_seq`,
		},
		{
			ID:          "tuplekit-002",
			Description: "Create relation_tuples table",
			SQL: `
                CREATE TABLE IF NOT EXISTS relation_tuples (
                    id UUID PRIMARY KEY,
                    user_type TEXT NOT NULL,
                    user_id TEXT NOT NULL,
                    user_relation TEXT NOT NULL DEFAULT '',
                    relation TEXT NOT NULL,
                    object_type TEXT NOT NULL,
                    object_id TEXT NOT NULL,
                    created_txid BIGINT NOT NULL,
                    deleted_txid BIGINT NOT NULL DEFAULT 0,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "tuplekit-003",
			Description: "Create live tuple uniqueness index",
			SQL: `
                CREATE UNIQUE INDEX IF NOT EXISTS idx_relation_tuples_live
                ON relation_tuples (user_type, user_id, user_relation, relation, object_type, object_id)
                WHERE deleted_txid = 0`,
		},
		{
			ID:          "tuplekit-004",
			Description: "Create tuple lookup index",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_relation_tuples_object
                ON relation_tuples (object_type, object_id, relation)
                WHERE deleted_txid = 0`,
		},
		{
			ID:          "tuplekit-005",
			Description: "Create reverse lookup index",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_relation_tuples_user
                ON relation_tuples (user_type, user_id, relation, object_type)
                WHERE deleted_txid = 0`,
		},
		{
			ID:          "tuplekit-006",
			Description: "Create authorization_models table",
			SQL: `
                CREATE TABLE IF NOT EXISTS authorization_models (
                    version_id TEXT PRIMARY KEY,
                    schema_version TEXT NOT NULL,
                    source TEXT NOT NULL,
                    is_active BOOLEAN NOT NULL DEFAULT false,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "tuplekit-007",
			Description: "Create single active model index",
			SQL: `
                CREATE UNIQUE INDEX IF NOT EXISTS idx_authorization_models_active
                ON authorization_models ((true))
                WHERE is_active`,
		},
		{
			ID:          "tuplekit-008",
			Description: "Create tuple_changelog table",
			SQL: `
                CREATE TABLE IF NOT EXISTS tuple_changelog (
                    id UUID PRIMARY KEY,
                    operation TEXT NOT NULL,
                    tuple_id UUID NOT NULL,
                    txid BIGINT NOT NULL,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    processed BOOLEAN NOT NULL DEFAULT false
                )`,
		},
		{
			ID:          "tuplekit-009",
			Description: "Create changelog indexes",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_tuple_changelog_txid
                ON tuple_changelog (txid);
                CREATE INDEX IF NOT EXISTS idx_tuple_changelog_unprocessed
                ON tuple_changelog (txid)
                WHERE processed = false`,
		},
	}
}
