package tuplekit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// MODEL OPERATIONS
// ============================================================================

// CreateModel compiles DSL source and persists it as a new model version.
// With activate set, the new version becomes the single active model in the
// same transaction that stores it.
//
// Compilation problems are returned as a *CompileError carrying every
// diagnostic; nothing is stored in that case.
//
// Example:
//
//	model, err := service.CreateModel(ctx, source, true)
//	if err != nil {
//	    if ce, ok := tuplekit.IsCompileError(err); ok {
//	        for _, d := range ce.Diagnostics {
//	            fmt.Println(d)
//	        }
//	    }
//	}
func (s *Service) CreateModel(ctx context.Context, source string, activate bool) (*AuthorizationModel, error) {
	model, err := Compile(source)
	if err != nil {
		return nil, err
	}
	model.VersionID = newModelVersionID()

	record := &ModelRecord{
		VersionID:     model.VersionID,
		SchemaVersion: model.SchemaVersion,
		Source:        source,
		IsActive:      activate,
		CreatedAt:     time.Now(),
	}

	err = s.runInTx(ctx, func(tx dbkit.IDB) error {
		if activate {
			result, err := tx.NewUpdate().
				Model((*ModelRecord)(nil)).
				Set("is_active = false").
				Where("is_active = true").
				Exec(ctx)
			if err := dbkit.WithErr(result, err, "DeactivateModels").Err(); err != nil {
				return err
			}
		}

		result, err := tx.NewInsert().Model(record).Exec(ctx)
		return dbkit.WithErr(result, err, "CreateModel").Err()
	})
	if err != nil {
		return nil, err
	}

	if activate {
		s.activeModel.Store(model)
	}
	return model, nil
}

// GetActiveModel returns the active model. The compiled model is cached after
// the first load; mutations that change the active version refresh the cache,
// and InvalidateModelCache drops it for external changes.
func (s *Service) GetActiveModel(ctx context.Context) (*AuthorizationModel, error) {
	if model := s.activeModel.Load(); model != nil {
		return model, nil
	}

	var record ModelRecord
	err := dbkit.WithErr1(s.db.NewSelect().
		Model(&record).
		Where("is_active = true").
		Limit(1).
		Scan(ctx), "GetActiveModel").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, ErrNoActiveModel
		}
		return nil, err
	}

	model, err := compileRecord(&record)
	if err != nil {
		return nil, err
	}
	s.activeModel.Store(model)
	return model, nil
}

// GetModel loads a specific model version and compiles it.
func (s *Service) GetModel(ctx context.Context, versionID string) (*AuthorizationModel, error) {
	var record ModelRecord
	err := dbkit.WithErr1(s.db.NewSelect().
		Model(&record).
		Where("version_id = ?", versionID).
		Limit(1).
		Scan(ctx), "GetModel").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrModelNotFound, versionID).WithModel(versionID)
		}
		return nil, err
	}
	return compileRecord(&record)
}

// ActivateModel makes the given version the single active model. The flip is
// one transaction: every other version is deactivated and the target
// activated together, so readers never observe two active models.
func (s *Service) ActivateModel(ctx context.Context, versionID string) error {
	var record ModelRecord

	err := s.runInTx(ctx, func(tx dbkit.IDB) error {
		err := dbkit.WithErr1(tx.NewSelect().
			Model(&record).
			Where("version_id = ?", versionID).
			Limit(1).
			Scan(ctx), "ActivateModel").Err()
		if err != nil {
			if dbkit.IsNotFound(err) {
				return NewError(ErrModelNotFound, versionID).WithModel(versionID)
			}
			return err
		}

		result, err := tx.NewUpdate().
			Model((*ModelRecord)(nil)).
			Set("is_active = false").
			Where("is_active = true").
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeactivateModels").Err(); err != nil {
			return err
		}

		result, err = tx.NewUpdate().
			Model((*ModelRecord)(nil)).
			Set("is_active = true").
			Where("version_id = ?", versionID).
			Exec(ctx)
		return dbkit.WithErr(result, err, "ActivateModel").Err()
	})
	if err != nil {
		return err
	}

	model, err := compileRecord(&record)
	if err != nil {
		return err
	}
	s.activeModel.Store(model)
	return nil
}

// ListModels returns every stored model version, newest first.
func (s *Service) ListModels(ctx context.Context) ([]ModelRecord, error) {
	var records []ModelRecord
	err := dbkit.WithErr1(s.db.NewSelect().
		Model(&records).
		Order("version_id DESC").
		Scan(ctx), "ListModels").Err()
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteModel removes an inactive model version. Deleting the active model
// fails with ErrModelActive; activate another version first.
func (s *Service) DeleteModel(ctx context.Context, versionID string) error {
	return s.runInTx(ctx, func(tx dbkit.IDB) error {
		var record ModelRecord
		err := dbkit.WithErr1(tx.NewSelect().
			Model(&record).
			Where("version_id = ?", versionID).
			Limit(1).
			Scan(ctx), "DeleteModel").Err()
		if err != nil {
			if dbkit.IsNotFound(err) {
				return NewError(ErrModelNotFound, versionID).WithModel(versionID)
			}
			return err
		}
		if record.IsActive {
			return NewError(ErrModelActive, versionID).WithModel(versionID)
		}

		result, err := tx.NewDelete().
			Model((*ModelRecord)(nil)).
			Where("version_id = ?", versionID).
			Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteModel").Err()
	})
}

// InvalidateModelCache drops the cached active model. The next GetActiveModel
// reloads from storage; call this after another process changed the active
// version.
func (s *Service) InvalidateModelCache() {
	s.activeModel.Store(nil)
}

// compileRecord rebuilds the compiled model from stored DSL source.
// Compilation is deterministic, so the rebuilt model matches what was
// validated at creation.
func compileRecord(record *ModelRecord) (*AuthorizationModel, error) {
	model, err := Compile(record.Source)
	if err != nil {
		return nil, err
	}
	model.VersionID = record.VersionID
	model.SchemaVersion = record.SchemaVersion
	return model, nil
}
