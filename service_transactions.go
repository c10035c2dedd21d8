package tuplekit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// runInTx executes fn inside a database transaction, reusing the surrounding
// transaction via a savepoint when the service was built over one. Every
// tuple mutation goes through here so rows and changelog entries always
// commit together.
func (s *Service) runInTx(ctx context.Context, fn func(tx dbkit.IDB) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(tx)
		})
	case *dbkit.DBKit:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(tx)
		})
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	s.txMonitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// Transaction executes a function within a database transaction with automatic
// commit/rollback. If the function returns an error, the transaction is rolled
// back. Otherwise, it's committed. The callback receives a Service bound to
// the transaction; tuple and model operations on it are part of the
// transaction.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context, tx *tuplekit.Service) error {
//	    if _, err := tx.WriteTuples(ctx, grantKeys); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    _, err := tx.DeleteTuples(ctx, revokeKeys)
//	    return err // nil will cause a commit
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error {
	err := s.runInTx(ctx, func(tx dbkit.IDB) error {
		return fn(ctx, s.withDB(tx))
	})
	if err != nil {
		// The rollback may have undone a model activation that already
		// reached the shared cache; force a reload from committed state.
		s.InvalidateModelCache()
	}
	return err
}

// ReadOnlyTransaction executes a function within a read-only database
// transaction. Useful for multi-query reads that need one consistent
// snapshot.
//
// Example:
//
//	err := service.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *tuplekit.Service) error {
//	    tuples, err := tx.FindTuples(ctx, object)
//	    if err != nil {
//	        return err
//	    }
//	    txid, err := tx.GetLatestTxid(ctx)
//	    return err
//	})
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		// Already inside a transaction; run in a savepoint instead.
		return s.Transaction(ctx, fn)
	}

	start := time.Now()
	err := db.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), func(tx *dbkit.Tx) error {
		return fn(ctx, s.withDB(tx))
	})
	s.txMonitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// withDB returns a Service view bound to another database handle, sharing the
// monitor and model cache with the parent.
func (s *Service) withDB(db dbkit.IDB) *Service {
	view := &Service{
		db:          db,
		activeModel: s.activeModel,
		txMonitor:   s.txMonitor,
		checkerOpts: s.checkerOpts,
	}
	view.checker = NewChecker(view, view.checkerOpts...)
	return view
}

// GetTransactionMetrics returns the current transaction performance metrics.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics resets all transaction metrics.
func (s *Service) ResetTransactionMetrics() {
	s.txMonitor.reset()
}

// IsTransactionHealthy checks if transaction performance is within acceptable
// thresholds.
func (s *Service) IsTransactionHealthy() bool {
	metrics := s.txMonitor.getMetrics()

	// Too few samples to judge.
	if metrics.TotalTransactions < 10 {
		return true
	}

	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}

	if metrics.AverageDuration > time.Second {
		return false
	}

	return true
}
