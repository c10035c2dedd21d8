package tuplekit

import (
	"sync/atomic"

	"github.com/fernandezvara/dbkit"
)

// Service is the Postgres-backed implementation of Store and Authorizer:
// tuple storage, model management, the changelog and permission checks over
// one database handle. It integrates with the database through dbkit with
// enhanced error handling.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations, and surface as package sentinels
// where the condition has a name.
//
// Example error handling:
//
//	_, err := service.WriteTuples(ctx, keys)
//	if err != nil {
//	    if tuplekit.IsDuplicateTuple(err) {
//	        // The fact already exists as a live row
//	    }
//
//	    // Access rich error details
//	    var dbErr *dbkit.Error
//	    if errors.As(err, &dbErr) {
//	        fmt.Printf("Operation: %s, Table: %s\n", dbErr.Operation, dbErr.Table)
//	    }
//	}
type Service struct {
	db      dbkit.IDB
	checker *Checker

	// activeModel is allocated once and shared with every transaction-bound
	// view, so an activation inside a transaction is visible to the parent.
	activeModel *atomic.Pointer[AuthorizationModel]

	txMonitor   *transactionMonitor
	checkerOpts []CheckerOption
}

var _ Store = (*Service)(nil)
var _ CheckStore = (*Service)(nil)
var _ Authorizer = (*Service)(nil)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCheckerOptions passes options through to the embedded check engine.
//
// Example:
//
//	service := tuplekit.NewService(db,
//	    tuplekit.WithCheckerOptions(tuplekit.WithMaxDepth(10)))
func WithCheckerOptions(opts ...CheckerOption) ServiceOption {
	return func(s *Service) {
		s.checkerOpts = append(s.checkerOpts, opts...)
	}
}

// NewService creates a new TupleKit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := tuplekit.NewService(db)
func NewService(db dbkit.IDB, opts ...ServiceOption) *Service {
	s := &Service{
		db:          db,
		activeModel: &atomic.Pointer[AuthorizationModel]{},
		txMonitor:   newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.checker = NewChecker(s, s.checkerOpts...)
	return s
}

// Checker returns the embedded check engine.
func (s *Service) Checker() *Checker {
	return s.checker
}
