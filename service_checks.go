package tuplekit

import (
	"context"
)

// ============================================================================
// PERMISSION CHECKS
// ============================================================================

// Check evaluates one permission question against the stored tuples and the
// active (or pinned) model. Request fields left empty fall back to context
// values set by WithUser and WithConsistency.
//
// Example:
//
//	result, err := service.Check(ctx, tuplekit.CheckRequest{
//	    User:     "user:alice",
//	    Relation: "viewer",
//	    Object:   "document:readme",
//	})
func (s *Service) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	if req.User == "" {
		req.User = GetUser(ctx)
	}
	if req.MinTxid == 0 {
		req.MinTxid = GetConsistency(ctx)
	}
	return s.checker.Check(ctx, req)
}

// BatchCheck evaluates up to MaxBatchSize independent questions concurrently.
// Results are positional and faults are isolated per entry.
func (s *Service) BatchCheck(ctx context.Context, reqs []CheckRequest) ([]BatchCheckResult, error) {
	// Fill context fallbacks on a copy; the caller's slice stays untouched.
	scoped := make([]CheckRequest, len(reqs))
	for i, req := range reqs {
		if req.User == "" {
			req.User = GetUser(ctx)
		}
		if req.MinTxid == 0 {
			req.MinTxid = GetConsistency(ctx)
		}
		scoped[i] = req
	}
	return s.checker.BatchCheck(ctx, scoped)
}

// RequirePermission is Check folded into an error: nil when allowed,
// ErrDenied when the check resolves to deny, the evaluation fault otherwise.
//
// Example:
//
//	if err := service.RequirePermission(ctx, "user:alice", "editor", "document:readme"); err != nil {
//	    return err
//	}
func (s *Service) RequirePermission(ctx context.Context, user, relation, object string) error {
	result, err := s.Check(ctx, CheckRequest{
		User:     user,
		Relation: relation,
		Object:   object,
	})
	if err != nil {
		return err
	}
	if !result.Allowed {
		return NewError(ErrDenied, "").
			WithUser(user).
			WithRelation(relation).
			WithObject(object)
	}
	return nil
}
