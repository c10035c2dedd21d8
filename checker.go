package tuplekit

import (
	"context"
	"fmt"
	"sync"
)

const (
	// DefaultMaxDepth bounds check recursion through rewrite rules and
	// userset tuples.
	DefaultMaxDepth = 25

	// MaxBatchSize bounds the number of entries in one BatchCheck call.
	MaxBatchSize = 100
)

// CheckRequest describes one permission question: does User hold Relation on
// Object under the active (or pinned) authorization model?
type CheckRequest struct {
	// User is the subject reference: "user:alice" or "team:eng#member".
	User string

	// Relation is the relation to test, declared on the object's type.
	Relation string

	// Object is the target reference: "document:readme".
	Object string

	// ContextualTuples are request-scoped facts merged with stored tuples
	// for the duration of this check. They are never persisted.
	ContextualTuples []TupleKey

	// Trace enables the evaluation log on the result.
	Trace bool

	// ModelVersion pins the check to a specific model version. Empty means
	// the active model.
	ModelVersion string

	// MaxDepth overrides the engine's recursion limit for this request.
	// Zero means the engine default.
	MaxDepth int

	// MinTxid requires the store to have seen at least this transaction id,
	// typically the token returned by an earlier write. The check fails with
	// ErrStaleRead when the store is behind.
	MinTxid int64
}

// CheckResult is the outcome of a check.
type CheckResult struct {
	// Allowed is the decision.
	Allowed bool

	// Resolution is the evaluation log, populated when the request enabled
	// tracing.
	Resolution []string
}

// BatchCheckResult is one entry of a BatchCheck outcome. Err is set when that
// entry's evaluation faulted; faults never abort the rest of the batch.
type BatchCheckResult struct {
	Allowed bool
	Err     error
}

// Checker answers permission questions by recursively resolving rewrite
// rules against stored and contextual tuples. It is stateless between calls
// and safe for concurrent use.
type Checker struct {
	store        CheckStore
	maxDepth     int
	strictCycles bool
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithMaxDepth overrides the recursion depth limit.
func WithMaxDepth(depth int) CheckerOption {
	return func(c *Checker) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithStrictCycles makes cyclic rewrite chains fail with ErrCycleDetected
// instead of resolving to a deny.
func WithStrictCycles() CheckerOption {
	return func(c *Checker) {
		c.strictCycles = true
	}
}

// NewChecker creates a check engine over a store.
func NewChecker(store CheckStore, opts ...CheckerOption) *Checker {
	c := &Checker{
		store:    store,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check evaluates one permission question.
//
// The object's type and the relation must be declared by the model; asking
// about undeclared names is an ErrTypeNotFound/ErrRelationNotFound fault, not
// a deny. Cyclic rewrite data resolves to a deny unless the engine runs with
// WithStrictCycles.
func (c *Checker) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	user, err := ParseUserRef(req.User)
	if err != nil {
		return CheckResult{}, err
	}
	object, err := ParseObjectRef(req.Object)
	if err != nil {
		return CheckResult{}, err
	}
	if err := validateRelationName(req.Relation); err != nil {
		return CheckResult{}, err
	}
	for _, t := range req.ContextualTuples {
		if err := t.Validate(); err != nil {
			return CheckResult{}, err
		}
	}

	if req.MinTxid > 0 {
		latest, err := c.store.GetLatestTxid(ctx)
		if err != nil {
			return CheckResult{}, wrapEval(err)
		}
		if latest < req.MinTxid {
			return CheckResult{}, NewError(ErrStaleRead,
				fmt.Sprintf("store at txid %d, token requires %d", latest, req.MinTxid))
		}
	}

	model, err := c.resolveModel(ctx, req.ModelVersion)
	if err != nil {
		return CheckResult{}, wrapEval(err)
	}

	typeDef := model.TypeDef(object.Type)
	if typeDef == nil {
		return CheckResult{}, NewError(ErrTypeNotFound, object.Type).
			WithObject(req.Object).WithModel(model.VersionID)
	}
	if typeDef.Relation(req.Relation) == nil {
		return CheckResult{}, NewError(ErrRelationNotFound,
			fmt.Sprintf("%s on type %s", req.Relation, object.Type)).
			WithRelation(req.Relation).WithObject(req.Object).WithModel(model.VersionID)
	}

	maxDepth := c.maxDepth
	if req.MaxDepth > 0 {
		maxDepth = req.MaxDepth
	}
	ec := newCheckContext(user, maxDepth, req.ContextualTuples, req.Trace)
	allowed, err := c.evaluate(ctx, model, req.Relation, object, ec)
	if err != nil {
		return CheckResult{}, wrapEval(err)
	}

	result := CheckResult{Allowed: allowed}
	if ec.trace != nil {
		result.Resolution = ec.trace.lines
	}
	return result, nil
}

// BatchCheck evaluates up to MaxBatchSize independent questions concurrently.
// Results are positional; a fault in one entry is reported on that entry only.
func (c *Checker) BatchCheck(ctx context.Context, reqs []CheckRequest) ([]BatchCheckResult, error) {
	if len(reqs) > MaxBatchSize {
		return nil, NewError(ErrBatchTooLarge,
			fmt.Sprintf("%d checks requested, limit is %d", len(reqs), MaxBatchSize))
	}

	results := make([]BatchCheckResult, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req CheckRequest) {
			defer wg.Done()
			res, err := c.Check(ctx, req)
			if err != nil {
				results[i] = BatchCheckResult{Err: err}
				return
			}
			results[i] = BatchCheckResult{Allowed: res.Allowed}
		}(i, req)
	}
	wg.Wait()
	return results, nil
}

func (c *Checker) resolveModel(ctx context.Context, versionID string) (*AuthorizationModel, error) {
	if versionID == "" {
		return c.store.GetActiveModel(ctx)
	}
	return c.store.GetModel(ctx, versionID)
}

// evaluate resolves a declared relation on an object for the context's user.
// This is the cycle-detection boundary: each (user, relation, object, kind)
// step is evaluated at most once per call tree.
func (c *Checker) evaluate(ctx context.Context, model *AuthorizationModel, relation string, object ObjectRef, ec *checkContext) (bool, error) {
	rewrite := model.TypeDef(object.Type).Relation(relation)

	key := visitKey{
		user:     ec.user.String(),
		relation: relation,
		object:   object.String(),
		kind:     rewrite.Kind(),
	}
	if ec.seen(key) {
		if c.strictCycles {
			return false, NewError(ErrCycleDetected,
				fmt.Sprintf("%s on %s", relation, object)).
				WithUser(ec.user.String()).WithRelation(relation).WithObject(object.String())
		}
		ec.tracef("cycle at %s on %s, resolving as deny", relation, object)
		return false, nil
	}
	ec.mark(key)

	ec.tracef("%s on %s (%s)", relation, object, rewrite.Kind())
	return c.evalRewrite(ctx, model, rewrite, relation, object, ec)
}

// evalRewrite dispatches over the rewrite sum type. Combinator children are
// evaluated in cloned contexts so sibling branches keep independent visited
// sets.
func (c *Checker) evalRewrite(ctx context.Context, model *AuthorizationModel, rewrite Rewrite, relation string, object ObjectRef, ec *checkContext) (bool, error) {
	if ec.depth >= ec.maxDepth {
		return false, NewError(ErrMaxDepthExceeded,
			fmt.Sprintf("depth %d while resolving %s on %s", ec.depth, relation, object)).
			WithUser(ec.user.String()).WithRelation(relation).WithObject(object.String())
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	switch rw := rewrite.(type) {
	case *DirectRewrite:
		return c.evalDirect(ctx, model, rw, relation, object, ec)

	case *ComputedRewrite:
		return c.evaluate(ctx, model, rw.Relation, object, ec.child())

	case *TupleToUsersetRewrite:
		return c.evalTupleToUserset(ctx, model, rw, object, ec)

	case *UnionRewrite:
		for _, child := range rw.Children {
			ok, err := c.evalRewrite(ctx, model, child, relation, object, ec.child())
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case *IntersectionRewrite:
		for _, child := range rw.Children {
			ok, err := c.evalRewrite(ctx, model, child, relation, object, ec.child())
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return len(rw.Children) > 0, nil

	case *ExclusionRewrite:
		base, err := c.evalRewrite(ctx, model, rw.Base, relation, object, ec.child())
		if err != nil {
			return false, err
		}
		if !base {
			return false, nil
		}
		subtract, err := c.evalRewrite(ctx, model, rw.Subtract, relation, object, ec.child())
		if err != nil {
			return false, err
		}
		return !subtract, nil

	default:
		// Rewrite is a sealed interface; a new variant without an evaluator
		// arm is a programming error.
		panic(fmt.Sprintf("tuplekit: unknown rewrite kind %q", rewrite.Kind()))
	}
}

// evalDirect resolves a direct rewrite: the user holds the relation when a
// matching tuple exists, either literally, through a wildcard grant, or
// through membership in a userset the relation was granted to.
func (c *Checker) evalDirect(ctx context.Context, model *AuthorizationModel, rw *DirectRewrite, relation string, object ObjectRef, ec *checkContext) (bool, error) {
	if !allowsUser(rw.AllowedRefs, ec.user) {
		ec.tracef("user type %s not assignable, deny", ec.user.Object.Type)
		return false, nil
	}

	stored, err := c.store.FindTuplesByRelation(ctx, object, relation)
	if err != nil {
		return false, wrapEval(err)
	}
	tuples := append(stored, ec.contextualForRelation(object, relation)...)

	for _, t := range tuples {
		if t.User == ec.user {
			ec.tracef("matched tuple %s", t)
			return true, nil
		}
		if !t.User.IsUserset() {
			// Wildcard rows grant every direct user of the type, but only
			// when the relation opted in with a wildcard entry.
			if t.User.IsWildcard() && !ec.user.IsUserset() &&
				t.User.Object.Type == ec.user.Object.Type && hasWildcardRef(rw.AllowedRefs) {
				ec.tracef("matched wildcard tuple %s", t)
				return true, nil
			}
			continue
		}
		if ec.user.IsUserset() {
			// A userset subject matches only literally; membership between
			// two usersets is not expanded here.
			continue
		}
		// Userset tuple: the user holds the relation if they are a member of
		// the referenced set. Skip sets the model cannot resolve.
		target := t.User.Object
		if model.TypeDef(target.Type).Relation(t.User.Relation) == nil {
			continue
		}
		ok, err := c.evaluate(ctx, model, t.User.Relation, target, ec.child())
		if err != nil {
			return false, err
		}
		if ok {
			ec.tracef("member of %s via tuple %s", t.User, t)
			return true, nil
		}
	}
	return false, nil
}

// evalTupleToUserset resolves "computed from tupleset": follow tuples holding
// the tupleset relation on the object, then evaluate the computed relation on
// each linked object. Linked objects whose type does not declare the computed
// relation are skipped, not faulted, since the tupleset may legitimately span
// heterogeneous targets.
func (c *Checker) evalTupleToUserset(ctx context.Context, model *AuthorizationModel, rw *TupleToUsersetRewrite, object ObjectRef, ec *checkContext) (bool, error) {
	stored, err := c.store.FindTuplesByRelation(ctx, object, rw.TuplesetRelation)
	if err != nil {
		return false, wrapEval(err)
	}
	tuples := append(stored, ec.contextualForRelation(object, rw.TuplesetRelation)...)

	for _, t := range tuples {
		if t.User.IsUserset() || t.User.IsWildcard() {
			continue
		}
		target := t.User.Object
		if model.TypeDef(target.Type).Relation(rw.ComputedRelation) == nil {
			continue
		}
		ok, err := c.evaluate(ctx, model, rw.ComputedRelation, target, ec.child())
		if err != nil {
			return false, err
		}
		if ok {
			ec.tracef("%s on linked %s via tuple %s", rw.ComputedRelation, target, t)
			return true, nil
		}
	}
	return false, nil
}

// hasWildcardRef reports whether the allowed-type list contains the bare
// wildcard entry.
func hasWildcardRef(refs []SubjectTypeRef) bool {
	for _, r := range refs {
		if r.Wildcard {
			return true
		}
	}
	return false
}
