package tuplekit

import "fmt"

// visitKey identifies one evaluation step for cycle detection: the same
// (user, relation, object, rewrite kind) appearing twice in a call tree
// means the rewrite graph looped back on itself.
type visitKey struct {
	user     string
	relation string
	object   string
	kind     RewriteKind
}

// checkContext is the per-request evaluation state: the subject being
// checked, recursion depth, the visited set for cycle detection, and
// caller-supplied contextual tuples. It never outlives a single top-level
// check.
//
// Branching clones the context (child) instead of sharing it, so sibling
// branches cannot contaminate each other's visited sets.
type checkContext struct {
	user       UserRef
	depth      int
	maxDepth   int
	visited    map[visitKey]struct{}
	contextual []TupleKey

	// trace is shared across clones: a single check evaluates sequentially,
	// and the log is chronological by design.
	trace *traceLog
}

func newCheckContext(user UserRef, maxDepth int, contextual []TupleKey, trace bool) *checkContext {
	ec := &checkContext{
		user:       user,
		maxDepth:   maxDepth,
		visited:    make(map[visitKey]struct{}),
		contextual: contextual,
	}
	if trace {
		ec.trace = &traceLog{}
	}
	return ec
}

// child clones the context for a nested evaluation: depth advances and the
// visited set is copied by value.
func (ec *checkContext) child() *checkContext {
	visited := make(map[visitKey]struct{}, len(ec.visited)+1)
	for k := range ec.visited {
		visited[k] = struct{}{}
	}
	return &checkContext{
		user:       ec.user,
		depth:      ec.depth + 1,
		maxDepth:   ec.maxDepth,
		visited:    visited,
		contextual: ec.contextual,
		trace:      ec.trace,
	}
}

// seen reports whether the step was already evaluated in this call tree.
func (ec *checkContext) seen(key visitKey) bool {
	_, ok := ec.visited[key]
	return ok
}

// mark records the step in the visited set.
func (ec *checkContext) mark(key visitKey) {
	ec.visited[key] = struct{}{}
}

// contextualForRelation returns the caller-supplied tuples matching the
// object and relation, for merging with stored tuples.
func (ec *checkContext) contextualForRelation(object ObjectRef, relation string) []TupleKey {
	var out []TupleKey
	for _, t := range ec.contextual {
		if t.Relation == relation && t.Object == object {
			out = append(out, t)
		}
	}
	return out
}

// tracef appends a line to the evaluation log when tracing is enabled.
func (ec *checkContext) tracef(format string, args ...any) {
	if ec.trace == nil {
		return
	}
	prefix := ""
	for i := 0; i < ec.depth; i++ {
		prefix += "  "
	}
	ec.trace.lines = append(ec.trace.lines, prefix+fmt.Sprintf(format, args...))
}

// traceLog collects the chronological evaluation log of one check.
type traceLog struct {
	lines []string
}
