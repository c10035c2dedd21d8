package tuplekit

// SchemaVersion identifies the model schema understood by this engine.
const SchemaVersion = "1.1"

// AuthorizationModel is a compiled permission model: a graph from object type
// to relation to rewrite rule. Models are immutable once created; a new
// version is compiled and activated instead of mutating an existing one.
type AuthorizationModel struct {
	VersionID     string // sortable version id, assigned on persist
	SchemaVersion string
	Source        string // raw DSL source, empty for builder-made models
	Types         map[string]*TypeDefinition
}

// TypeDefinition declares an object type and its relations.
type TypeDefinition struct {
	Name      string
	Relations map[string]Rewrite
}

// Relation returns the rewrite for a relation, or nil if undeclared.
func (t *TypeDefinition) Relation(name string) Rewrite {
	if t == nil {
		return nil
	}
	return t.Relations[name]
}

// TypeDef returns the definition for an object type, or nil if undeclared.
func (m *AuthorizationModel) TypeDef(name string) *TypeDefinition {
	if m == nil {
		return nil
	}
	return m.Types[name]
}

// RewriteKind tags the closed set of rewrite rule variants.
type RewriteKind string

const (
	RewriteDirect         RewriteKind = "direct"
	RewriteComputed       RewriteKind = "computed"
	RewriteTupleToUserset RewriteKind = "tuple_to_userset"
	RewriteUnion          RewriteKind = "union"
	RewriteIntersection   RewriteKind = "intersection"
	RewriteExclusion      RewriteKind = "exclusion"
)

// Position is a location in DSL source, for diagnostics.
type Position struct {
	Line   int
	Column int
}

// Rewrite is the rule describing how a relation is computed. It is a sealed
// sum type: the six implementations below are the only variants, and the
// evaluator switches over them exhaustively.
type Rewrite interface {
	Kind() RewriteKind
	isRewrite()
}

// DirectRewrite grants the relation through explicitly written tuples.
// AllowedRefs restricts which user types (including userset references and
// the wildcard) may be assigned.
type DirectRewrite struct {
	AllowedRefs []SubjectTypeRef
	Pos         Position
}

func (*DirectRewrite) Kind() RewriteKind { return RewriteDirect }
func (*DirectRewrite) isRewrite()        {}

// ComputedRewrite redirects to another relation on the same object.
// "editor: owner" grants editor to anyone holding owner.
type ComputedRewrite struct {
	Relation string
	Pos      Position
}

func (*ComputedRewrite) Kind() RewriteKind { return RewriteComputed }
func (*ComputedRewrite) isRewrite()        {}

// TupleToUsersetRewrite follows tuples holding the tupleset relation on the
// current object, then evaluates the computed relation on each matched
// tuple's user. "parent.viewer" inherits viewer from the parent object.
type TupleToUsersetRewrite struct {
	TuplesetRelation string
	ComputedRelation string
	Pos              Position
}

func (*TupleToUsersetRewrite) Kind() RewriteKind { return RewriteTupleToUserset }
func (*TupleToUsersetRewrite) isRewrite()        {}

// UnionRewrite is satisfied when any child is satisfied.
type UnionRewrite struct {
	Children []Rewrite
	Pos      Position
}

func (*UnionRewrite) Kind() RewriteKind { return RewriteUnion }
func (*UnionRewrite) isRewrite()        {}

// IntersectionRewrite is satisfied only when every child is satisfied.
type IntersectionRewrite struct {
	Children []Rewrite
	Pos      Position
}

func (*IntersectionRewrite) Kind() RewriteKind { return RewriteIntersection }
func (*IntersectionRewrite) isRewrite()        {}

// ExclusionRewrite is satisfied when Base is satisfied and Subtract is not.
// "viewer but not blocked" reads Base=viewer, Subtract=blocked.
type ExclusionRewrite struct {
	Base     Rewrite
	Subtract Rewrite
	Pos      Position
}

func (*ExclusionRewrite) Kind() RewriteKind { return RewriteExclusion }
func (*ExclusionRewrite) isRewrite()        {}
