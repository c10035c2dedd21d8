package tuplekit

// ModelBuilder constructs an AuthorizationModel programmatically, as an
// alternative to DSL source. The result passes through the same semantic
// validation as compiled source, so a builder-made model and its DSL
// equivalent behave identically.
//
// Example:
//
//	model, err := tuplekit.NewModelBuilder().
//	    Type("user").
//	    Type("team").
//	        Relation("member", tuplekit.Direct(tuplekit.Ref("user"))).
//	    Type("document").
//	        Relation("owner", tuplekit.Direct(tuplekit.Ref("user"))).
//	        Relation("editor", tuplekit.Union(
//	            tuplekit.Direct(tuplekit.Ref("user")),
//	            tuplekit.Computed("owner"),
//	        )).
//	    Build()
type ModelBuilder struct {
	types []*parsedType
}

// NewModelBuilder creates an empty model builder.
func NewModelBuilder() *ModelBuilder {
	return &ModelBuilder{}
}

// Type starts defining an object type. Returns a TypeBuilder for fluent
// relation definitions.
func (b *ModelBuilder) Type(name string) *TypeBuilder {
	t := &parsedType{name: name}
	b.types = append(b.types, t)
	return &TypeBuilder{builder: b, t: t}
}

// Build validates the definitions and returns the compiled model.
// Validation findings are returned as a CompileError; builder-made models
// carry no source positions.
func (b *ModelBuilder) Build() (*AuthorizationModel, error) {
	model, diags := analyze(&parsedModel{types: b.types})
	if len(diags) > 0 {
		return nil, &CompileError{Diagnostics: diags}
	}
	return model, nil
}

// TypeBuilder defines relations for one object type.
type TypeBuilder struct {
	builder *ModelBuilder
	t       *parsedType
}

// Relation adds a relation with its rewrite rule to this type.
func (tb *TypeBuilder) Relation(name string, rw Rewrite) *TypeBuilder {
	tb.t.relations = append(tb.t.relations, &parsedRelation{name: name, rewrite: rw})
	return tb
}

// Type continues defining the next object type (fluent API).
func (tb *TypeBuilder) Type(name string) *TypeBuilder {
	return tb.builder.Type(name)
}

// Build finishes the fluent chain and validates the whole model.
func (tb *TypeBuilder) Build() (*AuthorizationModel, error) {
	return tb.builder.Build()
}

// Rewrite constructors for the builder API.

// Ref creates a bare subject type reference ("user").
func Ref(subjectType string) SubjectTypeRef {
	return SubjectTypeRef{Type: subjectType}
}

// UsersetTypeRef creates a userset reference ("team#member").
func UsersetTypeRef(subjectType, relation string) SubjectTypeRef {
	return SubjectTypeRef{Type: subjectType, Relation: relation}
}

// WildcardRef creates the "*" (any subject type) reference.
func WildcardRef() SubjectTypeRef {
	return SubjectTypeRef{Wildcard: true}
}

// Direct creates a direct rewrite with the allowed subject type list.
func Direct(refs ...SubjectTypeRef) Rewrite {
	return &DirectRewrite{AllowedRefs: refs}
}

// Computed creates a redirect to another relation on the same object.
func Computed(relation string) Rewrite {
	return &ComputedRewrite{Relation: relation}
}

// TupleToUserset creates a "relation from linked object" rewrite: follow
// tuples with the tupleset relation, then evaluate the computed relation on
// each matched tuple's user.
func TupleToUserset(tuplesetRelation, computedRelation string) Rewrite {
	return &TupleToUsersetRewrite{
		TuplesetRelation: tuplesetRelation,
		ComputedRelation: computedRelation,
	}
}

// Union combines rewrites; any satisfied child satisfies the relation.
func Union(children ...Rewrite) Rewrite {
	return &UnionRewrite{Children: children}
}

// Intersection combines rewrites; every child must be satisfied.
func Intersection(children ...Rewrite) Rewrite {
	return &IntersectionRewrite{Children: children}
}

// Exclusion is satisfied when base is satisfied and subtract is not.
func Exclusion(base, subtract Rewrite) Rewrite {
	return &ExclusionRewrite{Base: base, Subtract: subtract}
}
