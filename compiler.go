package tuplekit

import "fmt"

// Compile turns DSL source into an AuthorizationModel, or a CompileError
// with positioned diagnostics. It is a pure function: no store access, no
// side effects, and the same source always yields the same model.
//
// Compilation statically rejects rewrites that reference relations or types
// absent from the model, independent of any stored tuples.
func Compile(source string) (*AuthorizationModel, error) {
	parsed, diag := parseModel(source)
	if diag != nil {
		return nil, &CompileError{Diagnostics: []Diagnostic{*diag}}
	}
	model, diags := analyze(parsed)
	if len(diags) > 0 {
		return nil, &CompileError{Diagnostics: diags}
	}
	model.Source = source
	return model, nil
}

// MustCompile is like Compile but panics on error. For tests and static
// model definitions.
func MustCompile(source string) *AuthorizationModel {
	model, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return model
}

// analyze validates a parsed model and builds the compiled type/relation
// graph. Unlike parsing, analysis collects every finding instead of stopping
// at the first.
func analyze(parsed *parsedModel) (*AuthorizationModel, []Diagnostic) {
	var diags []Diagnostic
	report := func(pos Position, format string, args ...any) {
		diags = append(diags, Diagnostic{Pos: pos, Message: fmt.Sprintf(format, args...)})
	}

	model := &AuthorizationModel{
		SchemaVersion: SchemaVersion,
		Types:         make(map[string]*TypeDefinition, len(parsed.types)),
	}

	// Pass 1: register every type and relation name so forward references
	// resolve regardless of declaration order.
	allRelations := make(map[string]bool)
	for _, t := range parsed.types {
		if _, exists := model.Types[t.name]; exists {
			report(t.pos, "duplicate type %q", t.name)
			continue
		}
		def := &TypeDefinition{
			Name:      t.name,
			Relations: make(map[string]Rewrite, len(t.relations)),
		}
		model.Types[t.name] = def
		for _, r := range t.relations {
			if _, exists := def.Relations[r.name]; exists {
				report(r.pos, "duplicate relation %q on type %q", r.name, t.name)
				continue
			}
			def.Relations[r.name] = r.rewrite
			allRelations[r.name] = true
		}
	}

	// Pass 2: validate every rewrite reference.
	for _, t := range parsed.types {
		def := model.Types[t.name]
		if def == nil {
			continue
		}
		for _, r := range t.relations {
			walkRewrite(r.rewrite, func(rw Rewrite) {
				switch v := rw.(type) {
				case *DirectRewrite:
					for _, ref := range v.AllowedRefs {
						if ref.Wildcard {
							continue
						}
						target, ok := model.Types[ref.Type]
						if !ok {
							report(v.Pos, "unknown type %q in allowed types of %s.%s", ref.Type, t.name, r.name)
							continue
						}
						if ref.Relation != "" && target.Relations[ref.Relation] == nil {
							report(v.Pos, "unknown relation %q on type %q in allowed types of %s.%s",
								ref.Relation, ref.Type, t.name, r.name)
						}
					}
				case *ComputedRewrite:
					if def.Relations[v.Relation] == nil {
						report(v.Pos, "unknown relation %q referenced by %s.%s", v.Relation, t.name, r.name)
					}
				case *TupleToUsersetRewrite:
					if def.Relations[v.TuplesetRelation] == nil {
						report(v.Pos, "unknown tupleset relation %q referenced by %s.%s",
							v.TuplesetRelation, t.name, r.name)
					}
					if !allRelations[v.ComputedRelation] {
						report(v.Pos, "relation %q referenced by %s.%s is not declared on any type",
							v.ComputedRelation, t.name, r.name)
					}
				}
			})
		}
	}

	if len(diags) > 0 {
		return nil, diags
	}
	return model, nil
}

// walkRewrite visits a rewrite tree depth-first.
func walkRewrite(rw Rewrite, visit func(Rewrite)) {
	visit(rw)
	switch v := rw.(type) {
	case *UnionRewrite:
		for _, c := range v.Children {
			walkRewrite(c, visit)
		}
	case *IntersectionRewrite:
		for _, c := range v.Children {
			walkRewrite(c, visit)
		}
	case *ExclusionRewrite:
		walkRewrite(v.Base, visit)
		walkRewrite(v.Subtract, visit)
	}
}
