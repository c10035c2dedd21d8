package tuplekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompileValidModel tests compiling a complete model
func TestCompileValidModel(t *testing.T) {
	model, err := Compile(testModelSource)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, model.SchemaVersion)
	assert.Equal(t, testModelSource, model.Source)
	assert.Len(t, model.Types, 4)

	doc := model.TypeDef("document")
	require.NotNil(t, doc)
	assert.NotNil(t, doc.Relation("viewer"))
	assert.NotNil(t, doc.Relation("allowed"))
	assert.Nil(t, doc.Relation("missing"))

	assert.Nil(t, model.TypeDef("missing"))
}

// TestCompileDeterministic tests that the same source compiles identically
func TestCompileDeterministic(t *testing.T) {
	a := MustCompile(testModelSource)
	b := MustCompile(testModelSource)
	assert.Equal(t, a, b)
}

// TestCompileUnknownTypeInDirectList tests static ref validation
func TestCompileUnknownTypeInDirectList(t *testing.T) {
	_, err := Compile(`
		type doc {
			relations {
				viewer: [ghost]
			}
		}
	`)
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)
	require.Len(t, ce.Diagnostics, 1)
	assert.Contains(t, ce.Diagnostics[0].Message, `unknown type "ghost"`)
}

// TestCompileUnknownRelationInUsersetRef tests userset ref validation
func TestCompileUnknownRelationInUsersetRef(t *testing.T) {
	_, err := Compile(`
		type team {}
		type doc {
			relations {
				viewer: [team#member]
			}
		}
	`)
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)
	assert.Contains(t, ce.Diagnostics[0].Message, `unknown relation "member"`)
}

// TestCompileUnknownComputedRelation tests that computed rewrites must
// reference a declared relation on the same type
func TestCompileUnknownComputedRelation(t *testing.T) {
	_, err := Compile(`
		type doc {
			relations {
				editor: owner
			}
		}
	`)
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)
	assert.Contains(t, ce.Diagnostics[0].Message, `unknown relation "owner"`)
}

// TestCompileUnknownTuplesetRelation tests tuple-to-userset validation
func TestCompileUnknownTuplesetRelation(t *testing.T) {
	_, err := Compile(`
		type doc {
			relations {
				viewer: parent.viewer
			}
		}
	`)
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)

	// Both the tupleset relation and the computed relation are unresolved
	messages := ""
	for _, d := range ce.Diagnostics {
		messages += d.Message + "\n"
	}
	assert.Contains(t, messages, `unknown tupleset relation "parent"`)
}

// TestCompileDuplicates tests duplicate type and relation detection
func TestCompileDuplicates(t *testing.T) {
	_, err := Compile(`
		type doc {
			relations {
				viewer: [doc]
				viewer: [doc]
			}
		}
		type doc {}
	`)
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)

	messages := ""
	for _, d := range ce.Diagnostics {
		messages += d.Message + "\n"
	}
	assert.Contains(t, messages, `duplicate relation "viewer"`)
	assert.Contains(t, messages, `duplicate type "doc"`)
}

// TestCompileCollectsAllDiagnostics tests that analysis does not stop at the
// first finding
func TestCompileCollectsAllDiagnostics(t *testing.T) {
	_, err := Compile(`
		type doc {
			relations {
				a: [ghost1]
				b: [ghost2]
				c: missing
			}
		}
	`)
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)
	assert.Len(t, ce.Diagnostics, 3)
}

// TestCompileDiagnosticPositions tests that findings carry source positions
func TestCompileDiagnosticPositions(t *testing.T) {
	_, err := Compile("type doc {\n\trelations {\n\t\tviewer: [ghost]\n\t}\n}")
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)
	require.Len(t, ce.Diagnostics, 1)
	assert.Equal(t, 3, ce.Diagnostics[0].Pos.Line)
}

// TestCompileSyntaxErrorIsCompileError tests that parse failures surface the
// same structured error as semantic ones
func TestCompileSyntaxErrorIsCompileError(t *testing.T) {
	_, err := Compile("type doc { nope")
	require.Error(t, err)

	ce, ok := IsCompileError(err)
	require.True(t, ok)
	require.Len(t, ce.Diagnostics, 1)
	assert.NotZero(t, ce.Diagnostics[0].Pos.Line)
}

// TestMustCompilePanics tests the panic contract
func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile("type doc { broken")
	})
	assert.NotPanics(t, func() {
		MustCompile("type user {}")
	})
}
