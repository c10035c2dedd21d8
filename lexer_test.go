package tuplekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLexerTokens tests basic tokenization
func TestLexerTokens(t *testing.T) {
	toks, diag := newLexer("type doc { relations { viewer: [user, team#member, *] } }").tokens()
	require.Nil(t, diag)

	kinds := make([]tokenKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.kind
	}
	assert.Equal(t, []tokenKind{
		tokenIdent, tokenIdent, tokenLBrace,
		tokenIdent, tokenLBrace,
		tokenIdent, tokenColon,
		tokenLBracket, tokenIdent, tokenComma, tokenIdent, tokenHash, tokenIdent, tokenComma, tokenStar, tokenRBracket,
		tokenRBrace, tokenRBrace,
		tokenEOF,
	}, kinds)

	assert.Equal(t, "type", toks[0].text)
	assert.Equal(t, "doc", toks[1].text)
	assert.Equal(t, "viewer", toks[5].text)
}

// TestLexerPositions tests line and column tracking
func TestLexerPositions(t *testing.T) {
	src := "type doc {\n  owner: x\n}"
	toks, diag := newLexer(src).tokens()
	require.Nil(t, diag)

	assert.Equal(t, Position{Line: 1, Column: 1}, toks[0].pos)
	assert.Equal(t, Position{Line: 1, Column: 6}, toks[1].pos)

	// "owner" starts line 2 column 3
	var owner token
	for _, tok := range toks {
		if tok.text == "owner" {
			owner = tok
		}
	}
	assert.Equal(t, Position{Line: 2, Column: 3}, owner.pos)
}

// TestLexerComments tests that line comments are skipped
func TestLexerComments(t *testing.T) {
	src := "// a model\ntype doc {} // trailing\n// done"
	toks, diag := newLexer(src).tokens()
	require.Nil(t, diag)

	var texts []string
	for _, tok := range toks {
		if tok.kind == tokenIdent {
			texts = append(texts, tok.text)
		}
	}
	assert.Equal(t, []string{"type", "doc"}, texts)
}

// TestLexerBadCharacter tests the diagnostic for unexpected input
func TestLexerBadCharacter(t *testing.T) {
	_, diag := newLexer("type doc { owner: $ }").tokens()
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "unexpected character")
	assert.Equal(t, 1, diag.Pos.Line)
	assert.Equal(t, 19, diag.Pos.Column)
}

// TestLexerUnderscores tests that identifiers may contain an underscore but
// not start with one
func TestLexerUnderscores(t *testing.T) {
	toks, diag := newLexer("type doc_v2 {}").tokens()
	require.Nil(t, diag)
	assert.Equal(t, "doc_v2", toks[1].text)

	_, diag = newLexer("type _internal {}").tokens()
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "unexpected character '_'")
	assert.Equal(t, 6, diag.Pos.Column)
}

// TestLexerEmptyInput tests lexing empty source
func TestLexerEmptyInput(t *testing.T) {
	toks, diag := newLexer("").tokens()
	require.Nil(t, diag)
	require.Len(t, toks, 1)
	assert.Equal(t, tokenEOF, toks[0].kind)
}
