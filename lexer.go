package tuplekit

import "fmt"

// tokenKind enumerates the DSL token types.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenLBrace   // {
	tokenRBrace   // }
	tokenLBracket // [
	tokenRBracket // ]
	tokenLParen   // (
	tokenRParen   // )
	tokenColon    // :
	tokenComma    // ,
	tokenHash     // #
	tokenDot      // .
	tokenStar     // *
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenColon:
		return "':'"
	case tokenComma:
		return "','"
	case tokenHash:
		return "'#'"
	case tokenDot:
		return "'.'"
	case tokenStar:
		return "'*'"
	}
	return "unknown token"
}

// token is one lexical unit of DSL source.
type token struct {
	kind tokenKind
	text string
	pos  Position
}

// lexer tokenizes DSL source, tracking line and column for diagnostics.
// Keywords (type, relations, or, and, but, not) are plain identifiers here;
// the parser gives them meaning by context, so they remain usable as names.
type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

// next returns the next token, or a diagnostic for an unexpected character.
func (l *lexer) next() (token, *Diagnostic) {
	l.skipSpaceAndComments()

	pos := Position{Line: l.line, Column: l.col}
	if l.off >= len(l.src) {
		return token{kind: tokenEOF, pos: pos}, nil
	}

	c := l.src[l.off]
	switch c {
	case '{':
		l.advance()
		return token{kind: tokenLBrace, text: "{", pos: pos}, nil
	case '}':
		l.advance()
		return token{kind: tokenRBrace, text: "}", pos: pos}, nil
	case '[':
		l.advance()
		return token{kind: tokenLBracket, text: "[", pos: pos}, nil
	case ']':
		l.advance()
		return token{kind: tokenRBracket, text: "]", pos: pos}, nil
	case '(':
		l.advance()
		return token{kind: tokenLParen, text: "(", pos: pos}, nil
	case ')':
		l.advance()
		return token{kind: tokenRParen, text: ")", pos: pos}, nil
	case ':':
		l.advance()
		return token{kind: tokenColon, text: ":", pos: pos}, nil
	case ',':
		l.advance()
		return token{kind: tokenComma, text: ",", pos: pos}, nil
	case '#':
		l.advance()
		return token{kind: tokenHash, text: "#", pos: pos}, nil
	case '.':
		l.advance()
		return token{kind: tokenDot, text: ".", pos: pos}, nil
	case '*':
		l.advance()
		return token{kind: tokenStar, text: "*", pos: pos}, nil
	}

	if isIdentStart(rune(c)) {
		start := l.off
		for l.off < len(l.src) && (isIdentChar(rune(l.src[l.off]))) {
			l.advance()
		}
		return token{kind: tokenIdent, text: l.src[start:l.off], pos: pos}, nil
	}

	l.advance()
	return token{}, &Diagnostic{
		Pos:     pos,
		Message: fmt.Sprintf("unexpected character %q", c),
	}
}

// tokens lexes the full input; lexing stops at the first bad character.
func (l *lexer) tokens() ([]token, *Diagnostic) {
	var out []token
	for {
		tok, diag := l.next()
		if diag != nil {
			return nil, diag
		}
		out = append(out, tok)
		if tok.kind == tokenEOF {
			return out, nil
		}
	}
}

func (l *lexer) skipSpaceAndComments() {
	for l.off < len(l.src) {
		c := l.src[l.off]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.advance()
			continue
		}
		// line comments
		if c == '/' && l.off+1 < len(l.src) && l.src[l.off+1] == '/' {
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *lexer) advance() {
	if l.off < len(l.src) {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}
