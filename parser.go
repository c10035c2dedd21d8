package tuplekit

import "fmt"

// parsedModel is the raw parse result, before semantic validation.
// Relations are kept as an ordered slice so the analyzer can report
// duplicates with their positions.
type parsedModel struct {
	types []*parsedType
}

type parsedType struct {
	name      string
	pos       Position
	relations []*parsedRelation
}

type parsedRelation struct {
	name    string
	pos     Position
	rewrite Rewrite
}

// parser is a recursive-descent parser for the model DSL.
//
// Grammar:
//
//	model        := typeDecl* EOF
//	typeDecl     := "type" IDENT "{" [ "relations" "{" relationDecl* "}" ] "}"
//	relationDecl := IDENT ":" expr
//	expr         := andExpr { "or" andExpr }
//	andExpr      := exclExpr { "and" exclExpr }
//	exclExpr     := primary { "but" "not" primary }
//	primary      := "[" ref { "," ref } "]" | "(" expr ")" | IDENT "." IDENT | IDENT
//	ref          := "*" | IDENT [ "#" IDENT ]
//
// "or" binds loosest, then "and", then "but not". Keywords are contextual.
type parser struct {
	toks []token
	i    int
}

// parseModel tokenizes and parses DSL source. It stops at the first syntax
// error; semantic validation happens later and collects multiple findings.
func parseModel(source string) (*parsedModel, *Diagnostic) {
	toks, diag := newLexer(source).tokens()
	if diag != nil {
		return nil, diag
	}
	p := &parser{toks: toks}

	model := &parsedModel{}
	for p.peek().kind != tokenEOF {
		t, diag := p.parseType()
		if diag != nil {
			return nil, diag
		}
		model.types = append(model.types, t)
	}
	return model, nil
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) take() token {
	tok := p.toks[p.i]
	if tok.kind != tokenEOF {
		p.i++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, *Diagnostic) {
	tok := p.peek()
	if tok.kind != kind {
		return token{}, &Diagnostic{
			Pos:     tok.pos,
			Message: fmt.Sprintf("expected %s, found %s", kind, describe(tok)),
		}
	}
	return p.take(), nil
}

func (p *parser) expectKeyword(word string) (token, *Diagnostic) {
	tok := p.peek()
	if tok.kind != tokenIdent || tok.text != word {
		return token{}, &Diagnostic{
			Pos:     tok.pos,
			Message: fmt.Sprintf("expected %q, found %s", word, describe(tok)),
		}
	}
	return p.take(), nil
}

func describe(tok token) string {
	if tok.kind == tokenIdent {
		return fmt.Sprintf("%q", tok.text)
	}
	return tok.kind.String()
}

func (p *parser) parseType() (*parsedType, *Diagnostic) {
	if _, diag := p.expectKeyword("type"); diag != nil {
		return nil, diag
	}
	name, diag := p.expect(tokenIdent)
	if diag != nil {
		return nil, diag
	}
	if _, diag := p.expect(tokenLBrace); diag != nil {
		return nil, diag
	}

	t := &parsedType{name: name.text, pos: name.pos}

	// The relations block is optional: subject-only types like "type user {}"
	// declare no relations.
	if p.peek().kind == tokenIdent && p.peek().text == "relations" {
		p.take()
		if _, diag := p.expect(tokenLBrace); diag != nil {
			return nil, diag
		}
		for p.peek().kind != tokenRBrace {
			rel, diag := p.parseRelation()
			if diag != nil {
				return nil, diag
			}
			t.relations = append(t.relations, rel)
		}
		if _, diag := p.expect(tokenRBrace); diag != nil {
			return nil, diag
		}
	}

	if _, diag := p.expect(tokenRBrace); diag != nil {
		return nil, diag
	}
	return t, nil
}

func (p *parser) parseRelation() (*parsedRelation, *Diagnostic) {
	name, diag := p.expect(tokenIdent)
	if diag != nil {
		return nil, diag
	}
	if _, diag := p.expect(tokenColon); diag != nil {
		return nil, diag
	}
	rw, diag := p.parseExpr()
	if diag != nil {
		return nil, diag
	}
	return &parsedRelation{name: name.text, pos: name.pos, rewrite: rw}, nil
}

func (p *parser) parseExpr() (Rewrite, *Diagnostic) {
	pos := p.peek().pos
	first, diag := p.parseAnd()
	if diag != nil {
		return nil, diag
	}
	children := []Rewrite{first}
	for p.peek().kind == tokenIdent && p.peek().text == "or" {
		p.take()
		next, diag := p.parseAnd()
		if diag != nil {
			return nil, diag
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &UnionRewrite{Children: children, Pos: pos}, nil
}

func (p *parser) parseAnd() (Rewrite, *Diagnostic) {
	pos := p.peek().pos
	first, diag := p.parseExclusion()
	if diag != nil {
		return nil, diag
	}
	children := []Rewrite{first}
	for p.peek().kind == tokenIdent && p.peek().text == "and" {
		p.take()
		next, diag := p.parseExclusion()
		if diag != nil {
			return nil, diag
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &IntersectionRewrite{Children: children, Pos: pos}, nil
}

func (p *parser) parseExclusion() (Rewrite, *Diagnostic) {
	base, diag := p.parsePrimary()
	if diag != nil {
		return nil, diag
	}
	for p.peek().kind == tokenIdent && p.peek().text == "but" {
		butPos := p.take().pos
		if _, diag := p.expectKeyword("not"); diag != nil {
			return nil, diag
		}
		subtract, diag := p.parsePrimary()
		if diag != nil {
			return nil, diag
		}
		base = &ExclusionRewrite{Base: base, Subtract: subtract, Pos: butPos}
	}
	return base, nil
}

func (p *parser) parsePrimary() (Rewrite, *Diagnostic) {
	tok := p.peek()
	switch tok.kind {
	case tokenLBracket:
		return p.parseDirectList()
	case tokenLParen:
		p.take()
		inner, diag := p.parseExpr()
		if diag != nil {
			return nil, diag
		}
		if _, diag := p.expect(tokenRParen); diag != nil {
			return nil, diag
		}
		return inner, nil
	case tokenIdent:
		name := p.take()
		if p.peek().kind == tokenDot {
			p.take()
			computed, diag := p.expect(tokenIdent)
			if diag != nil {
				return nil, diag
			}
			return &TupleToUsersetRewrite{
				TuplesetRelation: name.text,
				ComputedRelation: computed.text,
				Pos:              name.pos,
			}, nil
		}
		return &ComputedRewrite{Relation: name.text, Pos: name.pos}, nil
	}
	return nil, &Diagnostic{
		Pos:     tok.pos,
		Message: fmt.Sprintf("expected a rewrite expression, found %s", describe(tok)),
	}
}

func (p *parser) parseDirectList() (Rewrite, *Diagnostic) {
	open, diag := p.expect(tokenLBracket)
	if diag != nil {
		return nil, diag
	}
	direct := &DirectRewrite{Pos: open.pos}
	for {
		ref, diag := p.parseSubjectRef()
		if diag != nil {
			return nil, diag
		}
		direct.AllowedRefs = append(direct.AllowedRefs, ref)
		if p.peek().kind == tokenComma {
			p.take()
			continue
		}
		break
	}
	if _, diag := p.expect(tokenRBracket); diag != nil {
		return nil, diag
	}
	return direct, nil
}

func (p *parser) parseSubjectRef() (SubjectTypeRef, *Diagnostic) {
	tok := p.peek()
	if tok.kind == tokenStar {
		p.take()
		return SubjectTypeRef{Wildcard: true}, nil
	}
	name, diag := p.expect(tokenIdent)
	if diag != nil {
		return SubjectTypeRef{}, diag
	}
	ref := SubjectTypeRef{Type: name.text}
	if p.peek().kind == tokenHash {
		p.take()
		rel, diag := p.expect(tokenIdent)
		if diag != nil {
			return SubjectTypeRef{}, diag
		}
		ref.Relation = rel.text
	}
	return ref, nil
}
