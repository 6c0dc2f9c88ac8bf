// Package parser implements the recursive-descent parser that turns a
// lang/lexer token stream into a lang/ast Program.
package parser

import (
	"fmt"

	"github.com/titpetric/kts/lang/ast"
	"github.com/titpetric/kts/lang/lexer"
	"github.com/titpetric/kts/lang/token"
)

// Parser produces a Program plus side tables of collected function and
// class declarations.
type Parser struct {
	stream  *lexer.Stream
	fns     map[string]*ast.FnDef
	classes map[string]*ast.Class

	// noClosure suppresses trailing-closure attachment while parsing a
	// condition or iterator expression, where the following `{` opens
	// the statement body instead.
	noClosure bool
}

// New creates a Parser over source.
func New(source string) *Parser {
	return &Parser{
		stream:  lexer.NewStream(lexer.New(source)),
		fns:     map[string]*ast.FnDef{},
		classes: map[string]*ast.Class{},
	}
}

// Parse consumes the whole token stream and returns the resulting
// Program.
func (p *Parser) Parse() (*ast.Program, error) {
	var stmts []ast.Stmt
	for {
		stmt, skip, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		if _, ok := stmt.(ast.Noop); ok {
			break
		}
		stmts = append(stmts, stmt)
	}
	if err := p.stream.Err(); err != nil {
		return nil, err
	}
	return &ast.Program{Stmts: stmts, Fns: p.fns, Classes: p.classes}, nil
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	tok := p.stream.Next()
	if tok.Kind != kind {
		if err := p.stream.Err(); err != nil {
			return tok, err
		}
		return tok, fmt.Errorf("expected %s, got %s", kind, tok.Kind)
	}
	return tok, nil
}

func (p *Parser) expectKeyword(kw string) error {
	tok := p.stream.Next()
	if tok.Kind != token.Keyword || tok.Str != kw {
		return fmt.Errorf("expected keyword %q, got %s", kw, tok.Kind)
	}
	return nil
}

// parseStmt returns (stmt, skip, err). Definitions (fn/fun/class) are
// recorded into side tables and parseStmt goes on to the next statement,
// so they never reach the statement stream; skip is always false.
func (p *Parser) parseStmt() (ast.Stmt, bool, error) {
	for {
		tok := p.stream.Peek()
		switch tok.Kind {
		case token.EOF, token.ParenthesisRight:
			return ast.Noop{}, false, nil
		case token.Keyword:
			switch tok.Str {
			case "let", "var", "val":
				s, err := p.parseLet()
				return s, false, err
			case "fn":
				def, err := p.parseFnDef("fn")
				if err != nil {
					return nil, false, err
				}
				p.fns[def.Name] = def
				continue
			case "fun":
				if err := p.parseFunOrMethod(); err != nil {
					return nil, false, err
				}
				continue
			case "return":
				s, err := p.parseReturn()
				return s, false, err
			case "if":
				s, err := p.parseIf()
				return s, false, err
			case "while":
				s, err := p.parseWhile()
				return s, false, err
			case "for":
				s, err := p.parseForIn()
				return s, false, err
			case "import":
				s, err := p.parseImport()
				return s, false, err
			case "break":
				p.stream.Next()
				return ast.Break{Base: ast.Base{Pos: tok.Pos}}, false, nil
			case "continue":
				p.stream.Next()
				return ast.Continue{Base: ast.Base{Pos: tok.Pos}}, false, nil
			case "class":
				if err := p.parseClass(); err != nil {
					return nil, false, err
				}
				continue
			default:
				return nil, false, fmt.Errorf("unused keyword %q in statement position", tok.Str)
			}
		default:
			s, err := p.parseExprStmt()
			return s, false, err
		}
	}
}

// parseBlock parses statements until a closing `}`.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(token.ParenthesisLeft); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for {
		tok := p.stream.Peek()
		if tok.Kind == token.ParenthesisRight {
			p.stream.Next()
			return stmts, nil
		}
		if tok.Kind == token.EOF {
			if err := p.stream.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("unexpected EOF inside block")
		}
		stmt, skip, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		stmts = append(stmts, stmt)
	}
}

func (p *Parser) parseLet() (ast.Stmt, error) {
	pos := p.stream.Peek().Pos
	p.stream.Next() // let/var/val
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.Let{Base: ast.Base{Pos: pos}, Name: name.Str, Expr: expr}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.stream.Peek().Pos
	p.stream.Next()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.Return{Base: ast.Base{Pos: pos}, Expr: expr}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.stream.Peek().Pos
	p.stream.Next()
	var branches []ast.IfBranch
	cond, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	branches = append(branches, ast.IfBranch{Condition: cond, Body: body})

	var elseBody []ast.Stmt
	for {
		tok := p.stream.Peek()
		if tok.Kind != token.Keyword || tok.Str != "else" {
			break
		}
		p.stream.Next()
		next := p.stream.Peek()
		if next.Kind == token.Keyword && next.Str == "if" {
			p.stream.Next()
			cond, err := p.parseCondExpr()
			if err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			branches = append(branches, ast.IfBranch{Condition: cond, Body: body})
			continue
		}
		elseBody, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		break
	}
	return ast.If{Base: ast.Base{Pos: pos}, Branches: branches, Else: elseBody}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.stream.Peek().Pos
	p.stream.Next()
	cond, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.While{Base: ast.Base{Pos: pos}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseForIn() (ast.Stmt, error) {
	pos := p.stream.Peek().Pos
	p.stream.Next()
	first, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	key := first.Str
	value := ""
	hasValue := false
	if p.stream.Peek().Kind == token.Comma {
		p.stream.Next()
		second, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		value = second.Str
		hasValue = true
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.ForIn{Base: ast.Base{Pos: pos}, Key: key, Value: value, HasValue: hasValue, Iter: iter, Body: body}, nil
}

func (p *Parser) parseImport() (ast.Stmt, error) {
	pos := p.stream.Peek().Pos
	p.stream.Next()
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	return ast.Import{Base: ast.Base{Pos: pos}, ModuleName: name.Str}, nil
}

// parseExprStmt parses a bare call, an assignment, or an index
// assignment, all of which begin with a primary expression.
func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	pos := p.stream.Peek().Pos
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.stream.Peek().Kind == token.Assign {
		p.stream.Next()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if idx, ok := expr.(ast.Index); ok {
			return ast.IndexAssign{Base: ast.Base{Pos: pos}, Obj: idx.Obj, Index: idx.Index_, Value: value}, nil
		}
		return ast.Assign{Base: ast.Base{Pos: pos}, Target: expr, Value: value}, nil
	}

	if call, ok := expr.(ast.FnCallExpr); ok {
		return ast.FnCallStmt{Base: ast.Base{Pos: pos}, Call: &call}, nil
	}
	// A bare expression with no further effect is treated as a no-op
	// statement wrapper so top-level expression statements like
	// literals in test scripts still parse.
	return ast.FnCallStmt{Base: ast.Base{Pos: pos}, Call: &ast.FnCallExpr{}}, nil
}

func (p *Parser) parseClass() error {
	if err := p.expectKeyword("class"); err != nil {
		return err
	}
	name, err := p.expect(token.Identifier)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.BraceLeft); err != nil {
		return err
	}
	var fields []ast.Param
	for {
		if p.stream.Peek().Kind == token.BraceRight {
			p.stream.Next()
			break
		}
		field, err := p.expect(token.Identifier)
		if err != nil {
			return err
		}
		typ := ""
		if p.stream.Peek().Kind == token.Colon {
			p.stream.Next()
			t, err := p.expect(token.Identifier)
			if err != nil {
				return err
			}
			typ = t.Str
		}
		fields = append(fields, ast.Param{Name: field.Str, Type: typ})
		if p.stream.Peek().Kind == token.Comma {
			p.stream.Next()
		}
	}
	p.classes[name.Str] = &ast.Class{Name: name.Str, Fields: fields, Methods: map[string]*ast.FnDef{}}
	return nil
}

// parseFunOrMethod parses either `fun name(...): R {...}` or
// `fun ClassName.method(...): R {...}`.
func (p *Parser) parseFunOrMethod() error {
	if err := p.expectKeyword("fun"); err != nil {
		return err
	}
	name, err := p.expect(token.Identifier)
	if err != nil {
		return err
	}
	if p.stream.Peek().Kind == token.Dot {
		p.stream.Next()
		method, err := p.expect(token.Identifier)
		if err != nil {
			return err
		}
		class, ok := p.classes[name.Str]
		if !ok {
			return fmt.Errorf("method %s.%s declared before class %s", name.Str, method.Str, name.Str)
		}
		def, err := p.parseFnSignatureAndBody(method.Str)
		if err != nil {
			return err
		}
		class.Methods[method.Str] = def
		return nil
	}
	def, err := p.parseFnSignatureAndBody(name.Str)
	if err != nil {
		return err
	}
	p.fns[def.Name] = def
	return nil
}

func (p *Parser) parseFnDef(keyword string) (*ast.FnDef, error) {
	if err := p.expectKeyword(keyword); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	return p.parseFnSignatureAndBody(name.Str)
}

func (p *Parser) parseFnSignatureAndBody(name string) (*ast.FnDef, error) {
	if _, err := p.expect(token.BraceLeft); err != nil {
		return nil, err
	}
	var params []ast.Param
	for {
		if p.stream.Peek().Kind == token.BraceRight {
			p.stream.Next()
			break
		}
		pname, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		ptype := ""
		if p.stream.Peek().Kind == token.Colon {
			p.stream.Next()
			t, err := p.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			ptype = t.Str
		}
		params = append(params, ast.Param{Name: pname.Str, Type: ptype})
		if p.stream.Peek().Kind == token.Comma {
			p.stream.Next()
		}
	}
	retType := ""
	if p.stream.Peek().Kind == token.Colon {
		p.stream.Next()
		t, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		retType = t.Str
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FnDef{Name: name, Params: params, Body: body, ReturnType: retType}, nil
}
