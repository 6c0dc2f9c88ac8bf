package parser

import (
	"fmt"
	"strings"

	"github.com/titpetric/kts/lang/ast"
	"github.com/titpetric/kts/lang/token"
)

// parseExpr parses a full expression at the lowest precedence level
// (comparison).
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseComparison()
}

// parseCondExpr parses an expression in a position directly followed
// by a statement block (if/while conditions, for-in iterators), where
// a `{` belongs to the statement, not to a trailing closure.
func (p *Parser) parseCondExpr() (ast.Expr, error) {
	prev := p.noClosure
	p.noClosure = true
	expr, err := p.parseExpr()
	p.noClosure = prev
	return expr, err
}

var comparisonOps = map[token.Kind]ast.Op{
	token.Greater:  ast.OpGreater,
	token.Less:     ast.OpLess,
	token.Equal:    ast.OpEqual,
	token.NotEqual: ast.OpNotEqual,
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.stream.Peek().Kind]
		if !ok {
			return lhs, nil
		}
		pos := p.stream.Next().Pos
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.stream.Peek().Kind {
		case token.Plus:
			op = ast.OpPlus
		case token.Minus:
			op = ast.OpMinus
		default:
			return lhs, nil
		}
		pos := p.stream.Next().Pos
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	lhs, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.stream.Peek().Kind {
		case token.Mul:
			op = ast.OpMul
		case token.Div:
			op = ast.OpDiv
		case token.Mod:
			op = ast.OpMod
		default:
			return lhs, nil
		}
		pos := p.stream.Next().Pos
		rhs, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryExpr{Base: ast.Base{Pos: pos}, Op: op, LHS: lhs, RHS: rhs}
	}
}

// parsePostfix applies index/member/trailing-closure suffixes to a
// primary expression.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.stream.Peek()
		switch tok.Kind {
		case token.SquareBracketLeft:
			p.stream.Next()
			idx, err := p.parseGroupedExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.SquareBracketRight); err != nil {
				return nil, err
			}
			expr = ast.Index{Base: ast.Base{Pos: tok.Pos}, Obj: expr, Index_: idx}
		case token.Dot:
			p.stream.Next()
			name, err := p.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			if p.stream.Peek().Kind == token.BraceLeft {
				// method call: obj.name(args) desugars to name(obj, args)
				// so the interpreter's ordinary first-argument method
				// dispatch rule picks it up.
				call, err := p.parseCallArgs(tok.Pos, name.Str)
				if err != nil {
					return nil, err
				}
				fc := call.(ast.FnCallExpr)
				fc.Args = append([]ast.Expr{expr}, fc.Args...)
				expr = fc
				break
			}
			expr = ast.MemberAccess{Base: ast.Base{Pos: tok.Pos}, Obj: expr, Name: name.Str}
		case token.ParenthesisLeft:
			// trailing closure: f(args){ body } — desugar the block
			// into an extra deferred FnClosure argument. Suppressed in
			// condition positions, where the `{` opens the statement body.
			call, ok := expr.(ast.FnCallExpr)
			if !ok || p.noClosure {
				return expr, nil
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			closure := ast.FnClosureExpr{
				Base: ast.Base{Pos: tok.Pos},
				Def:  &ast.FnDef{Name: call.Name + "$closure", Body: body},
			}
			call.Args = append(call.Args, closure)
			expr = call
		default:
			return expr, nil
		}
	}
}

// parseGroupedExpr parses an expression inside explicit delimiters,
// where a trailing closure is unambiguous again even if an enclosing
// condition suppressed it.
func (p *Parser) parseGroupedExpr() (ast.Expr, error) {
	prev := p.noClosure
	p.noClosure = false
	expr, err := p.parseExpr()
	p.noClosure = prev
	return expr, err
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.stream.Peek()
	switch tok.Kind {
	case token.String:
		p.stream.Next()
		return ast.StringConstant{Base: ast.Base{Pos: tok.Pos}, Value: tok.Str}, nil
	case token.Int:
		p.stream.Next()
		return ast.IntConstant{Base: ast.Base{Pos: tok.Pos}, Value: tok.Int}, nil
	case token.Float:
		p.stream.Next()
		return ast.FloatConstant{Base: ast.Base{Pos: tok.Pos}, Value: tok.Float}, nil
	case token.Keyword:
		if tok.Str == "true" || tok.Str == "false" {
			p.stream.Next()
			return boolLiteral(tok), nil
		}
		return nil, fmt.Errorf("unused keyword %q in expression position", tok.Str)
	case token.BraceLeft:
		return p.parseParenthesized()
	case token.SquareBracketLeft:
		return p.parseArray()
	case token.Identifier:
		return p.parseIdentifierLed()
	default:
		if err := p.stream.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected token %s in expression position", tok.Kind)
	}
}

func boolLiteral(tok token.Token) ast.Expr {
	// Booleans are represented as 0-ary calls to the std `true`/`false`
	// constant functions at parse time so the AST's Expr set stays
	// closed over the language's sum type.
	return ast.FnCallExpr{Base: ast.Base{Pos: tok.Pos}, Name: tok.Str}
}

func (p *Parser) parseArray() (ast.Expr, error) {
	start := p.stream.Next().Pos // [
	var elems []ast.Expr
	for {
		if p.stream.Peek().Kind == token.SquareBracketRight {
			p.stream.Next()
			break
		}
		e, err := p.parseGroupedExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.stream.Peek().Kind == token.Comma {
			p.stream.Next()
		}
	}
	return ast.Array{Base: ast.Base{Pos: start}, Elements: elems}, nil
}

// parseParenthesized parses `(k: v, ...)` as a Map literal, or `(expr)`
// as a grouped expression when it contains no top-level `:`.
func (p *Parser) parseParenthesized() (ast.Expr, error) {
	start := p.stream.Next().Pos // (
	if p.stream.Peek().Kind == token.BraceRight {
		p.stream.Next()
		return ast.Map{Base: ast.Base{Pos: start}}, nil
	}

	first, err := p.parseGroupedExpr()
	if err != nil {
		return nil, err
	}
	if p.stream.Peek().Kind == token.Colon {
		return p.parseMapBody(start, first)
	}
	if _, err := p.expect(token.BraceRight); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *Parser) parseMapBody(start token.Position, firstKey ast.Expr) (ast.Expr, error) {
	p.stream.Next() // :
	firstVal, err := p.parseGroupedExpr()
	if err != nil {
		return nil, err
	}
	entries := []ast.MapEntry{{Key: firstKey, Value: firstVal}}
	for {
		if p.stream.Peek().Kind == token.BraceRight {
			p.stream.Next()
			break
		}
		if p.stream.Peek().Kind == token.Comma {
			p.stream.Next()
		}
		if p.stream.Peek().Kind == token.BraceRight {
			p.stream.Next()
			break
		}
		key, err := p.parseGroupedExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseGroupedExpr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
	}
	return ast.Map{Base: ast.Base{Pos: start}, Entries: entries}, nil
}

// parseIdentifierLed parses a Variable, a bare/qualified FnCall, or a
// Struct literal, all of which start with an identifier.
func (p *Parser) parseIdentifierLed() (ast.Expr, error) {
	first := p.stream.Next()
	name := first.Str

	if p.stream.Peek().Kind == token.ScopeSymbol {
		p.stream.Next()
		fn, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		name = name + "::" + fn.Str
	}

	switch p.stream.Peek().Kind {
	case token.BraceLeft:
		return p.parseCallArgs(first.Pos, name)
	default:
		return ast.Variable{Base: ast.Base{Pos: first.Pos}, Name: name}, nil
	}
}

func (p *Parser) parseCallArgs(pos token.Position, name string) (ast.Expr, error) {
	p.stream.Next() // (
	prev := p.noClosure
	p.noClosure = false
	defer func() { p.noClosure = prev }()

	var args []ast.Expr
	for {
		if p.stream.Peek().Kind == token.BraceRight {
			p.stream.Next()
			break
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		// `Type(field: v, ...)` struct literal: a first argument of the
		// form `identifier :` on an unqualified callee switches the call
		// into a struct literal (resolved against declared classes at
		// eval time).
		if len(args) == 0 && p.stream.Peek().Kind == token.Colon {
			if v, ok := arg.(ast.Variable); ok && !strings.Contains(name, "::") {
				return p.parseStructFields(pos, name, v.Name)
			}
		}
		args = append(args, arg)
		if p.stream.Peek().Kind == token.Comma {
			p.stream.Next()
		}
	}
	return ast.FnCallExpr{Base: ast.Base{Pos: pos}, Name: name, Args: args}, nil
}

// parseStructFields continues a call that turned out to be a struct
// literal, having already consumed `ClassName(first` with a `:` pending.
func (p *Parser) parseStructFields(pos token.Position, className, firstField string) (ast.Expr, error) {
	p.stream.Next() // :
	firstVal, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	fields := []ast.StructField{{Name: firstField, Value: firstVal}}
	for {
		if p.stream.Peek().Kind == token.BraceRight {
			p.stream.Next()
			break
		}
		if p.stream.Peek().Kind == token.Comma {
			p.stream.Next()
		}
		if p.stream.Peek().Kind == token.BraceRight {
			p.stream.Next()
			break
		}
		fname, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructField{Name: fname.Str, Value: val})
	}
	return ast.Struct{Base: ast.Base{Pos: pos}, ClassName: className, Fields: fields}, nil
}
