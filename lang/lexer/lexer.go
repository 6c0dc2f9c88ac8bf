// Package lexer turns pipeline script source text into a stream of
// lang/token tokens.
package lexer

import (
	"strconv"
	"unicode"

	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/token"
)

// Lexer scans a rune slice into tokens one at a time.
type Lexer struct {
	chars []rune
	index int
	err   error
}

// New creates a Lexer over script.
func New(script string) *Lexer {
	return &Lexer{chars: []rune(script)}
}

// Source returns the full rune slice being scanned, for diagnostics.
func (l *Lexer) Source() []rune { return l.chars }

// Err reports the scan error hit so far, if any. After an unexpected
// character, the lexer yields EOF forever and Err returns the cause.
func (l *Lexer) Err() error { return l.err }

func (l *Lexer) current() (rune, bool) {
	if l.index >= len(l.chars) {
		return 0, false
	}
	return l.chars[l.index], true
}

func (l *Lexer) peek() (rune, bool) {
	if l.index+1 >= len(l.chars) {
		return 0, false
	}
	return l.chars[l.index+1], true
}

func (l *Lexer) advance() {
	l.index++
}

func single(kind token.Kind, pos int) token.Token {
	return token.Token{Kind: kind, Pos: token.NewPosition(pos, 1)}
}

// Next scans and returns the following token, or an EOF token once the
// source is exhausted.
func (l *Lexer) Next() token.Token {
	for {
		c, ok := l.current()
		if !ok {
			return token.Token{Kind: token.EOF}
		}
		p, hasPeek := l.peek()

		switch {
		case c == '.' && !(hasPeek && unicode.IsDigit(p)):
			t := single(token.Dot, l.index)
			l.advance()
			return t
		case unicode.IsDigit(c) || c == '.':
			return l.scanNumber()
		case unicode.IsLetter(c) || c == '_':
			return l.scanIdentifier()
		case c == '(':
			t := single(token.BraceLeft, l.index)
			l.advance()
			return t
		case c == ')':
			t := single(token.BraceRight, l.index)
			l.advance()
			return t
		case c == '{':
			t := single(token.ParenthesisLeft, l.index)
			l.advance()
			return t
		case c == '}':
			t := single(token.ParenthesisRight, l.index)
			l.advance()
			return t
		case c == '[':
			t := single(token.SquareBracketLeft, l.index)
			l.advance()
			return t
		case c == ']':
			t := single(token.SquareBracketRight, l.index)
			l.advance()
			return t
		case c == ':' && hasPeek && p == ':':
			pos := l.index
			l.advance()
			l.advance()
			return token.Token{Kind: token.ScopeSymbol, Pos: token.NewPosition(pos, 2)}
		case c == ':':
			t := single(token.Colon, l.index)
			l.advance()
			return t
		case c == ',':
			t := single(token.Comma, l.index)
			l.advance()
			return t
		case c == '=' && hasPeek && p == '=':
			pos := l.index
			l.advance()
			l.advance()
			return token.Token{Kind: token.Equal, Pos: token.NewPosition(pos, 2)}
		case c == '!' && hasPeek && p == '=':
			pos := l.index
			l.advance()
			l.advance()
			return token.Token{Kind: token.NotEqual, Pos: token.NewPosition(pos, 2)}
		case c == '=':
			t := single(token.Assign, l.index)
			l.advance()
			return t
		case c == '>':
			t := single(token.Greater, l.index)
			l.advance()
			return t
		case c == '<':
			t := single(token.Less, l.index)
			l.advance()
			return t
		case c == '+':
			t := single(token.Plus, l.index)
			l.advance()
			return t
		case c == '-':
			t := single(token.Minus, l.index)
			l.advance()
			return t
		case c == '*':
			t := single(token.Mul, l.index)
			l.advance()
			return t
		case c == '%':
			t := single(token.Mod, l.index)
			l.advance()
			return t
		case c == '"':
			return l.scanString('"')
		case c == '\'':
			return l.scanString('\'')
		case c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == ';':
			l.advance()
		case c == '/' && hasPeek && p == '/':
			for {
				pc, pok := l.peek()
				if !pok || pc == '\n' {
					break
				}
				l.advance()
			}
			l.advance()
		case c == '/' && hasPeek && p == '*':
			l.advance()
			l.advance()
			for {
				cc, cok := l.current()
				pc, pok := l.peek()
				if !cok || (cc == '*' && pok && pc == '/') {
					break
				}
				l.advance()
			}
			l.advance()
			l.advance()
		case c == '/':
			t := single(token.Div, l.index)
			l.advance()
			return t
		default:
			l.err = langerr.Parse(token.NewPosition(l.index, 1), "unexpected character %q", c)
			l.index = len(l.chars)
			return token.Token{Kind: token.EOF}
		}
	}
}

func (l *Lexer) scanNumber() token.Token {
	start := l.index
	var sb []rune
	isFloat := false
	for {
		c, ok := l.current()
		if !ok {
			break
		}
		if c == '.' && !isFloat {
			sb = append(sb, c)
			l.advance()
			isFloat = true
			continue
		}
		if !unicode.IsDigit(c) {
			break
		}
		sb = append(sb, c)
		l.advance()
	}
	pos := token.NewPosition(start, len(sb))
	s := string(sb)
	if isFloat {
		f, _ := strconv.ParseFloat(s, 64)
		return token.Token{Kind: token.Float, Float: f, Pos: pos}
	}
	i, _ := strconv.ParseInt(s, 10, 64)
	return token.Token{Kind: token.Int, Int: i, Pos: pos}
}

func (l *Lexer) scanIdentifier() token.Token {
	start := l.index
	var sb []rune
	for {
		c, ok := l.current()
		if !ok || !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_') {
			break
		}
		sb = append(sb, c)
		l.advance()
	}
	s := string(sb)
	pos := token.NewPosition(start, len(sb))
	if token.Keywords[s] {
		return token.Token{Kind: token.Keyword, Str: s, Pos: pos}
	}
	return token.Token{Kind: token.Identifier, Str: s, Pos: pos}
}

// scanString consumes a verbatim string literal: no escape processing,
// matching the language's no-escape-sequence invariant.
func (l *Lexer) scanString(quote rune) token.Token {
	start := l.index
	l.advance()
	var sb []rune
	for {
		c, ok := l.current()
		if !ok || c == quote {
			break
		}
		sb = append(sb, c)
		l.advance()
	}
	l.advance()
	return token.Token{Kind: token.String, Str: string(sb), Pos: token.NewPosition(start, len(sb)+2)}
}

// Stream buffers a single token of lookahead over a Lexer, the shape
// lang/parser needs for its recursive-descent grammar.
type Stream struct {
	lex  *Lexer
	peek *token.Token
}

// NewStream wraps lex in a one-token-lookahead Stream.
func NewStream(lex *Lexer) *Stream {
	return &Stream{lex: lex}
}

// Next consumes and returns the next token.
func (s *Stream) Next() token.Token {
	if s.peek != nil {
		t := *s.peek
		s.peek = nil
		return t
	}
	return s.lex.Next()
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() token.Token {
	if s.peek == nil {
		t := s.lex.Next()
		s.peek = &t
	}
	return *s.peek
}

// Source exposes the underlying source runes for diagnostics.
func (s *Stream) Source() []rune { return s.lex.Source() }

// Err reports the underlying Lexer's scan error, if any.
func (s *Stream) Err() error { return s.lex.Err() }
