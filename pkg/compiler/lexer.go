package compiler

import (
	"fmt"
	"strconv"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"let":    LET,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"fn":     FN,
	"return": RETURN,
	"input":  INPUT,
	"print":  PRINT,
	"sqrt":   SQRT,
	"sin":    SIN,
	"cos":    COS,
}

const (
	progBeginText = "~sya~"
	progEndText   = "~nya~"
)

// LexError reports a character sequence that starts no token.
type LexError struct {
	Line int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src   []rune
	pos   int // index of the next rune to consume
	line  int // current 1-based source line
	names *NameTable
}

func newLexer(src string, names *NameTable) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1, names: names}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to end-of-line.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) hasPrefix(s string) bool {
	rs := []rune(s)
	if l.pos+len(rs) > len(l.src) {
		return false
	}
	for i, r := range rs {
		if l.src[l.pos+i] != r {
			return false
		}
	}
	return true
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !unicode.IsLetter(r) && !isDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	if kw, ok := keywords[lexeme]; ok {
		return Token{Type: kw, Lexeme: lexeme, Line: line}
	}
	return Token{Type: NAME, Lexeme: lexeme, Name: l.names.Insert(lexeme), Line: line}
}

// isDigit accepts ASCII digits only; other Unicode digits are not literals.
func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// scanInt collects a decimal integer literal.
func (l *Lexer) scanInt() (Token, error) {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	v, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return Token{}, &LexError{Line: line, Msg: fmt.Sprintf("integer literal %s out of range", lexeme)}
	}
	return Token{Type: VAL, Lexeme: lexeme, Value: v, Line: line}, nil
}

// nextToken skips whitespace/comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Lexeme: "", Line: l.line}, nil
		}
		if l.peek() == '#' {
			l.skipLineComment()
			continue
		}
		break
	}

	ch := l.peek()
	line := l.line

	if unicode.IsLetter(ch) || ch == '_' {
		return l.scanIdent(), nil
	}
	if isDigit(ch) {
		return l.scanInt()
	}

	if ch == '~' {
		switch {
		case l.hasPrefix(progBeginText):
			l.pos += len(progBeginText)
			return Token{Type: PROG_BEGIN, Lexeme: progBeginText, Line: line}, nil
		case l.hasPrefix(progEndText):
			l.pos += len(progEndText)
			return Token{Type: PROG_END, Lexeme: progEndText, Line: line}, nil
		}
		return Token{}, &LexError{Line: line, Msg: "expected ~sya~ or ~nya~"}
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '(':
		return Token{Type: LPAREN, Lexeme: "(", Line: line}, nil
	case ')':
		return Token{Type: RPAREN, Lexeme: ")", Line: line}, nil
	case '{':
		return Token{Type: LBRACE, Lexeme: "{", Line: line}, nil
	case '}':
		return Token{Type: RBRACE, Lexeme: "}", Line: line}, nil
	case '[':
		return Token{Type: LBRACKET, Lexeme: "[", Line: line}, nil
	case ']':
		return Token{Type: RBRACKET, Lexeme: "]", Line: line}, nil
	case ';':
		return Token{Type: SEMICOLON, Lexeme: ";", Line: line}, nil
	case ',':
		return Token{Type: COMMA, Lexeme: ",", Line: line}, nil
	case '+':
		return Token{Type: PLUS, Lexeme: "+", Line: line}, nil
	case '-':
		return Token{Type: MINUS, Lexeme: "-", Line: line}, nil
	case '*':
		return Token{Type: STAR, Lexeme: "*", Line: line}, nil
	case '/':
		return Token{Type: SLASH, Lexeme: "/", Line: line}, nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return Token{Type: AND, Lexeme: "&&", Line: line}, nil
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{Type: OR, Lexeme: "||", Line: line}, nil
		}
	case '!':
		if l.peek() == '=' {
			l.advance()
			return Token{Type: NOT_EQ, Lexeme: "!=", Line: line}, nil
		}
		return Token{Type: NOT, Lexeme: "!", Line: line}, nil
	case '<':
		if l.peek() == '=' {
			l.advance()
			return Token{Type: LESS_EQ, Lexeme: "<=", Line: line}, nil
		}
		return Token{Type: LESS, Lexeme: "<", Line: line}, nil
	case '>':
		if l.peek() == '=' {
			l.advance()
			return Token{Type: GREATER_EQ, Lexeme: ">=", Line: line}, nil
		}
		return Token{Type: GREATER, Lexeme: ">", Line: line}, nil
	case '=':
		if l.peek() == '=' { // lookahead: distinguish = vs ==
			l.advance()
			return Token{Type: EQUALS, Lexeme: "==", Line: line}, nil
		}
		return Token{Type: ASSIGN, Lexeme: "=", Line: line}, nil
	}
	return Token{}, &LexError{Line: line, Msg: fmt.Sprintf("unexpected character %q", ch)}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// Every identifier is interned into names, and its token carries the id.
// It returns a non-nil error on the first illegal character.
func Lex(src string, names *NameTable) ([]Token, error) {
	l := newLexer(src, names)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
