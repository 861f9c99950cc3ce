package compiler

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "Empty",
			input: "",
			expected: []Token{
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Punctuation and Operators",
			input: "( ) { } [ ] ; , = == != < > <= >= && || ! + - * /",
			expected: []Token{
				{Type: LPAREN, Lexeme: "(", Line: 1},
				{Type: RPAREN, Lexeme: ")", Line: 1},
				{Type: LBRACE, Lexeme: "{", Line: 1},
				{Type: RBRACE, Lexeme: "}", Line: 1},
				{Type: LBRACKET, Lexeme: "[", Line: 1},
				{Type: RBRACKET, Lexeme: "]", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: EQUALS, Lexeme: "==", Line: 1},
				{Type: NOT_EQ, Lexeme: "!=", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: LESS_EQ, Lexeme: "<=", Line: 1},
				{Type: GREATER_EQ, Lexeme: ">=", Line: 1},
				{Type: AND, Lexeme: "&&", Line: 1},
				{Type: OR, Lexeme: "||", Line: 1},
				{Type: NOT, Lexeme: "!", Line: 1},
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Keywords and Names",
			input: "~sya~ let if else while fn return input print sqrt sin cos x _y2 x ~nya~",
			expected: []Token{
				{Type: PROG_BEGIN, Lexeme: "~sya~", Line: 1},
				{Type: LET, Lexeme: "let", Line: 1},
				{Type: IF, Lexeme: "if", Line: 1},
				{Type: ELSE, Lexeme: "else", Line: 1},
				{Type: WHILE, Lexeme: "while", Line: 1},
				{Type: FN, Lexeme: "fn", Line: 1},
				{Type: RETURN, Lexeme: "return", Line: 1},
				{Type: INPUT, Lexeme: "input", Line: 1},
				{Type: PRINT, Lexeme: "print", Line: 1},
				{Type: SQRT, Lexeme: "sqrt", Line: 1},
				{Type: SIN, Lexeme: "sin", Line: 1},
				{Type: COS, Lexeme: "cos", Line: 1},
				{Type: NAME, Lexeme: "x", Name: 0, Line: 1},
				{Type: NAME, Lexeme: "_y2", Name: 1, Line: 1},
				{Type: NAME, Lexeme: "x", Name: 0, Line: 1},
				{Type: PROG_END, Lexeme: "~nya~", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Integers, comments and lines",
			input: "12 # ignored ; tokens\n0\n\n9223372036854775807",
			expected: []Token{
				{Type: VAL, Lexeme: "12", Value: 12, Line: 1},
				{Type: VAL, Lexeme: "0", Value: 0, Line: 2},
				{Type: VAL, Lexeme: "9223372036854775807", Value: 9223372036854775807, Line: 4},
				{Type: EOF, Lexeme: "", Line: 4},
			},
		},
		{
			name:  "No whitespace needed",
			input: ";5+3=x",
			expected: []Token{
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: VAL, Lexeme: "5", Value: 5, Line: 1},
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: VAL, Lexeme: "3", Value: 3, Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: NAME, Lexeme: "x", Name: 0, Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lex(tt.input, NewNameTable())
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lex() =\n%v\nwant\n%v", got, tt.expected)
			}
		})
	}
}

func TestLexInternsNames(t *testing.T) {
	names := NewNameTable()
	if _, err := Lex("alpha beta alpha gamma", names); err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	if want := []string{"alpha", "beta", "gamma"}; !reflect.DeepEqual(names.Names(), want) {
		t.Errorf("names = %v, want %v", names.Names(), want)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		input string
		line  int
	}{
		{"a & b", 1},
		{"\n\na | b", 3},
		{"~foo~", 1},
		{"x @ y", 1},
		{"99999999999999999999", 1},
	}
	for _, tt := range tests {
		_, err := Lex(tt.input, NewNameTable())
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("Lex(%q) error = %v, want *LexError", tt.input, err)
			continue
		}
		if lexErr.Line != tt.line {
			t.Errorf("Lex(%q) line = %d, want %d", tt.input, lexErr.Line, tt.line)
		}
	}
}

func TestLexRejectsNonASCIIDigits(t *testing.T) {
	for _, input := range []string{"٣", ";x٣", "1٣"} {
		_, err := Lex(input, NewNameTable())
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("Lex(%q) error = %v, want *LexError", input, err)
			continue
		}
		if !strings.Contains(lexErr.Msg, "unexpected character") {
			t.Errorf("Lex(%q) message = %q, want an unexpected character error", input, lexErr.Msg)
		}
	}
}

func TestTokenTypeString(t *testing.T) {
	if PROG_BEGIN.String() != "PROG_BEGIN" || SLASH.String() != "SLASH" {
		t.Errorf("unexpected names %q %q", PROG_BEGIN, SLASH)
	}
	if got := TokenType(999).String(); got != "TokenType(999)" {
		t.Errorf("TokenType(999).String() = %q", got)
	}
	if !STAR.IsOperator() || LET.IsOperator() {
		t.Errorf("IsOperator classification is wrong")
	}
}
