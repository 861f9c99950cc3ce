package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	NAME // identifier, Token.Name holds its id in the all-names table
	VAL  // decimal integer literal, Token.Value holds it

	// Program brackets
	PROG_BEGIN // ~sya~
	PROG_END   // ~nya~

	// Keywords
	LET    // "let"
	IF     // "if"
	ELSE   // "else"
	WHILE  // "while"
	FN     // "fn"
	RETURN // "return"
	INPUT  // "input"
	PRINT  // "print"
	SQRT   // "sqrt"
	SIN    // "sin"
	COS    // "cos"

	// Paired delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	ASSIGN    // =

	// Comparison and logic
	EQUALS     // ==
	NOT_EQ     // !=
	GREATER    // >
	LESS       // <
	GREATER_EQ // >=
	LESS_EQ    // <=
	AND        // &&
	OR         // ||
	NOT        // !

	// Arithmetic operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /
)

var tokenNames = [...]string{
	EOF:        "EOF",
	NAME:       "NAME",
	VAL:        "VAL",
	PROG_BEGIN: "PROG_BEGIN",
	PROG_END:   "PROG_END",
	LET:        "LET",
	IF:         "IF",
	ELSE:       "ELSE",
	WHILE:      "WHILE",
	FN:         "FN",
	RETURN:     "RETURN",
	INPUT:      "INPUT",
	PRINT:      "PRINT",
	SQRT:       "SQRT",
	SIN:        "SIN",
	COS:        "COS",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LBRACKET:   "LBRACKET",
	RBRACKET:   "RBRACKET",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	ASSIGN:     "ASSIGN",
	EQUALS:     "EQUALS",
	NOT_EQ:     "NOT_EQ",
	GREATER:    "GREATER",
	LESS:       "LESS",
	GREATER_EQ: "GREATER_EQ",
	LESS_EQ:    "LESS_EQ",
	AND:        "AND",
	OR:         "OR",
	NOT:        "NOT",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsOperator reports whether tt is an arithmetic operator token; every other
// non-literal token is a keyword.
func (tt TokenType) IsOperator() bool {
	return tt >= PLUS && tt <= SLASH
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Value  int64  // VAL only
	Name   int    // NAME only: id in the all-names table
	Line   int    // 1-based source line
}

func (t Token) String() string {
	switch t.Type {
	case NAME:
		return fmt.Sprintf("%-10s %-14q  #%d line %d", t.Type, t.Lexeme, t.Name, t.Line)
	case VAL:
		return fmt.Sprintf("%-10s %-14d  line %d", t.Type, t.Value, t.Line)
	}
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
