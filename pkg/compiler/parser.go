package compiler

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	Program     = PROG_BEGIN (SubProgram | FuncDef)* PROG_END
//	FuncDef     = "(" (NAME ("," NAME)*)? ")" NAME "fn" "[" SubProgram "]"
//	SubProgram  = FlowBlock+
//	FlowBlock   = IfBlock | WhileBlock | "{" Body "}" | Body
//	WhileBlock  = "(" Expression ")" "while" "{" Body "}"
//	IfBlock     = "(" Expression ")" "if" "{" Body "}" ("else" "{" Body "}")?
//	Body        = Line+
//	Line        = ";" (Expression (("=" NAME "let"?) | "return")?)?
//	Expression  = OrOperand ("||" OrOperand)*
//	OrOperand   = AndOperand ("&&" AndOperand)*
//	AndOperand  = CompOperand (("=="|">"|"<"|">="|"<="|"!=") CompOperand)?
//	CompOperand = AddOperand (("+"|"-") AddOperand)*
//	AddOperand  = NotOperand (("*"|"/") NotOperand)*
//	NotOperand  = MulOperand "!"?
//	MulOperand  = Quant | "(" Expression ")"
//	Quant       = NAME | VAL | "input" | BuiltIn | "(" Expression ("," Expression)* ")" NAME
//	BuiltIn     = "(" Expression ")" ("print"|"sqrt"|"sin"|"cos")
//
// Lists are built as Seq chains: the accumulated chain is the left child and
// each new item the right child. Binary operators store the right-hand
// operand in Left and the accumulated left-hand side in Right.
type Parser struct {
	tokens      []Token
	pos         int
	prog        *Program
	sourceLines []string

	// Logger receives one line per hard syntax failure. Nil discards.
	Logger *log.Logger

	speculative int // > 0 while inside an alternative that may backtrack
	furthest    *SyntaxError
}

// SyntaxError is a grammar expectation that was not met.
type SyntaxError struct {
	Line     int
	Rule     string // parsing rule that failed
	Expected string
	Got      Token
	Snippet  string

	pos    int
	logged bool
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("line %d: expected %s in %s, got %s", e.Line, e.Expected, e.Rule, e.Got.Type)
	if e.Got.Lexeme != "" {
		msg += fmt.Sprintf(" (%q)", e.Got.Lexeme)
	}
	if e.Snippet != "" {
		msg += "\n  |> " + e.Snippet
	}
	return msg
}

func NewParser(tokens []Token, prog *Program, rawSource string) *Parser {
	return &Parser{tokens: tokens, prog: prog, sourceLines: strings.Split(rawSource, "\n")}
}

// Parse builds the AST of a whole program. Variable and function names are
// classified into prog.Vars and prog.Funcs as they are recognised.
func Parse(tokens []Token, prog *Program, rawSource string) (*Node, error) {
	return NewParser(tokens, prog, rawSource).Parse()
}

func (p *Parser) Parse() (*Node, error) {
	root, err := p.parseProgram()
	if err != nil {
		if p.furthest != nil {
			err = p.furthest
		}
		if se, ok := err.(*SyntaxError); ok && !se.logged {
			p.logger().Print(se)
			se.logged = true
		}
		return nil, err
	}
	return root, nil
}

func (p *Parser) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return p.Logger
}

// fail records an unmet expectation at the current token. The failure at
// the furthest token, latest first, is the one Parse reports. Failures that
// happen outside any backtracking alternative are logged immediately.
func (p *Parser) fail(rule, expected string) error {
	tok := p.peek()
	e := &SyntaxError{Line: tok.Line, Rule: rule, Expected: expected, Got: tok, pos: p.pos}
	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) {
		e.Snippet = strings.TrimSpace(p.sourceLines[idx])
	}
	if p.furthest == nil || e.pos >= p.furthest.pos {
		p.furthest = e
	}
	if p.speculative == 0 {
		p.logger().Print(e)
		e.logged = true
	}
	return e
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		line := 0
		if len(p.tokens) > 0 {
			line = p.tokens[len(p.tokens)-1].Line
		}
		return Token{Type: EOF, Line: line}
	}
	return p.tokens[p.pos]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise fails rule.
func (p *Parser) expect(tt TokenType, rule string) (Token, error) {
	if p.peek().Type != tt {
		return p.peek(), p.fail(rule, tt.String())
	}
	return p.advance(), nil
}

// try runs an alternative and rewinds to the starting token if it fails.
func (p *Parser) try(alt func() (*Node, error)) (*Node, bool) {
	start := p.pos
	p.speculative++
	n, err := alt()
	p.speculative--
	if err != nil {
		p.pos = start
		return nil, false
	}
	return n, true
}

func (p *Parser) nameOf(tok Token) string {
	if name, ok := p.prog.Names.Name(tok.Name); ok {
		return name
	}
	return tok.Lexeme
}

func (p *Parser) variable(tok Token) int64 {
	return int64(p.prog.Vars.Insert(p.nameOf(tok)))
}

func (p *Parser) function(tok Token) int64 {
	return int64(p.prog.Funcs.Insert(p.nameOf(tok)))
}

func (p *Parser) parseProgram() (*Node, error) {
	if _, err := p.expect(PROG_BEGIN, "Program"); err != nil {
		return nil, err
	}

	var root *Node
	for {
		item, ok := p.try(p.parseSubProgram)
		if !ok {
			item, ok = p.try(p.parseFuncDef)
		}
		if !ok {
			break
		}
		root = NewBranch(KindSeq, 0, root, item)
	}
	if root == nil {
		root = NewNode(KindSeq, 0)
	}

	if _, err := p.expect(PROG_END, "Program"); err != nil {
		return nil, err
	}
	return root, nil
}

func (p *Parser) parseFuncDef() (*Node, error) {
	if _, err := p.expect(LPAREN, "FuncDef"); err != nil {
		return nil, err
	}

	var params *Node
	if p.peek().Type == NAME {
		params = NewNode(KindVar, p.variable(p.advance()))
		for p.peek().Type == COMMA {
			p.advance()
			tok, err := p.expect(NAME, "FuncDef")
			if err != nil {
				return nil, err
			}
			params = chain(params, NewNode(KindVar, p.variable(tok)))
		}
	}

	if _, err := p.expect(RPAREN, "FuncDef"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(NAME, "FuncDef")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(FN, "FuncDef"); err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACKET, "FuncDef"); err != nil {
		return nil, err
	}
	body, err := p.parseSubProgram()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RBRACKET, "FuncDef"); err != nil {
		return nil, err
	}
	return NewBranch(KindFuncDef, p.function(nameTok), params, body), nil
}

func (p *Parser) parseSubProgram() (*Node, error) {
	node, err := p.parseFlowBlock()
	if err != nil {
		return nil, err
	}
	for {
		next, ok := p.try(p.parseFlowBlock)
		if !ok {
			return node, nil
		}
		node = chain(node, next)
	}
}

func (p *Parser) parseFlowBlock() (*Node, error) {
	if node, ok := p.try(p.parseIfBlock); ok {
		return node, nil
	}
	if node, ok := p.try(p.parseWhileBlock); ok {
		return node, nil
	}
	if p.peek().Type != LBRACE {
		return p.parseBody()
	}
	p.advance()
	node, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RBRACE, "FlowBlock"); err != nil {
		return nil, err
	}
	return node, nil
}

// parseCondition parses the "(" Expression ")" kw prefix shared by if and while.
func (p *Parser) parseCondition(kw TokenType, rule string) (*Node, error) {
	if _, err := p.expect(LPAREN, rule); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, rule); err != nil {
		return nil, err
	}
	if _, err := p.expect(kw, rule); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseBlockBody parses "{" Body "}".
func (p *Parser) parseBlockBody(rule string) (*Node, error) {
	if _, err := p.expect(LBRACE, rule); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RBRACE, rule); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) parseWhileBlock() (*Node, error) {
	cond, err := p.parseCondition(WHILE, "WhileBlock")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlockBody("WhileBlock")
	if err != nil {
		return nil, err
	}
	return NewBranch(KindWhile, 0, cond, body), nil
}

func (p *Parser) parseIfBlock() (*Node, error) {
	cond, err := p.parseCondition(IF, "IfBlock")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlockBody("IfBlock")
	if err != nil {
		return nil, err
	}
	if p.peek().Type == ELSE {
		p.advance()
		elseBody, err := p.parseBlockBody("IfBlock")
		if err != nil {
			return nil, err
		}
		body = NewBranch(KindElse, 0, body, elseBody)
	}
	return NewBranch(KindIf, 0, cond, body), nil
}

func (p *Parser) parseBody() (*Node, error) {
	node, err := p.parseLine()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == SEMICOLON {
		start := p.pos
		p.speculative++
		next, err := p.parseLine()
		p.speculative--
		if err != nil {
			p.pos = start
			break
		}
		if next != nil {
			node = chain(node, next)
		}
	}
	if node == nil {
		node = NewNode(KindSeq, 0)
	}
	return node, nil
}

// parseLine returns a nil node without error for an empty statement.
func (p *Parser) parseLine() (*Node, error) {
	if _, err := p.expect(SEMICOLON, "Line"); err != nil {
		return nil, err
	}
	switch p.peek().Type {
	case SEMICOLON, RBRACE, RBRACKET, PROG_END, EOF:
		return nil, nil
	}

	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	switch p.peek().Type {
	case ASSIGN:
		p.advance()
		tok, err := p.expect(NAME, "Line")
		if err != nil {
			return nil, err
		}
		id := p.variable(tok)
		node = NewOp(OpAssign, NewNode(KindVar, id), node)
		if p.peek().Type == LET {
			p.advance()
			node = NewBranch(KindSeq, 0, NewNode(KindVarDecl, id), node)
		}
	case RETURN:
		p.advance()
		node = NewBranch(KindReturn, 0, nil, node)
	}
	return node, nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (*Node, error) {
	node, err := p.parseOrOperand()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == OR {
		p.advance()
		rhs, err := p.parseOrOperand()
		if err != nil {
			return nil, err
		}
		node = NewOp(OpOr, rhs, node)
	}
	return node, nil
}

func (p *Parser) parseOrOperand() (*Node, error) {
	node, err := p.parseAndOperand()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND {
		p.advance()
		rhs, err := p.parseAndOperand()
		if err != nil {
			return nil, err
		}
		node = NewOp(OpAnd, rhs, node)
	}
	return node, nil
}

var comparators = map[TokenType]OpCode{
	EQUALS:     OpEq,
	GREATER:    OpGt,
	LESS:       OpLt,
	GREATER_EQ: OpGe,
	LESS_EQ:    OpLe,
	NOT_EQ:     OpNeq,
}

// parseAndOperand applies at most one comparator; a chain such as a<b<c
// leaves the second comparator unconsumed.
func (p *Parser) parseAndOperand() (*Node, error) {
	node, err := p.parseCompOperand()
	if err != nil {
		return nil, err
	}
	op, ok := comparators[p.peek().Type]
	if !ok {
		return node, nil
	}
	p.advance()
	rhs, err := p.parseCompOperand()
	if err != nil {
		return nil, err
	}
	return NewOp(op, rhs, node), nil
}

func (p *Parser) parseCompOperand() (*Node, error) {
	node, err := p.parseAddOperand()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		op := OpAdd
		if p.advance().Type == MINUS {
			op = OpSub
		}
		rhs, err := p.parseAddOperand()
		if err != nil {
			return nil, err
		}
		node = NewOp(op, rhs, node)
	}
	return node, nil
}

func (p *Parser) parseAddOperand() (*Node, error) {
	node, err := p.parseNotOperand()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == STAR || p.peek().Type == SLASH {
		op := OpMul
		if p.advance().Type == SLASH {
			op = OpDiv
		}
		rhs, err := p.parseNotOperand()
		if err != nil {
			return nil, err
		}
		node = NewOp(op, rhs, node)
	}
	return node, nil
}

func (p *Parser) parseNotOperand() (*Node, error) {
	node, err := p.parseMulOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == NOT {
		p.advance()
		node = NewOp(OpNot, nil, node)
	}
	return node, nil
}

var builtins = map[TokenType]OpCode{
	PRINT: OpOutput,
	SQRT:  OpSqrt,
	SIN:   OpSin,
	COS:   OpCos,
}

// parseMulOperand handles every form that starts with "(": a parenthesised
// expression, a builtin application and a function call share the prefix,
// and the token after ")" decides which one it was.
func (p *Parser) parseMulOperand() (*Node, error) {
	if p.peek().Type != LPAREN {
		return p.parseQuant()
	}
	p.advance()

	args, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	count := 1
	for p.peek().Type == COMMA {
		p.advance()
		next, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = chain(args, next)
		count++
	}
	if _, err := p.expect(RPAREN, "MulOperand"); err != nil {
		return nil, err
	}

	tok := p.peek()
	if tok.Type == NAME {
		p.advance()
		return NewBranch(KindFuncCall, p.function(tok), nil, args), nil
	}
	if op, ok := builtins[tok.Type]; ok && count == 1 {
		p.advance()
		return NewOp(op, nil, args), nil
	}
	if count > 1 {
		return nil, p.fail("Quant", "function name after argument list")
	}
	return args, nil
}

func (p *Parser) parseQuant() (*Node, error) {
	tok := p.peek()
	switch tok.Type {
	case NAME:
		p.advance()
		return NewNode(KindVar, p.variable(tok)), nil
	case VAL:
		p.advance()
		return NewNode(KindVal, tok.Value), nil
	case INPUT:
		p.advance()
		return NewOp(OpInput, nil, nil), nil
	}
	return nil, p.fail("Quant", "name, value, input or \"(\"")
}
