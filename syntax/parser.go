package syntax

import "github.com/wayto-lang/wayto/types"

// Parse parses a whole program.
func Parse(src []byte) ([]*Func, error) {
	l := NewLexer(src)
	funcs := ParseProgram(l)
	if l.Errors.HasErrors() {
		return nil, l.Errors.First()
	}
	return funcs, nil
}

// ParseExpr parses a sequence of expressions separated by ';' spanning the
// whole input.
func ParseExpr(src []byte) (*ASTNode, error) {
	l := NewLexer(src)
	node := ParseExpression(l)
	if l.Errors.HasErrors() {
		return nil, l.Errors.First()
	}
	return node, nil
}

func prime(l *Lexer) {
	if l.CurrTokenType == "" {
		l.NextToken()
	}
}

// ParseProgram parses function definitions until end of input. Errors are
// recorded in l.Errors; parsing stops at the first one.
func ParseProgram(l *Lexer) []*Func {
	prime(l)
	var funcs []*Func
	for l.CurrTokenType != EOF {
		fn := parseFunc(l)
		if fn == nil {
			return nil
		}
		funcs = append(funcs, fn)
	}
	return funcs
}

// ParseExpression parses an expression sequence up to end of input.
func ParseExpression(l *Lexer) *ASTNode {
	prime(l)
	return parseSequence(l, EOF)
}

func describe(l *Lexer) string {
	switch l.CurrTokenType {
	case EOF:
		return "end of input"
	case IDENT:
		return "identifier " + quote(l.CurrLiteral)
	case INT:
		return "integer " + l.CurrLiteral
	default:
		return "'" + l.CurrLiteral + "'"
	}
}

func fail(l *Lexer, msg string) {
	if l.Errors.HasErrors() {
		return
	}
	if l.CurrTokenType == EOF {
		l.Errors.addAtEOF(l.CurrPos, msg)
		return
	}
	l.Errors.Add(l.CurrPos, msg)
}

// expect consumes a token of type tt, or records an error and returns false.
func expect(l *Lexer, tt TokenType, what string) bool {
	if l.Errors.HasErrors() {
		return false
	}
	if l.CurrTokenType != tt {
		fail(l, "expected "+what+" but got "+describe(l))
		return false
	}
	l.NextToken()
	return true
}

func expectIdent(l *Lexer, what string) (string, bool) {
	name := l.CurrLiteral
	if !expect(l, IDENT, what) {
		return "", false
	}
	return name, true
}

func parseFunc(l *Lexer) *Func {
	pos := l.CurrPos
	if !expect(l, FN, "'fn'") {
		return nil
	}
	name, ok := expectIdent(l, "function name")
	if !ok || !expect(l, LPAREN, "'('") {
		return nil
	}

	var params []Param
	for l.CurrTokenType != RPAREN {
		if len(params) > 0 && !expect(l, COMMA, "',' or ')'") {
			return nil
		}
		ppos := l.CurrPos
		pname, ok := expectIdent(l, "parameter name")
		if !ok || !expect(l, COLON, "':'") {
			return nil
		}
		ptype, ok := parseType(l)
		if !ok {
			return nil
		}
		params = append(params, Param{Name: pname, Type: ptype, Pos: ppos})
	}
	l.NextToken()

	body := parseBlock(l)
	if body == nil {
		return nil
	}
	return &Func{Name: name, Params: params, Body: body, Pos: pos}
}

func parseType(l *Lexer) (types.Type, bool) {
	name, ok := expectIdent(l, "type name")
	if !ok {
		return types.Type{}, false
	}
	if name == "Array" {
		if !expect(l, LT, "'<'") {
			return types.Type{}, false
		}
		elem, ok := parseType(l)
		if !ok || !expect(l, GT, "'>'") {
			return types.Type{}, false
		}
		return types.ArrayOf(elem), true
	}
	typ, err := types.Parse(name)
	if err != nil {
		l.Errors.Add(l.CurrPos, err.Error())
		return types.Type{}, false
	}
	return typ, true
}

// parseBlock parses '{' expr {';' expr} [';'] '}'.
func parseBlock(l *Lexer) *ASTNode {
	if !expect(l, LBRACE, "'{'") {
		return nil
	}
	if l.CurrTokenType == RBRACE {
		fail(l, "empty block")
		return nil
	}
	return parseSequence(l, RBRACE)
}

// parseSequence parses expressions separated by ';' until end, consuming
// end unless it is EOF. The result nests to the right as (then a (then b c)).
func parseSequence(l *Lexer, end TokenType) *ASTNode {
	var exprs []*ASTNode
	for {
		e := parseExpr(l)
		if e == nil {
			return nil
		}
		exprs = append(exprs, e)
		if l.CurrTokenType != SEMICOLON {
			break
		}
		l.NextToken()
		if l.CurrTokenType == end {
			break
		}
	}
	if l.CurrTokenType != end {
		what := "'}'"
		if end == EOF {
			what = "';' or end of input"
		}
		fail(l, "expected "+what+" but got "+describe(l))
		return nil
	}
	if end != EOF {
		l.NextToken()
	}

	result := exprs[len(exprs)-1]
	for i := len(exprs) - 2; i >= 0; i-- {
		result = &ASTNode{
			Kind:     NodeThen,
			Pos:      exprs[i].Pos,
			Children: []*ASTNode{exprs[i], result},
		}
	}
	return result
}

func parseExpr(l *Lexer) *ASTNode {
	if l.CurrTokenType == LET {
		pos := l.CurrPos
		l.NextToken()
		name, ok := expectIdent(l, "variable name")
		if !ok || !expect(l, ASSIGN, "'='") {
			return nil
		}
		value := parseExpr(l)
		if value == nil {
			return nil
		}
		return &ASTNode{Kind: NodeLet, Pos: pos, String: name, Children: []*ASTNode{value}}
	}
	return parseExpressionWithPrecedence(l, 0)
}

// precedence returns the precedence level for a given token type
func precedence(tokenType TokenType) int {
	switch tokenType {
	case EQ, NOT_EQ, LT, GT, LE, GE:
		return 2
	case PLUS, MINUS:
		return 3
	case ASTERISK, SLASH:
		return 4
	case LBRACKET: // subscript
		return 5
	default:
		return 0
	}
}

// parseExpressionWithPrecedence implements precedence climbing
func parseExpressionWithPrecedence(l *Lexer, minPrec int) *ASTNode {
	left := parsePrimary(l)
	if left == nil {
		return nil
	}

	for {
		prec := precedence(l.CurrTokenType)
		if prec == 0 || prec < minPrec {
			break
		}

		if l.CurrTokenType == LBRACKET {
			pos := l.CurrPos
			l.NextToken()
			index := parseExpr(l)
			if index == nil || !expect(l, RBRACKET, "']'") {
				return nil
			}
			left = &ASTNode{Kind: NodeIndex, Pos: pos, Children: []*ASTNode{left, index}}
			continue
		}

		op := l.CurrLiteral
		pos := l.CurrPos
		l.NextToken()
		right := parseExpressionWithPrecedence(l, prec+1) // left-associative
		if right == nil {
			return nil
		}
		left = &ASTNode{Kind: NodeBinary, Pos: pos, Op: op, Children: []*ASTNode{left, right}}
	}

	return left
}

// parsePrimary handles literals, names, calls and the bracketed forms.
func parsePrimary(l *Lexer) *ASTNode {
	pos := l.CurrPos
	switch l.CurrTokenType {
	case INT:
		node := &ASTNode{Kind: NodeInteger, Pos: pos, Integer: l.CurrIntValue}
		l.NextToken()
		return node

	case TRUE, FALSE:
		node := &ASTNode{Kind: NodeBoolean, Pos: pos, Boolean: l.CurrTokenType == TRUE}
		l.NextToken()
		return node

	case IDENT:
		name := l.CurrLiteral
		l.NextToken()
		if l.CurrTokenType != LPAREN {
			return &ASTNode{Kind: NodeIdent, Pos: pos, String: name}
		}
		args, ok := parseList(l, LPAREN, RPAREN, "')'")
		if !ok {
			return nil
		}
		return &ASTNode{Kind: NodeCall, Pos: pos, String: name, Children: args}

	case LBRACKET:
		elems, ok := parseList(l, LBRACKET, RBRACKET, "']'")
		if !ok {
			return nil
		}
		return &ASTNode{Kind: NodeArray, Pos: pos, Children: elems}

	case LEN:
		l.NextToken()
		if !expect(l, LPAREN, "'('") {
			return nil
		}
		target := parseExpr(l)
		if target == nil || !expect(l, RPAREN, "')'") {
			return nil
		}
		return &ASTNode{Kind: NodeLen, Pos: pos, Children: []*ASTNode{target}}

	case LPAREN:
		l.NextToken()
		expr := parseExpr(l)
		if expr == nil || !expect(l, RPAREN, "')'") {
			return nil
		}
		return expr

	case LBRACE:
		return parseBlock(l)

	case IF:
		return parseIf(l)

	case EACH:
		l.NextToken()
		name, ok := expectIdent(l, "loop variable")
		if !ok || !expect(l, IN, "'in'") {
			return nil
		}
		bound := parseExpr(l)
		if bound == nil {
			return nil
		}
		body := parseBlock(l)
		if body == nil {
			return nil
		}
		return &ASTNode{Kind: NodeEach, Pos: pos, String: name, Children: []*ASTNode{bound, body}}

	default:
		fail(l, "unexpected "+describe(l))
		return nil
	}
}

func parseIf(l *Lexer) *ASTNode {
	pos := l.CurrPos
	l.NextToken()
	cond := parseExpr(l)
	if cond == nil {
		return nil
	}
	thenBranch := parseBlock(l)
	if thenBranch == nil {
		return nil
	}
	if l.CurrTokenType != ELSE {
		fail(l, "expected 'else' but got "+describe(l))
		return nil
	}
	l.NextToken()

	var elseBranch *ASTNode
	if l.CurrTokenType == IF {
		elseBranch = parseIf(l)
	} else {
		elseBranch = parseBlock(l)
	}
	if elseBranch == nil {
		return nil
	}
	return &ASTNode{Kind: NodeIf, Pos: pos, Children: []*ASTNode{cond, thenBranch, elseBranch}}
}

// parseList parses open [expr {',' expr}] close.
func parseList(l *Lexer, open, close TokenType, closeWhat string) ([]*ASTNode, bool) {
	l.NextToken() // consume open
	var items []*ASTNode
	for l.CurrTokenType != close {
		if len(items) > 0 && !expect(l, COMMA, "',' or "+closeWhat) {
			return nil, false
		}
		item := parseExpr(l)
		if item == nil {
			return nil, false
		}
		items = append(items, item)
	}
	l.NextToken() // consume close
	return items, true
}
