// Package sexy reads the S-expression assertions of markdown test files
// and matches compiler output against them.
package sexy

import (
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
	NodeArray
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	case NodeArray:
		return "array"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node represents any Sexy datum
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList, NodeArray
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeEllipsis:
		return "..."
	case NodeList, NodeArray:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		if n.Type == NodeList {
			return "(" + strings.Join(parts, " ") + ")"
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

// Helper constructors for common node types
func NewSymbol(name string) *Node  { return &Node{Type: NodeSymbol, Text: name} }
func NewString(value string) *Node { return &Node{Type: NodeString, Text: value} }
func NewInteger(text string) *Node { return &Node{Type: NodeInteger, Text: text} }
func NewEllipsis() *Node           { return &Node{Type: NodeEllipsis} }
func NewList(items []*Node) *Node  { return &Node{Type: NodeList, Items: items} }
func NewArray(items []*Node) *Node { return &Node{Type: NodeArray, Items: items} }

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type == NodeSymbol || n.Type == NodeString || n.Type == NodeInteger || n.Type == NodeEllipsis
}

// Match reports whether actual matches pattern. An ellipsis inside a
// pattern list or array matches any run of items, including none; a bare
// ellipsis matches anything.
func Match(pattern, actual *Node) bool {
	if pattern.Type == NodeEllipsis {
		return true
	}
	if pattern.Type != actual.Type {
		return false
	}
	switch pattern.Type {
	case NodeList, NodeArray:
		return matchItems(pattern.Items, actual.Items)
	default:
		return pattern.Text == actual.Text
	}
}

func matchItems(patterns, actuals []*Node) bool {
	if len(patterns) == 0 {
		return len(actuals) == 0
	}
	if patterns[0].Type == NodeEllipsis {
		for skip := 0; skip <= len(actuals); skip++ {
			if matchItems(patterns[1:], actuals[skip:]) {
				return true
			}
		}
		return false
	}
	if len(actuals) == 0 {
		return false
	}
	return Match(patterns[0], actuals[0]) && matchItems(patterns[1:], actuals[1:])
}

// Mismatch describes the first difference between pattern and actual, or
// returns "" if they match.
func Mismatch(pattern, actual *Node) string {
	return mismatch(pattern, actual, "root")
}

func mismatch(pattern, actual *Node, path string) string {
	if Match(pattern, actual) {
		return ""
	}
	if pattern.Type != actual.Type {
		return fmt.Sprintf("at %s: expected %s %s, got %s %s", path, pattern.Type, pattern, actual.Type, actual)
	}
	if (pattern.Type == NodeList || pattern.Type == NodeArray) && !hasEllipsis(pattern) &&
		len(pattern.Items) == len(actual.Items) {
		for i := range pattern.Items {
			if m := mismatch(pattern.Items[i], actual.Items[i], fmt.Sprintf("%s[%d]", path, i)); m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("at %s: expected %s, got %s", path, pattern, actual)
}

func hasEllipsis(n *Node) bool {
	for _, item := range n.Items {
		if item.Type == NodeEllipsis {
			return true
		}
	}
	return false
}

type parser struct {
	lexer        *lexer
	currentToken token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()

	result, err := p.parseDatum()
	if len(p.lexer.errors) > 0 {
		// Lexer errors take priority because they might cause confusing parser errors.
		return nil, fmt.Errorf("%s", p.lexer.errors[0])
	}
	if err != nil {
		return nil, err
	}

	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("expected EOF but got %s", p.currentToken.Type)
	}

	return result, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		p.nextToken()
		return NewSymbol(tok.Value), nil
	case tokenString:
		p.nextToken()
		return NewString(tok.Value), nil
	case tokenInteger:
		p.nextToken()
		return NewInteger(tok.Value), nil
	case tokenEllipsis:
		p.nextToken()
		return NewEllipsis(), nil
	case tokenLParen:
		items, err := p.parseItems(tokenRParen)
		if err != nil {
			return nil, err
		}
		return NewList(items), nil
	case tokenLBracket:
		items, err := p.parseItems(tokenRBracket)
		if err != nil {
			return nil, err
		}
		return NewArray(items), nil
	default:
		return nil, fmt.Errorf("unexpected token: %s", tok.Type)
	}
}

func (p *parser) parseItems(closing tokenType) ([]*Node, error) {
	var items []*Node
	p.nextToken() // consume the opening bracket

	for p.currentToken.Type != closing && p.currentToken.Type != tokenEOF {
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if p.currentToken.Type != closing {
		return nil, fmt.Errorf("expected %s but got %s", closing, p.currentToken.Type)
	}
	p.nextToken()
	return items, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenEllipsis
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type     tokenType
	Value    string
	Position int
}

var brackets = map[rune]tokenType{'(': tokenLParen, ')': tokenRParen, '[': tokenLBracket, ']': tokenRBracket}

type lexer struct {
	input    string
	position int
	current  rune
	errors   []string
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.position >= len(l.input) {
		l.current = 0
	} else {
		l.current = rune(l.input[l.position])
	}
	l.position++
}

func (l *lexer) peekChar() rune {
	if l.position >= len(l.input) {
		return 0
	}
	return rune(l.input[l.position])
}

func (l *lexer) skipComment() {
	for l.current != '\n' && l.current != '\r' && l.current != 0 {
		l.readChar()
	}
}

func (l *lexer) readWhile(pred func(rune) bool) string {
	start := l.position - 1
	for pred(l.current) {
		l.readChar()
	}
	return l.input[start : l.position-1]
}

func (l *lexer) readString() (string, error) {
	var b strings.Builder
	l.readChar() // skip opening quote

	for l.current != '"' && l.current != 0 {
		if l.current == '\\' {
			l.readChar()
			switch l.current {
			case '"', '\\':
				b.WriteRune(l.current)
			case 'n':
				b.WriteByte('\n')
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.current)
			}
		} else {
			b.WriteRune(l.current)
		}
		l.readChar()
	}

	if l.current != '"' {
		return "", fmt.Errorf("unterminated string")
	}
	l.readChar() // skip closing quote
	return b.String(), nil
}

func (l *lexer) fail(format string, args ...any) token {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
	return token{Type: tokenEOF, Position: l.position - 1}
}

func (l *lexer) nextToken() token {
	for {
		for unicode.IsSpace(l.current) {
			l.readChar()
		}

		pos := l.position - 1

		switch {
		case l.current == 0:
			return token{Type: tokenEOF, Position: pos}
		case l.current == ';':
			l.skipComment()
			continue
		case brackets[l.current] != tokenEOF:
			typ := brackets[l.current]
			value := string(l.current)
			l.readChar()
			return token{Type: typ, Value: value, Position: pos}
		case l.current == '"':
			str, err := l.readString()
			if err != nil {
				return l.fail("%s", err)
			}
			return token{Type: tokenString, Value: str, Position: pos}
		case l.current == '.':
			if l.peekChar() == '.' {
				l.readChar()
				if l.peekChar() == '.' {
					l.readChar()
					l.readChar()
					return token{Type: tokenEllipsis, Value: "...", Position: pos}
				}
			}
			return l.fail("unexpected character '.'")
		case unicode.IsLetter(l.current):
			return token{Type: tokenSymbol, Value: l.readWhile(isSymbolChar), Position: pos}
		case unicode.IsDigit(l.current), l.current == '+', l.current == '-':
			if !unicode.IsDigit(l.current) && !unicode.IsDigit(l.peekChar()) {
				// A lone sign is a symbol.
				return token{Type: tokenSymbol, Value: l.readWhile(isSymbolChar), Position: pos}
			}
			l.readChar()
			digits := l.readWhile(unicode.IsDigit)
			return token{Type: tokenInteger, Value: l.input[pos:pos+1] + digits, Position: pos}
		default:
			return l.fail("unexpected character '%c'", l.current)
		}
	}
}

// isSymbolChar accepts type names such as Array<Int> as single symbols.
func isSymbolChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '<' || r == '>' || r == '+'
}
