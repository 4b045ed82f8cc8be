package syntax

import "math"

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	IDENT = "IDENT" // main, foo, _bar
	INT   = "INT"   // 12345

	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LE     = "<="
	GE     = ">="

	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	FN    = "FN"
	LET   = "LET"
	IF    = "IF"
	ELSE  = "ELSE"
	EACH  = "EACH"
	IN    = "IN"
	LEN   = "LEN"
	TRUE  = "TRUE"
	FALSE = "FALSE"
)

var keywords = map[string]TokenType{
	"fn":    FN,
	"let":   LET,
	"if":    IF,
	"else":  ELSE,
	"each":  EACH,
	"in":    IN,
	"len":   LEN,
	"true":  TRUE,
	"false": FALSE,
}

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return intToString(int64(p.Line)) + ":" + intToString(int64(p.Col))
}

// Lexer holds the scanning state and the current token. Errors found while
// scanning or parsing are collected in Errors.
type Lexer struct {
	input []byte
	pos   int
	line  int
	col   int

	CurrTokenType TokenType
	CurrLiteral   string
	CurrIntValue  int64 // only meaningful when CurrTokenType == INT
	CurrPos       Pos

	Errors *ErrorCollection
}

// NewLexer creates a lexer over input. A trailing 0 byte is appended when
// missing; it marks the end of input.
func NewLexer(input []byte) *Lexer {
	if len(input) == 0 || input[len(input)-1] != 0 {
		buf := make([]byte, len(input)+1)
		copy(buf, input)
		input = buf
	}
	return &Lexer{
		input:  input,
		line:   1,
		col:    1,
		Errors: &ErrorCollection{},
	}
}

func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) peekByte(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

// NextToken scans the next token into the Curr* fields.
// Call repeatedly until CurrTokenType == EOF.
func (l *Lexer) NextToken() {
	l.skipWhitespace()

	l.CurrPos = Pos{Line: l.line, Col: l.col}
	l.CurrIntValue = 0

	c := l.input[l.pos]
	switch {
	case c == 0:
		l.CurrTokenType = EOF
		l.CurrLiteral = ""
		return
	case isLetter(c):
		lit := l.readIdentifier()
		l.CurrLiteral = lit
		if kw, ok := keywords[lit]; ok {
			l.CurrTokenType = kw
		} else {
			l.CurrTokenType = IDENT
		}
		return
	case isDigit(c):
		l.readNumber()
		return
	}

	two := string([]byte{c, l.peekByte(1)})
	switch two {
	case "==", "!=", "<=", ">=":
		l.CurrTokenType = TokenType(two)
		l.CurrLiteral = two
		l.advance()
		l.advance()
		return
	}

	switch c {
	case '=', '+', '-', '*', '/', '<', '>', ',', ';', ':', '(', ')', '{', '}', '[', ']':
		l.CurrTokenType = TokenType(string(c))
		l.CurrLiteral = string(c)
		l.advance()
	default:
		l.CurrTokenType = ILLEGAL
		l.CurrLiteral = string(c)
		l.Errors.Add(l.CurrPos, "unexpected character '"+string(c)+"'")
		l.advance()
	}
}

// PeekToken returns the next token type without advancing the lexer.
func (l *Lexer) PeekToken() TokenType {
	saved := *l
	errCount := l.Errors.Len()

	l.NextToken()
	next := l.CurrTokenType

	errs := l.Errors
	*l = saved
	errs.truncate(errCount)
	return next
}

func (l *Lexer) skipWhitespace() {
	for {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
		case c == '/' && l.peekByte(1) == '/':
			for l.input[l.pos] != '\n' && l.input[l.pos] != 0 {
				l.advance()
			}
		default:
			return
		}
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.input[l.pos]) || isDigit(l.input[l.pos]) {
		l.advance()
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) readNumber() {
	start := l.pos
	var value int64
	overflow := false
	for isDigit(l.input[l.pos]) {
		d := int64(l.input[l.pos] - '0')
		if value > (math.MaxInt64-d)/10 {
			overflow = true
		}
		value = value*10 + d
		l.advance()
	}
	l.CurrTokenType = INT
	l.CurrLiteral = string(l.input[start:l.pos])
	if overflow {
		l.Errors.Add(l.CurrPos, "integer literal "+l.CurrLiteral+" is too large")
		value = 0
	}
	l.CurrIntValue = value
}
