package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT  // status, priority, file, ...
	NUMBER // 42, 3.14, 1_000_000
	STRING // "hello" or 'hello'
	REGEX  // /pattern/flags

	// Operators
	PLUS     // +
	MINUS    // -
	BANG     // !
	ASTERISK // *
	SLASH    // /
	PERCENT  // %
	LT       // <
	GT       // >
	LTE      // <=
	GTE      // >=
	EQ       // ==
	NOT_EQ   // !=
	AND      // && or and
	OR       // || or or
	NOT      // not

	// Delimiters
	COMMA    // ,
	COLON    // :
	DOT      // .
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]

	// Keywords
	TRUE  // "true"
	FALSE // "false"
	NULL  // "null"
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset into the source
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Pos: %d}", t.Type.String(), t.Literal, t.Pos)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case REGEX:
		return "REGEX"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case BANG:
		return "BANG"
	case ASTERISK:
		return "ASTERISK"
	case SLASH:
		return "SLASH"
	case PERCENT:
		return "PERCENT"
	case LT:
		return "LT"
	case GT:
		return "GT"
	case LTE:
		return "LTE"
	case GTE:
		return "GTE"
	case EQ:
		return "EQ"
	case NOT_EQ:
		return "NOT_EQ"
	case AND:
		return "AND"
	case OR:
		return "OR"
	case NOT:
		return "NOT"
	case COMMA:
		return "COMMA"
	case COLON:
		return "COLON"
	case DOT:
		return "DOT"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACE:
		return "LBRACE"
	case RBRACE:
		return "RBRACE"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	case TRUE:
		return "TRUE"
	case FALSE:
		return "FALSE"
	case NULL:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// keywords maps bareword literals to their token types.
// and/or/not are operators at the lexical level, never identifiers.
var keywords = map[string]TokenType{
	"and":   AND,
	"or":    OR,
	"not":   NOT,
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Lexer tokenizes expression source text
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position (after current char)
	ch           byte // current char under examination
	line         int
	column       int

	// prevType is the type of the last emitted token. A '/' starts a
	// regex literal only when the previous token could not have ended
	// an operand; otherwise it is the division operator.
	prevType    TokenType
	hasPrev     bool
	illegalNote string // reason attached to the last ILLEGAL token
}

// New creates a new lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// IllegalNote returns the reason for the most recent ILLEGAL token.
func (l *Lexer) IllegalNote() string {
	return l.illegalNote
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Pos: l.position, Line: l.line, Column: l.column}

	switch l.ch {
	case '+':
		tok.Type, tok.Literal = PLUS, "+"
	case '-':
		tok.Type, tok.Literal = MINUS, "-"
	case '*':
		tok.Type, tok.Literal = ASTERISK, "*"
	case '%':
		tok.Type, tok.Literal = PERCENT, "%"
	case '/':
		if l.regexCanStart() {
			return l.readRegex()
		}
		tok.Type, tok.Literal = SLASH, "/"
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = EQ, "=="
		} else {
			tok.Type, tok.Literal = ILLEGAL, "="
			l.illegalNote = "unexpected character '=' (use '==' for equality)"
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = NOT_EQ, "!="
		} else {
			tok.Type, tok.Literal = BANG, "!"
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = LTE, "<="
		} else {
			tok.Type, tok.Literal = LT, "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = GTE, ">="
		} else {
			tok.Type, tok.Literal = GT, ">"
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok.Type, tok.Literal = AND, "&&"
		} else {
			tok.Type, tok.Literal = ILLEGAL, "&"
			l.illegalNote = "unexpected character '&' (use '&&' or 'and')"
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok.Type, tok.Literal = OR, "||"
		} else {
			tok.Type, tok.Literal = ILLEGAL, "|"
			l.illegalNote = "unexpected character '|' (use '||' or 'or')"
		}
	case ',':
		tok.Type, tok.Literal = COMMA, ","
	case ':':
		tok.Type, tok.Literal = COLON, ":"
	case '.':
		tok.Type, tok.Literal = DOT, "."
	case '(':
		tok.Type, tok.Literal = LPAREN, "("
	case ')':
		tok.Type, tok.Literal = RPAREN, ")"
	case '{':
		tok.Type, tok.Literal = LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = RBRACE, "}"
	case '[':
		tok.Type, tok.Literal = LBRACKET, "["
	case ']':
		tok.Type, tok.Literal = RBRACKET, "]"
	case '"', '\'':
		return l.readString(l.ch)
	case 0:
		tok.Type, tok.Literal = EOF, ""
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			l.setPrev(tok.Type)
			return tok
		}
		if isDigit(l.ch) {
			tok.Literal = l.readNumber()
			tok.Type = NUMBER
			l.setPrev(tok.Type)
			return tok
		}
		tok.Type, tok.Literal = ILLEGAL, string(l.ch)
		l.illegalNote = fmt.Sprintf("unexpected character %q", string(l.ch))
	}

	l.readChar()
	l.setPrev(tok.Type)
	return tok
}

func (l *Lexer) setPrev(tt TokenType) {
	l.prevType = tt
	l.hasPrev = true
}

// regexCanStart reports whether a '/' at the current position begins a
// regex literal. It does when the previous token could not have ended
// an operand: start of input, any operator, or an opening bracket,
// comma or colon.
func (l *Lexer) regexCanStart() bool {
	if !l.hasPrev {
		return true
	}
	switch l.prevType {
	case PLUS, MINUS, BANG, ASTERISK, SLASH, PERCENT,
		LT, GT, LTE, GTE, EQ, NOT_EQ, AND, OR, NOT,
		LPAREN, LBRACKET, LBRACE, COMMA, COLON:
		return true
	}
	return false
}

// readRegex reads a /pattern/flags literal. The literal keeps the raw
// "/body/flags" text; the parser splits body from flags.
func (l *Lexer) readRegex() Token {
	tok := Token{Type: REGEX, Pos: l.position, Line: l.line, Column: l.column}
	start := l.position
	l.readChar() // consume opening '/'

	for {
		if l.ch == 0 || l.ch == '\n' {
			l.illegalNote = "unterminated regex literal"
			tok.Type = ILLEGAL
			tok.Literal = l.input[start:l.position]
			l.setPrev(tok.Type)
			return tok
		}
		if l.ch == '\\' && l.peekChar() != 0 {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '/' {
			break
		}
		l.readChar()
	}
	l.readChar() // consume closing '/'

	// trailing flag letters (i, m, s)
	for isLetter(l.ch) {
		l.readChar()
	}

	tok.Literal = l.input[start:l.position]
	l.setPrev(tok.Type)
	return tok
}

// readString reads a quoted string. Backslash escapes degrade to the
// escaped character verbatim; there are no named escapes.
func (l *Lexer) readString(quote byte) Token {
	tok := Token{Type: STRING, Pos: l.position, Line: l.line, Column: l.column}
	l.readChar() // consume opening quote

	var sb strings.Builder
	for {
		if l.ch == 0 || l.ch == '\n' {
			l.illegalNote = "unterminated string literal"
			tok.Type = ILLEGAL
			tok.Literal = sb.String()
			l.setPrev(tok.Type)
			return tok
		}
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				l.illegalNote = "unterminated string literal"
				tok.Type = ILLEGAL
				tok.Literal = sb.String()
				l.setPrev(tok.Type)
				return tok
			}
			sb.WriteByte(l.ch)
			l.readChar()
			continue
		}
		if l.ch == quote {
			break
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote

	tok.Literal = sb.String()
	l.setPrev(tok.Type)
	return tok
}

// readIdentifier reads an identifier (letters, digits, underscores)
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads a numeric literal with an optional fractional part.
// Underscore digit separators are kept in the literal text and
// stripped by the parser before conversion.
func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
