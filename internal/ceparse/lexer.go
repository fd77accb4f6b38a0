package ceparse

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/dap4/internal/ceerr"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenName
	TokenInt
	TokenFloat
	TokenString
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenColon        // :
	TokenSemicolon    // ;
	TokenComma        // , or &&
	TokenDot          // .
	TokenBar          // |
	TokenAssign       // =
	TokenOp           // < <= > >= == != ~=
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of input",
	TokenName:         "name",
	TokenInt:          "integer",
	TokenFloat:        "number",
	TokenString:       "string",
	TokenLeftBracket:  "'['",
	TokenRightBracket: "']'",
	TokenLeftBrace:    "'{'",
	TokenRightBrace:   "'}'",
	TokenColon:        "':'",
	TokenSemicolon:    "';'",
	TokenComma:        "','",
	TokenDot:          "'.'",
	TokenBar:          "'|'",
	TokenAssign:       "'='",
	TokenOp:           "operator",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "token"
}

// Token is one lexical token. Value holds the decoded text for names,
// numbers, strings and operators.
type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset in the input
}

// Lexer tokenizes constraint-expression text.
type Lexer struct {
	input   string
	pos     int
	tokens  []Token
	current int
}

// NewLexer creates a lexer for input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Lex tokenizes the entire input.
func (l *Lexer) Lex() error {
	for {
		l.skipSpace()
		if l.pos >= len(l.input) {
			break
		}
		start := l.pos
		ch := l.input[l.pos]

		switch {
		case ch == '"':
			s, err := l.readString()
			if err != nil {
				return err
			}
			l.emit(TokenString, s, start)
		case ch == '[':
			l.single(TokenLeftBracket)
		case ch == ']':
			l.single(TokenRightBracket)
		case ch == '{':
			l.single(TokenLeftBrace)
		case ch == '}':
			l.single(TokenRightBrace)
		case ch == ':':
			l.single(TokenColon)
		case ch == ';':
			l.single(TokenSemicolon)
		case ch == ',':
			l.single(TokenComma)
		case ch == '.':
			l.single(TokenDot)
		case ch == '|':
			l.single(TokenBar)
		case ch == '&':
			if !strings.HasPrefix(l.input[l.pos:], "&&") {
				return ceerr.Syntax("unexpected '&' at offset %d", start)
			}
			l.pos += 2
			l.emit(TokenComma, "&&", start)
		case ch == '<' || ch == '>':
			l.pos++
			if l.pos < len(l.input) && l.input[l.pos] == '=' {
				l.pos++
			}
			l.emit(TokenOp, l.input[start:l.pos], start)
		case ch == '=':
			l.pos++
			if l.pos < len(l.input) && l.input[l.pos] == '=' {
				l.pos++
				l.emit(TokenOp, "==", start)
			} else {
				l.emit(TokenAssign, "=", start)
			}
		case ch == '!' || ch == '~':
			if l.pos+1 >= len(l.input) || l.input[l.pos+1] != '=' {
				return ceerr.Syntax("unexpected %q at offset %d", ch, start)
			}
			l.pos += 2
			l.emit(TokenOp, l.input[start:l.pos], start)
		case isDigit(ch) || ((ch == '-' || ch == '+') && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
			l.readNumber()
		case isNameStart(rune(ch)) || ch >= 0x80:
			l.readName()
		default:
			return ceerr.Syntax("unexpected %q at offset %d", ch, start)
		}
	}
	l.emit(TokenEOF, "", l.pos)
	return nil
}

// Tokens returns the lexed tokens, ending with TokenEOF.
func (l *Lexer) Tokens() []Token { return l.tokens }

// NextToken returns the next token and advances.
func (l *Lexer) NextToken() Token {
	t := l.PeekToken()
	if l.current < len(l.tokens) {
		l.current++
	}
	return t
}

// PeekToken returns the next token without advancing.
func (l *Lexer) PeekToken() Token {
	if l.current >= len(l.tokens) {
		return Token{Type: TokenEOF, Pos: len(l.input)}
	}
	return l.tokens[l.current]
}

func (l *Lexer) emit(t TokenType, value string, pos int) {
	l.tokens = append(l.tokens, Token{Type: t, Value: value, Pos: pos})
}

func (l *Lexer) single(t TokenType) {
	l.emit(t, l.input[l.pos:l.pos+1], l.pos)
	l.pos++
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) readString() (string, error) {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\\':
			l.pos += 2
			continue
		case '"':
			l.pos++
			s, err := strconv.Unquote(l.input[start:l.pos])
			if err != nil {
				return "", ceerr.Syntax("bad string literal at offset %d: %v", start, err)
			}
			return s, nil
		}
		l.pos++
	}
	return "", ceerr.Syntax("unterminated string at offset %d", start)
}

func (l *Lexer) readNumber() {
	start := l.pos
	if c := l.input[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	typ := TokenInt
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case isDigit(c):
		case c == '.' && typ == TokenInt && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]):
			typ = TokenFloat
		case (c == 'e' || c == 'E') && l.pos+1 < len(l.input):
			next := l.input[l.pos+1]
			if !isDigit(next) && next != '-' && next != '+' {
				l.emit(typ, l.input[start:l.pos], start)
				return
			}
			typ = TokenFloat
			l.pos++
		default:
			l.emit(typ, l.input[start:l.pos], start)
			return
		}
		l.pos++
	}
	l.emit(typ, l.input[start:l.pos], start)
}

// readName consumes a name. Names may contain '/' so that fully qualified
// paths like /g/x lex as one token; '.' is a separator and ends the name.
func (l *Lexer) readName() {
	start := l.pos
	for l.pos < len(l.input) {
		r := rune(l.input[l.pos])
		if !isNameChar(r) && r < 0x80 {
			break
		}
		l.pos++
	}
	l.emit(TokenName, l.input[start:l.pos], start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '/'
}

func isNameChar(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || r == '-' || r == '%'
}
