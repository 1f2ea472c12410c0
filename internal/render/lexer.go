package render

import (
	"bytes"
	"strconv"
)

// TokenType represents the type of a content stream token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenHexString
	TokenName
	TokenKeyword
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

// String returns the string representation of the token type
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "Number"
	case TokenString:
		return "String"
	case TokenHexString:
		return "HexString"
	case TokenName:
		return "Name"
	case TokenKeyword:
		return "Keyword"
	case TokenArrayStart:
		return "ArrayStart"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictStart:
		return "DictStart"
	case TokenDictEnd:
		return "DictEnd"
	default:
		return "Unknown"
	}
}

// Token is a lexical token of a content stream
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// isWhitespace reports PDF whitespace characters
func isWhitespace(ch byte) bool {
	switch ch {
	case 0x00, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

// isDelimiter reports PDF delimiter characters
func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(ch byte) bool {
	return !isWhitespace(ch) && !isDelimiter(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// Lexer tokenizes a decoded content stream. It never fails: bytes it cannot make
// sense of are skipped, the way viewers tolerate damaged content.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer over data
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

func (l *Lexer) current() byte {
	if l.pos >= len(l.data) {
		return 0
	}
	return l.data[l.pos]
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= len(l.data) {
		return 0
	}
	return l.data[l.pos+1]
}

func (l *Lexer) hasNext() bool {
	return l.pos < len(l.data)
}

func (l *Lexer) advance() {
	if l.pos < len(l.data) {
		l.pos++
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.hasNext() {
		ch := l.current()
		switch {
		case isWhitespace(ch):
			l.advance()
		case ch == '%':
			for l.hasNext() && l.current() != '\n' && l.current() != '\r' {
				l.advance()
			}
		default:
			return
		}
	}
}

// Next returns the next token
func (l *Lexer) Next() Token {
	for {
		l.skipWhitespaceAndComments()
		if !l.hasNext() {
			return Token{Type: TokenEOF, Pos: l.pos}
		}

		start := l.pos
		switch ch := l.current(); ch {
		case '(':
			return l.readLiteralString()
		case '<':
			if l.peek() == '<' {
				l.pos += 2
				return Token{Type: TokenDictStart, Value: "<<", Pos: start}
			}
			return l.readHexString()
		case '>':
			if l.peek() == '>' {
				l.pos += 2
				return Token{Type: TokenDictEnd, Value: ">>", Pos: start}
			}
			l.advance()
		case '[':
			l.advance()
			return Token{Type: TokenArrayStart, Value: "[", Pos: start}
		case ']':
			l.advance()
			return Token{Type: TokenArrayEnd, Value: "]", Pos: start}
		case '/':
			return l.readName()
		case ')', '{', '}':
			// stray delimiters
			l.advance()
		default:
			if isDigit(ch) || ch == '+' || ch == '-' || ch == '.' {
				return l.readNumber()
			}
			return l.readKeyword()
		}
	}
}

func (l *Lexer) readLiteralString() Token {
	start := l.pos
	var buf bytes.Buffer

	l.advance()
	depth := 1

	for l.hasNext() && depth > 0 {
		ch := l.current()
		switch ch {
		case '(':
			depth++
			buf.WriteByte(ch)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(ch)
			}
		case '\\':
			l.advance()
			if !l.hasNext() {
				break
			}
			switch esc := l.current(); esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\n':
			case '\r':
				if l.peek() == '\n' {
					l.advance()
				}
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for i := 0; i < 2 && l.peek() >= '0' && l.peek() <= '7'; i++ {
						l.advance()
						val = val*8 + int(l.current()-'0')
					}
					buf.WriteByte(byte(val))
				} else {
					buf.WriteByte(esc)
				}
			}
		default:
			buf.WriteByte(ch)
		}
		l.advance()
	}

	return Token{Type: TokenString, Value: buf.String(), Pos: start}
}

func (l *Lexer) readHexString() Token {
	start := l.pos
	var buf bytes.Buffer

	l.advance()
	for l.hasNext() && l.current() != '>' {
		if isHexDigit(l.current()) {
			buf.WriteByte(l.current())
		}
		l.advance()
	}
	l.advance()

	hex := buf.String()
	if len(hex)%2 == 1 {
		hex += "0"
	}
	return Token{Type: TokenHexString, Value: hex, Pos: start}
}

func (l *Lexer) readName() Token {
	start := l.pos
	var buf bytes.Buffer

	l.advance()
	for l.hasNext() && isRegular(l.current()) {
		ch := l.current()
		if ch == '#' && isHexDigit(l.peek()) && l.pos+2 < len(l.data) && isHexDigit(l.data[l.pos+2]) {
			if val, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				buf.WriteByte(byte(val))
				l.pos += 3
				continue
			}
		}
		buf.WriteByte(ch)
		l.advance()
	}

	return Token{Type: TokenName, Value: buf.String(), Pos: start}
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	var buf bytes.Buffer

	if l.current() == '+' || l.current() == '-' {
		buf.WriteByte(l.current())
		l.advance()
	}
	// some producers emit "--5"; keep only the first sign
	for l.hasNext() && (l.current() == '-' || l.current() == '+') {
		l.advance()
	}

	seenDot := false
	for l.hasNext() {
		ch := l.current()
		if isDigit(ch) {
			buf.WriteByte(ch)
		} else if ch == '.' && !seenDot {
			seenDot = true
			buf.WriteByte(ch)
		} else {
			break
		}
		l.advance()
	}

	return Token{Type: TokenNumber, Value: buf.String(), Pos: start}
}

func (l *Lexer) readKeyword() Token {
	start := l.pos
	for l.hasNext() && isRegular(l.current()) {
		l.advance()
	}
	if l.pos == start {
		// lone delimiter we have no use for
		l.advance()
	}
	return Token{Type: TokenKeyword, Value: string(l.data[start:l.pos]), Pos: start}
}

// SkipInlineImage moves past inline image data. It must be called right after the ID
// operator and consumes everything up to and including the EI operator.
func (l *Lexer) SkipInlineImage() []byte {
	// a single whitespace byte separates ID from the data
	if l.hasNext() && isWhitespace(l.current()) {
		l.advance()
	}
	start := l.pos

	for i := start; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		before := i == start || isWhitespace(l.data[i-1])
		after := i+2 >= len(l.data) || isWhitespace(l.data[i+2]) || isDelimiter(l.data[i+2])
		if before && after {
			l.pos = i + 2
			end := i
			if end > start && isWhitespace(l.data[end-1]) {
				end--
			}
			return l.data[start:end]
		}
	}

	l.pos = len(l.data)
	return l.data[start:]
}

// parseNumber converts a number token, treating garbage as zero
func parseNumber(s string) float64 {
	switch s {
	case "", "+", "-", ".", "+.", "-.":
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
