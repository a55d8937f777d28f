// Package lexer tokenizes apidl source text.
//
// The lexer is total: every input produces a token stream terminated by
// EOF. Comments are returned as tokens so the parser can attach them to
// declarations; [[ ... ]] builtin comments carry metadata and keep their
// own kind.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer turns apidl source text into tokens one at a time.
// It never fails: characters it does not recognize come back as
// single-character Identifier tokens and the parser decides what to do.
type Lexer struct {
	src    string
	pos    int // byte offset of the next unread rune
	line   int
	column int
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

// Tokenize lexes the whole input. The result always ends with an EOF token.
func Tokenize(src string) []Token {
	l := New(src)
	tokens := make([]Token, 0, len(src)/4+1)
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens
		}
	}
}

// Next returns the next token. After the end of input it keeps returning EOF.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Line: l.line, Column: l.column, Start: l.pos, End: l.pos}
	}

	start, line, col := l.pos, l.line, l.column
	r, _ := l.peekRune(0)

	switch {
	case r == '/' && l.peekByte(1) == '/':
		l.lexLineComment()
		return l.token(LineComment, start, line, col)
	case r == '/' && l.peekByte(1) == '*':
		l.lexDelimited("/*", "*/")
		return l.token(BlockComment, start, line, col)
	case r == '[' && l.peekByte(1) == '[':
		l.lexDelimited("[[", "]]")
		return l.token(BuiltinComment, start, line, col)
	case r == '"':
		l.lexString()
		return l.token(String, start, line, col)
	case isDigit(r) || (r == '-' && isDigit(rune(l.peekByte(1)))):
		l.lexNumber()
		return l.token(Number, start, line, col)
	case isIdentStart(r):
		l.lexIdent()
		tok := l.token(Identifier, start, line, col)
		tok.Kind = classifyWord(tok.Literal)
		return tok
	case r == '#':
		if kind, ok := l.lexDirective(); ok {
			return l.token(kind, start, line, col)
		}
	}

	l.advance()
	return l.token(punctuation(r), start, line, col)
}

func (l *Lexer) token(kind Kind, start, line, col int) Token {
	return Token{
		Kind:    kind,
		Literal: l.src[start:l.pos],
		Line:    line,
		Column:  col,
		Start:   start,
		End:     l.pos,
	}
}

func (l *Lexer) peekRune(ahead int) (rune, int) {
	if l.pos+ahead >= len(l.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos+ahead:])
}

func (l *Lexer) peekByte(ahead int) byte {
	if l.pos+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.pos+ahead]
}

// advance consumes one rune and keeps line/column in sync.
func (l *Lexer) advance() {
	if l.pos >= len(l.src) {
		return
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		r, _ := l.peekRune(0)
		if !unicode.IsSpace(r) {
			return
		}
		l.advance()
	}
}

func (l *Lexer) lexLineComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance()
	}
}

// lexDelimited consumes open ... close. An unterminated comment runs to EOF.
func (l *Lexer) lexDelimited(opener, closer string) {
	for range opener {
		l.advance()
	}
	for l.pos < len(l.src) {
		if strings.HasPrefix(l.src[l.pos:], closer) {
			for range closer {
				l.advance()
			}
			return
		}
		l.advance()
	}
}

// lexString consumes a double-quoted string with backslash escapes.
// An unterminated string stops at the end of the line.
func (l *Lexer) lexString() {
	l.advance() // opening quote
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.advance()
			if l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case '"':
			l.advance()
			return
		case '\n':
			return
		default:
			l.advance()
		}
	}
}

func (l *Lexer) lexNumber() {
	if l.src[l.pos] == '-' {
		l.advance()
	}
	if l.src[l.pos] == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') && isHexDigit(rune(l.peekByte(2))) {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHexDigit(rune(l.src[l.pos])) {
			l.advance()
		}
		return
	}
	l.digits()
	if l.peekByte(0) == '.' && isDigit(rune(l.peekByte(1))) {
		l.advance()
		l.digits()
	}
}

func (l *Lexer) digits() {
	for l.pos < len(l.src) && isDigit(rune(l.src[l.pos])) {
		l.advance()
	}
}

func (l *Lexer) lexIdent() {
	for l.pos < len(l.src) {
		r, _ := l.peekRune(0)
		if !isIdentPart(r) {
			return
		}
		l.advance()
	}
}

// lexDirective recognizes #include and #set. On a miss nothing is consumed.
func (l *Lexer) lexDirective() (Kind, bool) {
	end := l.pos + 1
	for end < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[end:])
		if !isIdentPart(r) {
			break
		}
		end += size
	}
	kind, ok := directives[l.src[l.pos+1:end]]
	if !ok {
		return 0, false
	}
	for l.pos < end {
		l.advance()
	}
	return kind, true
}

func classifyWord(word string) Kind {
	if kind, ok := keywords[word]; ok {
		return kind
	}
	if IsBuiltinType(word) {
		return BuiltinType
	}
	if word == "GET" || word == "SET" {
		return Constant
	}
	return Identifier
}

func punctuation(r rune) Kind {
	switch r {
	case '{':
		return LBrace
	case '}':
		return RBrace
	case '(':
		return LParen
	case ')':
		return RParen
	case '[':
		return LBracket
	case ']':
		return RBracket
	case ';':
		return Semicolon
	case ',':
		return Comma
	case '=':
		return Assign
	default:
		return Identifier
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
