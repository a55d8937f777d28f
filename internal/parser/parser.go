package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/apidl/internal/lexer"
)

// Parser handles recursive-descent parsing of apidl documents
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// ParseFile reads and parses an apidl file from disk
func (p *Parser) ParseFile(ctx context.Context, filePath string) (*Program, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(ctx, string(content))
}

// Parse parses src into a Program.
//
// Syntax errors are non-fatal: the returned Program holds every statement
// that could be recovered and the error is an ErrorList. If ctx is done
// before parsing finishes, the partial Program is returned with ctx.Err().
func (p *Parser) Parse(ctx context.Context, src string) (*Program, error) {
	s := newState(ctx, src)
	prog := s.parseProgram()
	if s.err != nil {
		return prog, s.err
	}
	return prog, s.errs.Err()
}

// state is the per-parse cursor over the token arena.
type state struct {
	ctx     context.Context
	tokens  []lexer.Token   // significant tokens, EOF last
	leading [][]lexer.Token // comments preceding tokens[i]
	pos     int
	errs    ErrorList
	err     error // set once ctx is observed done
}

// mark is a saved cursor for backtracking.
type mark struct {
	pos  int
	errs int
}

func newState(ctx context.Context, src string) *state {
	s := &state{ctx: ctx}
	l := lexer.New(src)
	var pending []lexer.Token
	for {
		tok := l.Next()
		if tok.Kind.IsComment() {
			pending = append(pending, tok)
			continue
		}
		s.tokens = append(s.tokens, tok)
		s.leading = append(s.leading, pending)
		pending = nil
		if tok.Kind == lexer.EOF {
			return s
		}
	}
}

func (s *state) cur() lexer.Token {
	return s.tokens[s.pos]
}

func (s *state) peek(n int) lexer.Token {
	if s.pos+n >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[s.pos+n]
}

func (s *state) at(kind lexer.Kind) bool {
	return s.cur().Kind == kind
}

// advance consumes the current token. The cursor never moves past EOF.
func (s *state) advance() lexer.Token {
	tok := s.cur()
	if s.pos < len(s.tokens)-1 {
		s.pos++
	}
	return tok
}

func (s *state) accept(kind lexer.Kind) (lexer.Token, bool) {
	if !s.at(kind) {
		return lexer.Token{}, false
	}
	return s.advance(), true
}

func (s *state) acceptName() (lexer.Token, bool) {
	if !isName(s.cur()) {
		return lexer.Token{}, false
	}
	return s.advance(), true
}

func (s *state) expect(kind lexer.Kind, what string) (lexer.Token, bool) {
	if tok, ok := s.accept(kind); ok {
		return tok, true
	}
	s.errorf(s.cur(), "expected %s, found %s", what, describe(s.cur()))
	return lexer.Token{}, false
}

func (s *state) mark() mark {
	return mark{pos: s.pos, errs: len(s.errs)}
}

func (s *state) reset(m mark) {
	s.pos = m.pos
	s.errs = s.errs[:m.errs]
}

func (s *state) errorf(tok lexer.Token, format string, args ...any) {
	s.errs = append(s.errs, &ParseError{Message: fmt.Sprintf(format, args...), Token: tok})
}

// canceled polls ctx once per statement.
func (s *state) canceled() bool {
	if s.err != nil {
		return true
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return true
	}
	return false
}

// spanFrom covers start through the last consumed token.
func (s *state) spanFrom(start lexer.Token) Span {
	sp := tokenSpan(start)
	if s.pos == 0 {
		return sp
	}
	last := s.tokens[s.pos-1]
	if last.Start < start.Start {
		return sp
	}
	end := tokenSpan(last)
	sp.End, sp.EndLine, sp.EndColumn = end.End, end.EndLine, end.EndColumn
	return sp
}

func tokenSpan(tok lexer.Token) Span {
	return Span{
		Start:     tok.Start,
		End:       tok.End,
		Line:      tok.Line,
		Column:    tok.Column,
		EndLine:   tok.Line,
		EndColumn: tok.Column + utf8.RuneCountInString(tok.Literal),
	}
}

// docBefore returns the prose comments directly above tokens[idx].
// Comments trailing the previous token on its own line are not included.
func (s *state) docBefore(idx int) string {
	var lines []string
	for _, c := range s.ownComments(idx) {
		if c.Kind != lexer.BuiltinComment {
			lines = append(lines, commentText(c))
		}
	}
	return strings.Join(lines, "\n")
}

// metadataBefore returns builtin comments directly above tokens[idx].
func (s *state) metadataBefore(idx int) string {
	var parts []string
	for _, c := range s.ownComments(idx) {
		if c.Kind == lexer.BuiltinComment {
			parts = append(parts, commentText(c))
		}
	}
	return strings.Join(parts, "; ")
}

func (s *state) ownComments(idx int) []lexer.Token {
	comments := s.leading[idx]
	if idx == 0 {
		return comments
	}
	prevLine := s.tokens[idx-1].Line
	for i, c := range comments {
		if c.Line > prevLine {
			return comments[i:]
		}
	}
	return nil
}

// trailingMetadata returns builtin comments on the same line as the last
// consumed token, e.g. `id int; [[ key ]]`.
func (s *state) trailingMetadata() string {
	if s.pos == 0 {
		return ""
	}
	line := s.tokens[s.pos-1].Line
	var parts []string
	for _, c := range s.leading[s.pos] {
		if c.Kind == lexer.BuiltinComment && c.Line == line {
			parts = append(parts, commentText(c))
		}
	}
	return strings.Join(parts, "; ")
}

func (s *state) parseProgram() *Program {
	start := s.cur()
	prog := &Program{}
	for !s.at(lexer.EOF) {
		if s.canceled() {
			break
		}
		if stmt := s.parseStatement(); stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	prog.Span = s.spanFrom(start)
	return prog
}

func (s *state) parseStatement() Statement {
	tok := s.cur()
	switch tok.Kind {
	case lexer.Include:
		return s.parseInclude()
	case lexer.Set:
		return s.parseSet()
	case lexer.Typedef:
		if td := s.parseTypedef(); td != nil {
			return td
		}
		return nil
	case lexer.API:
		return s.parseAPI()
	case lexer.APIList:
		return s.parseAPIList()
	case lexer.Semicolon:
		s.advance()
		return nil
	default:
		s.errorf(tok, "unexpected %s at top level", describe(tok))
		s.advance()
		return nil
	}
}

func (s *state) parseInclude() *IncludeStatement {
	start := s.advance()
	inc := &IncludeStatement{}
	if tok, ok := s.expect(lexer.String, "include path"); ok {
		inc.Path = stringLiteral(tok)
	}
	s.accept(lexer.Semicolon)
	inc.Span = s.spanFrom(start)
	return inc
}

func (s *state) parseSet() *SetStatement {
	start := s.advance()
	set := &SetStatement{}
	if tok, ok := s.acceptName(); ok {
		set.Name = identifier(tok)
		s.accept(lexer.Assign)
		if lit, ok := s.parseLiteral(); ok {
			set.Value = lit
		} else {
			s.errorf(s.cur(), "expected value for #set %s, found %s", tok.Literal, describe(s.cur()))
		}
	} else {
		s.errorf(s.cur(), "expected setting name, found %s", describe(s.cur()))
	}
	s.accept(lexer.Semicolon)
	set.Span = s.spanFrom(start)
	return set
}

func (s *state) parseLiteral() (Literal, bool) {
	tok := s.cur()
	switch {
	case tok.Kind == lexer.String:
		s.advance()
		return stringLiteral(tok), true
	case tok.Kind == lexer.Number:
		s.advance()
		return &NumberLiteral{Span: tokenSpan(tok), Raw: tok.Literal}, true
	case tok.Kind == lexer.Constant:
		s.advance()
		return &ConstantLiteral{Span: tokenSpan(tok), Value: tok.Literal}, true
	case isName(tok):
		s.advance()
		return identifier(tok), true
	}
	return nil, false
}

func (s *state) parseTypedef() *TypedefStatement {
	idx := s.pos
	start := s.advance()
	td := &TypedefStatement{Doc: s.docBefore(idx)}

	switch s.cur().Kind {
	case lexer.Struct:
		td.Struct = s.parseStructDefinition()
	case lexer.Enum:
		td.Enum = s.parseEnumDefinition()
	default:
		s.errorf(s.cur(), "expected struct or enum after typedef, found %s", describe(s.cur()))
		return nil
	}

	if tok, ok := s.acceptName(); ok {
		td.Name = identifier(tok)
	} else {
		s.errorf(s.cur(), "expected typedef name, found %s", describe(s.cur()))
	}
	s.accept(lexer.Semicolon)
	td.Span = s.spanFrom(start)
	return td
}

func (s *state) parseStructDefinition() *StructDefinition {
	start := s.advance()
	def := &StructDefinition{}

	if _, ok := s.accept(lexer.Extends); ok {
		if tok, ok := s.acceptName(); ok {
			def.Extends = identifier(tok)
		} else {
			s.errorf(s.cur(), "expected base type after extends, found %s", describe(s.cur()))
		}
	}
	if _, ok := s.accept(lexer.Implements); ok {
		for {
			tok, ok := s.acceptName()
			if !ok {
				s.errorf(s.cur(), "expected interface name after implements, found %s", describe(s.cur()))
				break
			}
			def.Implements = append(def.Implements, identifier(tok))
			if _, more := s.accept(lexer.Comma); !more {
				break
			}
		}
	}

	def.Fields = s.parseFieldBlock()
	def.Span = s.spanFrom(start)
	return def
}

func (s *state) parseInlineStruct() *InlineStructDefinition {
	if s.peek(1).Kind != lexer.LBrace {
		return nil
	}
	start := s.advance()
	def := &InlineStructDefinition{Fields: s.parseFieldBlock()}
	def.Span = s.spanFrom(start)
	return def
}

// parseFieldBlock parses "{ field* }" shared by typedef and inline structs.
func (s *state) parseFieldBlock() []*FieldDefinition {
	if _, ok := s.expect(lexer.LBrace, "'{'"); !ok {
		return nil
	}
	var fields []*FieldDefinition
	for {
		if s.canceled() {
			return fields
		}
		tok := s.cur()
		switch {
		case tok.Kind == lexer.RBrace:
			s.advance()
			return fields
		case tok.Kind == lexer.EOF || isTopLevelKeyword(tok.Kind):
			s.errorf(tok, "expected '}' before %s", describe(tok))
			return fields
		case tok.Kind == lexer.Semicolon || tok.Kind == lexer.Comma:
			s.advance()
		case canStartField(tok):
			if f := s.parseField(); f != nil {
				fields = append(fields, f)
			}
		default:
			s.errorf(tok, "unexpected %s in struct body", describe(tok))
			s.advance()
		}
	}
}

// parseField accepts both "type name" and "name type". The type-first
// reading wins when both would match; when neither does, exactly one token
// is skipped so the enclosing loop always makes progress.
func (s *state) parseField() *FieldDefinition {
	idx := s.pos
	m := s.mark()

	f := s.fieldTypeFirst()
	if f == nil {
		s.reset(m)
		f = s.fieldNameFirst()
	}
	if f == nil {
		s.reset(m)
		tok := s.cur()
		s.errorf(tok, "invalid field definition at %s", describe(tok))
		s.advance()
		return nil
	}

	f.Doc = s.docBefore(idx)
	f.Metadata = s.metadataBefore(idx)
	if _, ok := s.accept(lexer.Assign); ok {
		if lit, ok := s.parseLiteral(); ok {
			f.Default = lit
		} else {
			s.errorf(s.cur(), "expected default value, found %s", describe(s.cur()))
		}
	}
	f.Span = s.spanFrom(s.tokens[idx])
	if _, ok := s.accept(lexer.Semicolon); !ok {
		s.accept(lexer.Comma)
	}
	if meta := s.trailingMetadata(); meta != "" {
		if f.Metadata != "" {
			f.Metadata += "; "
		}
		f.Metadata += meta
	}
	return f
}

func (s *state) fieldTypeFirst() *FieldDefinition {
	t := s.tryType()
	if t == nil {
		return nil
	}
	name, ok := s.acceptName()
	if !ok {
		return nil
	}
	return &FieldDefinition{Name: identifier(name), Type: t}
}

func (s *state) fieldNameFirst() *FieldDefinition {
	name, ok := s.acceptName()
	if !ok {
		return nil
	}
	t := s.tryType()
	if t == nil {
		return nil
	}
	return &FieldDefinition{Name: identifier(name), Type: t}
}

// tryType parses a type expression or returns nil without recording errors
// for the leading token.
func (s *state) tryType() TypeExpr {
	tok := s.cur()
	switch {
	case tok.Kind == lexer.Struct:
		if st := s.parseInlineStruct(); st != nil {
			return st
		}
		return nil
	case tok.Kind == lexer.BuiltinType || isName(tok):
		s.advance()
		ref := &TypeReference{Name: tok.Literal, Builtin: tok.Kind == lexer.BuiltinType}
		if s.at(lexer.LBracket) && s.peek(1).Kind == lexer.RBracket {
			s.advance()
			s.advance()
			ref.Array = true
		}
		ref.Span = s.spanFrom(tok)
		return ref
	}
	return nil
}

func (s *state) parseEnumDefinition() *EnumDefinition {
	start := s.advance()
	def := &EnumDefinition{}
	if _, ok := s.expect(lexer.LBrace, "'{'"); !ok {
		def.Span = s.spanFrom(start)
		return def
	}

loop:
	for {
		if s.canceled() {
			break
		}
		tok := s.cur()
		switch {
		case tok.Kind == lexer.RBrace:
			s.advance()
			break loop
		case tok.Kind == lexer.EOF || isTopLevelKeyword(tok.Kind):
			s.errorf(tok, "expected '}' before %s", describe(tok))
			break loop
		case tok.Kind == lexer.Semicolon || tok.Kind == lexer.Comma:
			s.advance()
		case isName(tok):
			idx := s.pos
			s.advance()
			v := &EnumValue{Name: identifier(tok), Doc: s.docBefore(idx)}
			if _, ok := s.accept(lexer.Assign); ok {
				if num, ok := s.accept(lexer.Number); ok {
					v.Value = &NumberLiteral{Span: tokenSpan(num), Raw: num.Literal}
				} else {
					s.errorf(s.cur(), "expected number after '=', found %s", describe(s.cur()))
				}
			}
			v.Span = s.spanFrom(tok)
			def.Values = append(def.Values, v)
		default:
			s.errorf(tok, "unexpected %s in enum body", describe(tok))
			s.advance()
		}
	}

	def.Span = s.spanFrom(start)
	return def
}

func (s *state) parseAPI() *APIDefinition {
	idx := s.pos
	start := s.advance()
	def := &APIDefinition{Doc: s.docBefore(idx)}
	def.Name = s.parseBlockName("api")
	s.parseAPIModifiers(def)

	if _, ok := s.expect(lexer.LBrace, "'{'"); ok {
		s.parseAPIBody(def)
	}
	def.Span = s.spanFrom(start)
	return def
}

// parseBlockName accepts a quoted name, or a bare word for leniency.
func (s *state) parseBlockName(what string) *StringLiteral {
	tok := s.cur()
	switch {
	case tok.Kind == lexer.String:
		s.advance()
		return stringLiteral(tok)
	case isName(tok):
		s.advance()
		return &StringLiteral{Span: tokenSpan(tok), Value: tok.Literal, Raw: tok.Literal}
	}
	s.errorf(tok, "expected %s name, found %s", what, describe(tok))
	return nil
}

func (s *state) parseAPIModifiers(def *APIDefinition) {
	for {
		tok := s.cur()
		switch tok.Kind {
		case lexer.Constant:
			def.Method = tok.Literal
		case lexer.Extract:
			def.Extract = true
		case lexer.Patch:
			def.Patch = true
		default:
			return
		}
		s.advance()
	}
}

func (s *state) parseAPIBody(def *APIDefinition) {
	for {
		if s.canceled() {
			return
		}
		tok := s.cur()
		switch {
		case tok.Kind == lexer.RBrace:
			s.advance()
			return
		case tok.Kind == lexer.EOF || isTopLevelKeyword(tok.Kind):
			s.errorf(tok, "expected '}' before %s", describe(tok))
			return
		case tok.Kind == lexer.Input:
			s.advance()
			if t := s.tryType(); t != nil {
				def.Input = &InputStatement{Type: t, Span: s.spanFrom(tok)}
			} else {
				s.errorf(s.cur(), "expected type after input, found %s", describe(s.cur()))
			}
		case tok.Kind == lexer.Output:
			s.advance()
			if t := s.tryType(); t != nil {
				def.Output = &OutputStatement{Type: t, Span: s.spanFrom(tok)}
			} else {
				s.errorf(s.cur(), "expected type after output, found %s", describe(s.cur()))
			}
		case tok.Kind == lexer.Constant || tok.Kind == lexer.Extract || tok.Kind == lexer.Patch:
			s.parseAPIModifiers(def)
		case tok.Kind == lexer.Semicolon || tok.Kind == lexer.Comma:
			s.advance()
		default:
			s.errorf(tok, "unexpected %s in api body", describe(tok))
			s.advance()
		}
	}
}

func (s *state) parseAPIList() *APIListDefinition {
	idx := s.pos
	start := s.advance()
	def := &APIListDefinition{Doc: s.docBefore(idx)}
	def.Name = s.parseBlockName("apilist")

	if _, ok := s.expect(lexer.LBrace, "'{'"); !ok {
		def.Span = s.spanFrom(start)
		return def
	}

loop:
	for {
		if s.canceled() {
			break
		}
		tok := s.cur()
		switch {
		case tok.Kind == lexer.RBrace:
			s.advance()
			break loop
		case tok.Kind == lexer.API:
			def.APIs = append(def.APIs, s.parseAPI())
		case tok.Kind == lexer.EOF || isTopLevelKeyword(tok.Kind):
			s.errorf(tok, "expected '}' before %s", describe(tok))
			break loop
		case tok.Kind == lexer.Semicolon || tok.Kind == lexer.Comma:
			s.advance()
		default:
			s.errorf(tok, "only api definitions are allowed in apilist, found %s", describe(tok))
			s.advance()
		}
	}

	def.Span = s.spanFrom(start)
	return def
}

func isTopLevelKeyword(kind lexer.Kind) bool {
	switch kind {
	case lexer.Typedef, lexer.API, lexer.APIList, lexer.Include, lexer.Set:
		return true
	}
	return false
}

// isName reports whether tok can name a declaration. Unknown characters
// are lexed as one-character identifiers and are rejected here.
func isName(tok lexer.Token) bool {
	if tok.Kind != lexer.Identifier {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tok.Literal)
	return r == '_' || unicode.IsLetter(r)
}

func canStartField(tok lexer.Token) bool {
	return tok.Kind == lexer.BuiltinType || tok.Kind == lexer.Struct || isName(tok)
}

func describe(tok lexer.Token) string {
	if tok.Kind == lexer.EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

func identifier(tok lexer.Token) *Identifier {
	return &Identifier{Span: tokenSpan(tok), Name: tok.Literal}
}

func stringLiteral(tok lexer.Token) *StringLiteral {
	return &StringLiteral{Span: tokenSpan(tok), Value: unquote(tok.Literal), Raw: tok.Literal}
}

// unquote strips the surrounding quotes and resolves backslash escapes.
// Unterminated strings keep everything after the opening quote.
func unquote(raw string) string {
	var b strings.Builder
	escaped := false
	for _, r := range strings.TrimPrefix(raw, `"`) {
		if escaped {
			switch r {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '"':
			return b.String()
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func commentText(tok lexer.Token) string {
	text := tok.Literal
	switch tok.Kind {
	case lexer.LineComment:
		text = strings.TrimPrefix(text, "//")
	case lexer.BlockComment:
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	case lexer.BuiltinComment:
		text = strings.TrimSuffix(strings.TrimPrefix(text, "[["), "]]")
	}
	return strings.TrimSpace(text)
}
