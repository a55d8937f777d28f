package parser

// Span locates a node in the source text.
type Span struct {
	Start     int // byte offset
	End       int // byte offset, exclusive
	Line      int // 1-based
	Column    int // 1-based
	EndLine   int
	EndColumn int
}

// Pos returns the span itself so every node embedding Span satisfies Node.
func (s Span) Pos() Span { return s }

// Node is implemented by every AST node.
type Node interface {
	Pos() Span
}

// Statement is a top-level construct of a program.
type Statement interface {
	Node
	statementNode()
}

// TypeExpr is either a named TypeReference or an InlineStructDefinition.
type TypeExpr interface {
	Node
	typeExprNode()
}

// Literal is a value on the right-hand side of "=".
type Literal interface {
	Node
	LiteralText() string
}

// Program is the root of a parsed document.
type Program struct {
	Span
	Statements []Statement
}

// Identifier is a bare name.
type Identifier struct {
	Span
	Name string
}

// StringLiteral is a quoted string with escapes resolved in Value.
type StringLiteral struct {
	Span
	Value string
	Raw   string
}

// NumberLiteral is a decimal or hexadecimal number.
type NumberLiteral struct {
	Span
	Raw string
}

// ConstantLiteral is one of the method constants (GET, SET).
type ConstantLiteral struct {
	Span
	Value string
}

// TypeReference names a built-in or user-declared type.
type TypeReference struct {
	Span
	Name    string
	Builtin bool
	Array   bool
}

// String renders the reference the way it is written.
func (t *TypeReference) String() string {
	if t.Array {
		return t.Name + "[]"
	}
	return t.Name
}

// FieldDefinition is one member of a struct body.
type FieldDefinition struct {
	Span
	Name     *Identifier
	Type     TypeExpr
	Default  Literal
	Doc      string
	Metadata string // contents of a [[ ... ]] builtin comment
}

// StructDefinition is the body of a typedef struct.
type StructDefinition struct {
	Span
	Extends    *Identifier
	Implements []*Identifier
	Fields     []*FieldDefinition
}

// InlineStructDefinition is an anonymous struct used as an API input/output
// or as a nested field type.
type InlineStructDefinition struct {
	Span
	Fields []*FieldDefinition
}

// EnumValue is one member of an enum body.
type EnumValue struct {
	Span
	Name  *Identifier
	Value *NumberLiteral
	Doc   string
}

// EnumDefinition is the body of a typedef enum.
type EnumDefinition struct {
	Span
	Values []*EnumValue
}

// TypedefStatement declares a named struct or enum. Exactly one of Struct
// and Enum is set.
type TypedefStatement struct {
	Span
	Name   *Identifier
	Struct *StructDefinition
	Enum   *EnumDefinition
	Doc    string
}

// InputStatement is the request shape of an API.
type InputStatement struct {
	Span
	Type TypeExpr
}

// OutputStatement is the response shape of an API.
type OutputStatement struct {
	Span
	Type TypeExpr
}

// APIDefinition is an api "uri" [GET|SET] { ... } block.
type APIDefinition struct {
	Span
	Name    *StringLiteral
	Method  string
	Extract bool
	Patch   bool
	Input   *InputStatement
	Output  *OutputStatement
	Doc     string
}

// APIListDefinition groups api definitions under a name.
type APIListDefinition struct {
	Span
	Name *StringLiteral
	APIs []*APIDefinition
	Doc  string
}

// IncludeStatement is #include "path".
type IncludeStatement struct {
	Span
	Path *StringLiteral
}

// SetStatement is #set name [=] value.
type SetStatement struct {
	Span
	Name  *Identifier
	Value Literal
}

func (*TypedefStatement) statementNode()  {}
func (*APIDefinition) statementNode()     {}
func (*APIListDefinition) statementNode() {}
func (*IncludeStatement) statementNode()  {}
func (*SetStatement) statementNode()      {}

func (*TypeReference) typeExprNode()          {}
func (*InlineStructDefinition) typeExprNode() {}

func (l *StringLiteral) LiteralText() string   { return l.Value }
func (l *NumberLiteral) LiteralText() string   { return l.Raw }
func (l *ConstantLiteral) LiteralText() string { return l.Value }
func (l *Identifier) LiteralText() string      { return l.Name }

// TypeName renders a TypeExpr for symbol details.
func TypeName(t TypeExpr) string {
	switch t := t.(type) {
	case *TypeReference:
		return t.String()
	case *InlineStructDefinition:
		return "struct"
	default:
		return ""
	}
}
