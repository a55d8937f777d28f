package lexer

import "fmt"

// Kind represents the type of token identified by the lexer.
type Kind uint8

const (
	EOF Kind = iota
	Identifier
	String
	Number
	BuiltinType // int, string, ...
	Constant    // GET, SET

	// Comments
	LineComment    // // ...
	BlockComment   // /* ... */
	BuiltinComment // [[ ... ]], machine-readable metadata

	// Keywords
	Typedef
	Struct
	Enum
	API
	APIList
	Input
	Output
	Extract
	Extends
	Implements
	Patch
	Include // #include
	Set     // #set

	// Punctuation
	LBrace    // {
	RBrace    // }
	LParen    // (
	RParen    // )
	LBracket  // [
	RBracket  // ]
	Semicolon // ;
	Comma     // ,
	Assign    // =
)

var kindNames = [...]string{
	EOF:            "EOF",
	Identifier:     "identifier",
	String:         "string",
	Number:         "number",
	BuiltinType:    "builtin type",
	Constant:       "constant",
	LineComment:    "line comment",
	BlockComment:   "block comment",
	BuiltinComment: "builtin comment",
	Typedef:        "typedef",
	Struct:         "struct",
	Enum:           "enum",
	API:            "api",
	APIList:        "apilist",
	Input:          "input",
	Output:         "output",
	Extract:        "extract",
	Extends:        "extends",
	Implements:     "implements",
	Patch:          "patch",
	Include:        "#include",
	Set:            "#set",
	LBrace:         "{",
	RBrace:         "}",
	LParen:         "(",
	RParen:         ")",
	LBracket:       "[",
	RBracket:       "]",
	Semicolon:      ";",
	Comma:          ",",
	Assign:         "=",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= Typedef && k <= Set
}

// IsComment reports whether k is any of the three comment forms.
func (k Kind) IsComment() bool {
	return k == LineComment || k == BlockComment || k == BuiltinComment
}

// keywords maps reserved words to their token kinds.
var keywords = map[string]Kind{
	"typedef":    Typedef,
	"struct":     Struct,
	"enum":       Enum,
	"api":        API,
	"apilist":    APIList,
	"input":      Input,
	"output":     Output,
	"extract":    Extract,
	"extends":    Extends,
	"implements": Implements,
	"patch":      Patch,
}

// directives are the '#'-prefixed reserved words.
var directives = map[string]Kind{
	"include": Include,
	"set":     Set,
}

// BuiltinTypes lists the eight primitive type names.
var BuiltinTypes = []string{"bool", "int", "uint", "int64", "uint64", "float", "double", "string"}

var builtinTypeSet = func() map[string]bool {
	m := make(map[string]bool, len(BuiltinTypes))
	for _, t := range BuiltinTypes {
		m[t] = true
	}
	return m
}()

// IsBuiltinType reports whether name is a primitive type.
func IsBuiltinType(name string) bool {
	return builtinTypeSet[name]
}

// Constants lists the method constants.
var Constants = []string{"GET", "SET"}

// Token is a lexical unit pointing back to the source.
type Token struct {
	Kind    Kind
	Literal string
	Line    int // 1-based
	Column  int // 1-based, in runes
	Start   int // byte offset
	End     int // byte offset, exclusive
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q at %d:%d", t.Kind, t.Literal, t.Line, t.Column)
}
