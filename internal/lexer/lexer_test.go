package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenize_Empty(t *testing.T) {
	tokens := Tokenize("")
	require.Len(t, tokens, 1)
	assert.Equal(t, EOF, tokens[0].Kind)
	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 1, tokens[0].Column)
}

func TestTokenize_TypedefStruct(t *testing.T) {
	tokens := Tokenize("typedef struct { id int; name string } User")

	assert.Equal(t, []Kind{
		Typedef, Struct, LBrace,
		Identifier, BuiltinType, Semicolon,
		Identifier, BuiltinType,
		RBrace, Identifier, EOF,
	}, kinds(tokens))
	assert.Equal(t, "User", tokens[9].Literal)
}

func TestTokenize_Keywords(t *testing.T) {
	src := "typedef struct enum api apilist input output extract extends implements patch #include #set"
	tokens := Tokenize(src)

	assert.Equal(t, []Kind{
		Typedef, Struct, Enum, API, APIList, Input, Output,
		Extract, Extends, Implements, Patch, Include, Set, EOF,
	}, kinds(tokens))
	for _, tok := range tokens[:len(tokens)-1] {
		assert.True(t, tok.Kind.IsKeyword(), tok.String())
	}
}

func TestTokenize_BuiltinTypesAndConstants(t *testing.T) {
	for _, name := range BuiltinTypes {
		tokens := Tokenize(name)
		assert.Equal(t, BuiltinType, tokens[0].Kind, name)
	}
	assert.Len(t, BuiltinTypes, 8)

	tokens := Tokenize("GET SET get")
	assert.Equal(t, []Kind{Constant, Constant, Identifier, EOF}, kinds(tokens))
}

func TestTokenize_Strings(t *testing.T) {
	tokens := Tokenize(`"a\"b" "c\\"`)
	require.Len(t, tokens, 3)
	assert.Equal(t, String, tokens[0].Kind)
	assert.Equal(t, `"a\"b"`, tokens[0].Literal)
	assert.Equal(t, `"c\\"`, tokens[1].Literal)
}

func TestTokenize_UnterminatedStringStopsAtNewline(t *testing.T) {
	tokens := Tokenize("\"abc\nUser")
	assert.Equal(t, []Kind{String, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, `"abc`, tokens[0].Literal)
	assert.Equal(t, 2, tokens[1].Line)
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"0x1F", "0x1F"},
		{"3.14", "3.14"},
		{"-7", "-7"},
		{"0XaB", "0XaB"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens := Tokenize(tt.src)
			require.Len(t, tokens, 2)
			assert.Equal(t, Number, tokens[0].Kind)
			assert.Equal(t, tt.want, tokens[0].Literal)
		})
	}
}

func TestTokenize_TrailingDotIsNotFraction(t *testing.T) {
	tokens := Tokenize("1.")
	assert.Equal(t, []Kind{Number, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, "1", tokens[0].Literal)
}

func TestTokenize_Comments(t *testing.T) {
	src := "// line\n/* block\n still */ [[ readonly: true ]] x"
	tokens := Tokenize(src)

	assert.Equal(t, []Kind{LineComment, BlockComment, BuiltinComment, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, "// line", tokens[0].Literal)
	assert.Equal(t, "[[ readonly: true ]]", tokens[2].Literal)
	assert.Equal(t, 3, tokens[3].Line)
}

func TestTokenize_UnterminatedBlockCommentRunsToEOF(t *testing.T) {
	tokens := Tokenize("/* never closed\ntypedef")
	assert.Equal(t, []Kind{BlockComment, EOF}, kinds(tokens))
}

func TestTokenize_ArrayBracketsAreNotBuiltinComment(t *testing.T) {
	tokens := Tokenize("int[] ids")
	assert.Equal(t, []Kind{BuiltinType, LBracket, RBracket, Identifier, EOF}, kinds(tokens))
}

func TestTokenize_Punctuation(t *testing.T) {
	tokens := Tokenize("{}()[];,=")
	assert.Equal(t, []Kind{
		LBrace, RBrace, LParen, RParen, LBracket, RBracket, Semicolon, Comma, Assign, EOF,
	}, kinds(tokens))
}

func TestTokenize_UnknownCharactersBecomeIdentifiers(t *testing.T) {
	tokens := Tokenize("@ # é$")
	require.Len(t, tokens, 5)
	assert.Equal(t, Identifier, tokens[0].Kind)
	assert.Equal(t, "@", tokens[0].Literal)
	assert.Equal(t, "#", tokens[1].Literal)
	// é is a letter and starts a regular identifier
	assert.Equal(t, "é", tokens[2].Literal)
	assert.Equal(t, "$", tokens[3].Literal)
}

func TestTokenize_UnknownDirectiveIsHashIdentifier(t *testing.T) {
	tokens := Tokenize("#define")
	assert.Equal(t, []Kind{Identifier, Identifier, EOF}, kinds(tokens))
	assert.Equal(t, "#", tokens[0].Literal)
	assert.Equal(t, "define", tokens[1].Literal)
}

func TestTokenize_Positions(t *testing.T) {
	src := "typedef\n  enum {\n\tA = 1\n}"
	tokens := Tokenize(src)

	enumTok := tokens[1]
	assert.Equal(t, Enum, enumTok.Kind)
	assert.Equal(t, 2, enumTok.Line)
	assert.Equal(t, 3, enumTok.Column)
	assert.Equal(t, 10, enumTok.Start)
	assert.Equal(t, 14, enumTok.End)
	assert.Equal(t, "enum", src[enumTok.Start:enumTok.End])

	a := tokens[3]
	assert.Equal(t, "A", a.Literal)
	assert.Equal(t, 3, a.Line)
	assert.Equal(t, 2, a.Column)
}

func TestLexer_NextAfterEOF(t *testing.T) {
	l := New("x")
	assert.Equal(t, Identifier, l.Next().Kind)
	assert.Equal(t, EOF, l.Next().Kind)
	assert.Equal(t, EOF, l.Next().Kind)
}

func TestTokenize_Deterministic(t *testing.T) {
	src := `apilist "x" { api "a" GET { input User output struct { ok bool } } }`
	assert.Equal(t, Tokenize(src), Tokenize(src))
}
