package symbols

import (
	"fmt"
	"strings"

	"github.com/dshills/apidl/internal/parser"
	"github.com/dshills/apidl/pkg/types"
)

// Collect walks prog once and returns the symbols it declares in source
// order. Every returned symbol is located in uri.
func Collect(prog *parser.Program, uri string) []types.Symbol {
	if prog == nil {
		return nil
	}
	c := &collector{uri: uri}
	for _, stmt := range prog.Statements {
		c.statement(stmt)
	}
	return c.symbols
}

type collector struct {
	uri     string
	typedef string // name of the typedef being walked, empty outside one
	symbols []types.Symbol
}

func (c *collector) statement(stmt parser.Statement) {
	switch n := stmt.(type) {
	case *parser.TypedefStatement:
		c.typedefStatement(n)
	case *parser.APIDefinition:
		c.api(n, "")
	case *parser.APIListDefinition:
		c.apiList(n)
	}
}

func (c *collector) typedefStatement(n *parser.TypedefStatement) {
	if n.Name == nil {
		return
	}
	c.typedef = n.Name.Name
	defer func() { c.typedef = "" }()

	switch {
	case n.Struct != nil:
		c.add(types.Symbol{
			Name:          n.Name.Name,
			Kind:          types.KindStruct,
			Location:      c.location(n.Span),
			Detail:        structDetail(n.Name.Name, n.Struct),
			Documentation: n.Doc,
		})
		for _, f := range n.Struct.Fields {
			c.field(f)
		}
	case n.Enum != nil:
		c.add(types.Symbol{
			Name:          n.Name.Name,
			Kind:          types.KindEnum,
			Location:      c.location(n.Span),
			Detail:        "typedef enum " + n.Name.Name,
			Documentation: n.Doc,
		})
		for _, v := range n.Enum.Values {
			c.enumValue(v)
		}
	}
}

// field records a member of the current typedef struct. Inline struct types
// are request shapes and declare nothing, so their fields are not visited.
func (c *collector) field(f *parser.FieldDefinition) {
	if f.Name == nil {
		return
	}
	typeName := parser.TypeName(f.Type)
	c.add(types.Symbol{
		Name:          f.Name.Name,
		Kind:          types.KindField,
		Location:      c.location(f.Span),
		Detail:        strings.TrimSpace(f.Name.Name + " " + typeName),
		Documentation: withMetadata(f.Doc, f.Metadata),
		Parent:        c.typedef,
		TypeName:      typeName,
	})
}

func (c *collector) enumValue(v *parser.EnumValue) {
	if v.Name == nil {
		return
	}
	detail := v.Name.Name
	if v.Value != nil {
		detail += " = " + v.Value.Raw
	}
	c.add(types.Symbol{
		Name:          v.Name.Name,
		Kind:          types.KindEnumValue,
		Location:      c.location(v.Span),
		Detail:        detail,
		Documentation: v.Doc,
		Parent:        c.typedef,
	})
}

func (c *collector) api(n *parser.APIDefinition, list string) {
	if n.Name == nil || n.Name.Value == "" {
		return
	}
	c.add(types.Symbol{
		Name:          n.Name.Value,
		Kind:          types.KindAPI,
		Location:      c.location(n.Span),
		Detail:        apiDetail(n),
		Documentation: n.Doc,
		Parent:        list,
	})
}

func (c *collector) apiList(n *parser.APIListDefinition) {
	name := ""
	if n.Name != nil {
		name = n.Name.Value
	}
	if name != "" {
		c.add(types.Symbol{
			Name:          name,
			Kind:          types.KindAPIList,
			Location:      c.location(n.Span),
			Detail:        fmt.Sprintf("apilist %q (%d apis)", name, len(n.APIs)),
			Documentation: n.Doc,
		})
	}
	for _, api := range n.APIs {
		c.api(api, name)
	}
}

func (c *collector) add(sym types.Symbol) {
	c.symbols = append(c.symbols, sym)
}

func (c *collector) location(s parser.Span) types.Location {
	return types.Location{
		URI: c.uri,
		Range: types.Range{
			Start: types.Position{Line: s.Line, Column: s.Column, Offset: s.Start},
			End:   types.Position{Line: s.EndLine, Column: s.EndColumn, Offset: s.End},
		},
	}
}

func structDetail(name string, def *parser.StructDefinition) string {
	var b strings.Builder
	b.WriteString("typedef struct ")
	b.WriteString(name)
	if def.Extends != nil {
		b.WriteString(" extends ")
		b.WriteString(def.Extends.Name)
	}
	if len(def.Implements) > 0 {
		names := make([]string, len(def.Implements))
		for i, id := range def.Implements {
			names[i] = id.Name
		}
		b.WriteString(" implements ")
		b.WriteString(strings.Join(names, ", "))
	}
	return b.String()
}

func apiDetail(n *parser.APIDefinition) string {
	parts := []string{fmt.Sprintf("api %q", n.Name.Value)}
	if n.Method != "" {
		parts = append(parts, n.Method)
	}
	if n.Input != nil {
		parts = append(parts, "input "+parser.TypeName(n.Input.Type))
	}
	if n.Output != nil {
		parts = append(parts, "output "+parser.TypeName(n.Output.Type))
	}
	return strings.Join(parts, " ")
}

func withMetadata(doc, metadata string) string {
	if metadata == "" {
		return doc
	}
	meta := "[[ " + metadata + " ]]"
	if doc == "" {
		return meta
	}
	return doc + "\n" + meta
}
