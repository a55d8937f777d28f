package completion

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/apidl/internal/lexer"
	"github.com/dshills/apidl/internal/symbols"
	"github.com/dshills/apidl/pkg/types"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL bounds how long a view is served without recomputation
	DefaultTTL = 30 * time.Second
	// DefaultMaxResults caps the suggestions returned by Contextual
	DefaultMaxResults = 50
)

// KindKeyword marks keyword suggestions, which have no backing symbol
const KindKeyword types.SymbolKind = "keyword"

// Suggestion is a single completion candidate
type Suggestion struct {
	Label         string           `json:"label"`
	Kind          types.SymbolKind `json:"kind"`
	Detail        string           `json:"detail,omitempty"`
	Documentation string           `json:"documentation,omitempty"`
	Parent        string           `json:"parent,omitempty"`
}

// Options configures an Index
type Options struct {
	TTL        time.Duration
	MaxResults int
	Window     int // preceding lines inspected by Complete
}

// Index serves cached completion views over a symbol table.
//
// Each view is rebuilt when its TTL expires, when the table version moves,
// or after Invalidate. Concurrent rebuilds of one view share a single
// computation. Returned slices are shared and must not be modified.
type Index struct {
	table  *symbols.Table
	ttl    time.Duration
	max    int
	window int
	now    func() time.Time

	mu     sync.Mutex
	views  map[string]view
	group  singleflight.Group
	builds int // view computations, for tests
}

type view struct {
	items   []Suggestion
	built   time.Time
	version uint64
}

// New creates a completion index over table
func New(table *symbols.Table, opts Options) *Index {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Index{
		table:  table,
		ttl:    opts.TTL,
		max:    opts.MaxResults,
		window: opts.Window,
		now:    time.Now,
		views:  make(map[string]view),
	}
}

// Invalidate drops every cached view
func (x *Index) Invalidate() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.views = make(map[string]view)
}

// Structs returns every visible struct
func (x *Index) Structs() []Suggestion {
	return x.view("structs", func() []Suggestion {
		return fromSymbols(x.table.OfKind(types.KindStruct))
	})
}

// Enums returns every visible enum
func (x *Index) Enums() []Suggestion {
	return x.view("enums", func() []Suggestion {
		return fromSymbols(x.table.OfKind(types.KindEnum))
	})
}

// EnumValues returns every visible enum value
func (x *Index) EnumValues() []Suggestion {
	return x.view("enum_values", func() []Suggestion {
		return fromSymbols(x.table.OfKind(types.KindEnumValue))
	})
}

// Apis returns every visible api
func (x *Index) Apis() []Suggestion {
	return x.view("apis", func() []Suggestion {
		return fromSymbols(x.table.OfKind(types.KindAPI))
	})
}

// Fields returns the fields of structName in declaration order
func (x *Index) Fields(structName string) []Suggestion {
	return x.view("fields:"+structName, func() []Suggestion {
		return fromSymbols(x.table.FieldsOfStruct(structName))
	})
}

// AllTypes returns the built-in types followed by structs and enums
func (x *Index) AllTypes() []Suggestion {
	return x.view("all_types", func() []Suggestion {
		items := make([]Suggestion, 0, len(lexer.BuiltinTypes))
		for _, name := range lexer.BuiltinTypes {
			items = append(items, Suggestion{Label: name, Kind: types.KindType, Detail: "built-in type"})
		}
		named := append(fromSymbols(x.table.OfKind(types.KindStruct)), fromSymbols(x.table.OfKind(types.KindEnum))...)
		sort.SliceStable(named, func(i, j int) bool { return named[i].Label < named[j].Label })
		return append(items, named...)
	})
}

// Contextual returns at most MaxResults suggestions for c
func (x *Index) Contextual(c Context) []Suggestion {
	var pool []Suggestion
	switch {
	case c.Qualifier != "":
		pool = x.Fields(c.Qualifier)
	case c.Slot == SlotStructFieldType:
		pool = x.AllTypes()
	case c.Slot == SlotAPIInputOutput && c.AfterKeyword:
		pool = x.Structs()
	case c.Slot == SlotAPIInputOutput:
		pool = apiKeywords
	case c.Slot == SlotEnumValue:
		pool = x.EnumValues()
	case c.Slot == SlotGlobal:
		pool = topLevelKeywords
	default:
		pool = x.AllTypes()
	}
	return x.limit(filterPrefix(pool, c.Prefix))
}

// Complete classifies the cursor in text and returns contextual suggestions
func (x *Index) Complete(text string, line, column int) (Context, []Suggestion) {
	c := Classify(text, line, column, x.window)
	return c, x.Contextual(c)
}

func (x *Index) view(name string, build func() []Suggestion) []Suggestion {
	version := x.table.Version()

	x.mu.Lock()
	if v, ok := x.views[name]; ok && v.version == version && x.now().Sub(v.built) < x.ttl {
		x.mu.Unlock()
		return v.items
	}
	x.mu.Unlock()

	res, _, _ := x.group.Do(name, func() (interface{}, error) {
		items := build()
		x.mu.Lock()
		x.views[name] = view{items: items, built: x.now(), version: version}
		x.builds++
		x.mu.Unlock()
		return items, nil
	})
	return res.([]Suggestion)
}

func (x *Index) limit(items []Suggestion) []Suggestion {
	if len(items) > x.max {
		return items[:x.max]
	}
	return items
}

func fromSymbols(syms []types.Symbol) []Suggestion {
	out := make([]Suggestion, 0, len(syms))
	for _, s := range syms {
		out = append(out, Suggestion{
			Label:         s.Name,
			Kind:          s.Kind,
			Detail:        detail(s),
			Documentation: s.Documentation,
			Parent:        s.Parent,
		})
	}
	return out
}

func detail(s types.Symbol) string {
	if s.Kind == types.KindEnumValue {
		return fmt.Sprintf("%s.%s", s.Parent, s.Detail)
	}
	return s.Detail
}

func filterPrefix(items []Suggestion, prefix string) []Suggestion {
	if prefix == "" {
		return items
	}
	lower := strings.ToLower(prefix)
	var out []Suggestion
	for _, it := range items {
		label := strings.TrimPrefix(strings.ToLower(it.Label), "#")
		if strings.HasPrefix(label, lower) {
			out = append(out, it)
		}
	}
	return out
}

func keywords(detail string, words ...string) []Suggestion {
	out := make([]Suggestion, len(words))
	for i, w := range words {
		out[i] = Suggestion{Label: w, Kind: KindKeyword, Detail: detail}
	}
	return out
}

var (
	topLevelKeywords = keywords("keyword", "typedef", "api", "apilist", "#include", "#set")
	apiKeywords      = keywords("api statement", "input", "output", "extract", "patch")
)
