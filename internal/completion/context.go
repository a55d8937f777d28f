package completion

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultWindow is how many lines above the cursor Classify inspects
const DefaultWindow = 10

// Slot is the syntactic position of the cursor
type Slot int

const (
	SlotUnknown Slot = iota
	SlotGlobal
	SlotStructFieldType
	SlotAPIInputOutput
	SlotEnumValue
)

func (s Slot) String() string {
	switch s {
	case SlotGlobal:
		return "global"
	case SlotStructFieldType:
		return "struct_field_type"
	case SlotAPIInputOutput:
		return "api_input_output"
	case SlotEnumValue:
		return "enum_value"
	default:
		return "unknown"
	}
}

// Context describes the cursor position for a completion request
type Context struct {
	Slot Slot
	// Prefix is the partial word immediately left of the cursor.
	Prefix string
	// Qualifier is set for "Name.prefix" and holds Name.
	Qualifier string
	// AfterKeyword is set when the cursor directly follows input or output.
	AfterKeyword bool
}

var (
	ioKeyword     = regexp.MustCompile(`\b(?:input|output)\s+$`)
	quotedString  = regexp.MustCompile(`"(?:[^"\\]|\\.)*"?`)
	blockOpenWord = map[string]Slot{
		"enum":    SlotEnumValue,
		"struct":  SlotStructFieldType,
		"api":     SlotAPIInputOutput,
		"apilist": SlotGlobal,
	}
)

// Classify guesses the cursor slot from the current line and at most window
// preceding lines. It never looks at the rest of the document, so the cost
// is bounded regardless of document size. line and column are 1-based.
func Classify(text string, line, column, window int) Context {
	if line < 1 {
		return Context{Slot: SlotUnknown}
	}
	curLine, start, ok := lineAt(text, line)
	if !ok {
		return Context{Slot: SlotUnknown}
	}
	if window <= 0 {
		window = DefaultWindow
	}

	cur := []rune(strings.TrimSuffix(curLine, "\r"))
	col := column - 1
	if col < 0 {
		col = 0
	}
	if col > len(cur) {
		col = len(cur)
	}
	before := string(cur[:col])

	c := Context{Prefix: trailingWord(before)}
	head := strings.TrimSuffix(before, c.Prefix)
	if strings.HasSuffix(head, ".") {
		c.Qualifier = trailingWord(strings.TrimSuffix(head, "."))
	}

	if ioKeyword.MatchString(head) {
		c.Slot = SlotAPIInputOutput
		c.AfterKeyword = true
		return c
	}

	// Walk backwards to the innermost unclosed '{'.
	chunks := []string{stripStrings(head)}
	for len(chunks) <= window && start > 0 {
		prev := text[:start-1]
		start = strings.LastIndexByte(prev, '\n') + 1
		chunks = append(chunks, stripStrings(prev[start:]))
	}

	depth := 0
	for ci, chunk := range chunks {
		for j := len(chunk) - 1; j >= 0; j-- {
			switch chunk[j] {
			case '}':
				depth++
			case '{':
				if depth > 0 {
					depth--
					continue
				}
				opener := chunk[:j]
				if strings.TrimSpace(opener) == "" && ci+1 < len(chunks) {
					opener = chunks[ci+1]
				}
				c.Slot = classifyOpener(opener)
				return c
			}
		}
	}

	if start == 0 && depth == 0 {
		c.Slot = SlotGlobal
	}
	return c
}

// lineAt returns 1-based line n of text without its newline, and the byte
// offset where it starts. Nothing past line n is scanned.
func lineAt(text string, n int) (string, int, bool) {
	start := 0
	for i := 1; i < n; i++ {
		j := strings.IndexByte(text[start:], '\n')
		if j < 0 {
			return "", 0, false
		}
		start += j + 1
	}
	end := len(text)
	if j := strings.IndexByte(text[start:], '\n'); j >= 0 {
		end = start + j
	}
	return text[start:end], start, true
}

// classifyOpener finds the block keyword nearest to the '{'.
func classifyOpener(opener string) Slot {
	words := strings.FieldsFunc(opener, func(r rune) bool {
		return !isWordRune(r)
	})
	for i := len(words) - 1; i >= 0; i-- {
		if slot, ok := blockOpenWord[words[i]]; ok {
			return slot
		}
	}
	return SlotUnknown
}

func stripStrings(s string) string {
	return quotedString.ReplaceAllString(s, `""`)
}

func trailingWord(s string) string {
	runes := []rune(s)
	i := len(runes)
	for i > 0 && isWordRune(runes[i-1]) {
		i--
	}
	return string(runes[i:])
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
