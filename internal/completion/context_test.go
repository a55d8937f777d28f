package completion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		line, column int
		wantSlot     Slot
		wantPrefix   string
		afterKeyword bool
	}{
		{
			name:     "typedef struct field type",
			text:     "typedef struct {\n\tid \n} User",
			line:     2,
			column:   5,
			wantSlot: SlotStructFieldType,
		},
		{
			name:       "field type with prefix",
			text:       "typedef struct {\n\towner Us\n} T",
			line:       2,
			column:     10,
			wantSlot:   SlotStructFieldType,
			wantPrefix: "Us",
		},
		{
			name:     "enum body",
			text:     "typedef enum {\n\tA,\n\t\n} E",
			line:     3,
			column:   2,
			wantSlot: SlotEnumValue,
		},
		{
			name:         "after input keyword",
			text:         "api \"/u\" {\n\tinput Us",
			line:         2,
			column:       10,
			wantSlot:     SlotAPIInputOutput,
			wantPrefix:   "Us",
			afterKeyword: true,
		},
		{
			name:         "after output keyword",
			text:         "api \"/u\" { output ",
			line:         1,
			column:       19,
			wantSlot:     SlotAPIInputOutput,
			afterKeyword: true,
		},
		{
			name:     "api body",
			text:     "api \"/u\" GET {\n\t",
			line:     2,
			column:   2,
			wantSlot: SlotAPIInputOutput,
		},
		{
			name:     "api name containing a keyword",
			text:     "api \"/enum/list\" {\n\t",
			line:     2,
			column:   2,
			wantSlot: SlotAPIInputOutput,
		},
		{
			name:     "inline input struct",
			text:     "api \"/u\" {\n\tinput struct {\n\t\t",
			line:     3,
			column:   3,
			wantSlot: SlotStructFieldType,
		},
		{
			name:     "brace on its own line",
			text:     "typedef enum\n{\n\t",
			line:     3,
			column:   2,
			wantSlot: SlotEnumValue,
		},
		{
			name:     "top level after closed block",
			text:     "typedef struct { id int } User\n",
			line:     2,
			column:   1,
			wantSlot: SlotGlobal,
		},
		{
			name:     "inside apilist",
			text:     "apilist \"x\" {\n\t",
			line:     2,
			column:   2,
			wantSlot: SlotGlobal,
		},
		{
			name:     "line out of range",
			text:     "typedef",
			line:     5,
			column:   1,
			wantSlot: SlotUnknown,
		},
		{
			name:       "column past end of line",
			text:       "typ",
			line:       1,
			column:     40,
			wantSlot:   SlotGlobal,
			wantPrefix: "typ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.text, tt.line, tt.column, DefaultWindow)
			assert.Equal(t, tt.wantSlot, c.Slot, c.Slot.String())
			assert.Equal(t, tt.wantPrefix, c.Prefix)
			assert.Equal(t, tt.afterKeyword, c.AfterKeyword)
		})
	}
}

func TestClassify_WindowIsBounded(t *testing.T) {
	text := "typedef struct {\n" + strings.Repeat("\tf int\n", 14) + "\t"

	c := Classify(text, 16, 2, 10)
	assert.Equal(t, SlotUnknown, c.Slot)

	c = Classify(text, 16, 2, 20)
	assert.Equal(t, SlotStructFieldType, c.Slot)
}

func TestClassify_IgnoresTextOutsideWindow(t *testing.T) {
	block := "typedef enum {\n\tA,\n\t"
	// Unbalanced braces far above and anywhere below the cursor must not
	// change the result.
	above := strings.Repeat("}}} {{{ \"{\"\n", 5000)
	below := strings.Repeat("\n{ struct {", 5000)

	want := Classify(block, 3, 2, DefaultWindow)
	assert.Equal(t, SlotEnumValue, want.Slot)

	got := Classify(above+block+below, 5003, 2, DefaultWindow)
	assert.Equal(t, want, got)

	c := Classify("a\r\nb", 2, 2, DefaultWindow)
	assert.Equal(t, "b", c.Prefix)
	assert.Equal(t, SlotGlobal, c.Slot)

	assert.Equal(t, SlotUnknown, Classify("one line", 2, 1, DefaultWindow).Slot)
	assert.Equal(t, SlotGlobal, Classify("a\n", 2, 1, DefaultWindow).Slot, "the empty last line exists")
}

func TestClassify_Qualifier(t *testing.T) {
	c := Classify("typedef struct {\n\tx User.na", 2, 11, DefaultWindow)
	assert.Equal(t, "User", c.Qualifier)
	assert.Equal(t, "na", c.Prefix)
}

func TestSlot_String(t *testing.T) {
	assert.Equal(t, "enum_value", SlotEnumValue.String())
	assert.Equal(t, "unknown", Slot(99).String())
}
