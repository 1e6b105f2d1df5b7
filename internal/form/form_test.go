package form

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainStyles() CheckboxStyles {
	plain := lipgloss.NewStyle()
	return CheckboxStyles{Box: plain, Label: plain, Focused: plain, Help: plain, Error: plain}
}

func TestField_SetValueValidatesAndNotifies(t *testing.T) {
	f := NewField("accept", "Accept terms", false, Required("must accept"))
	var seen []any
	f.OnChange(func(v any) { seen = append(seen, v) })

	assert.True(t, f.IsPristine)
	f.SetValue(false)
	assert.False(t, f.IsPristine)
	assert.False(t, f.IsValid())
	require.Len(t, f.Errors, 1)
	assert.Equal(t, "ERR_REQUIRED", f.Errors[0].Code)

	f.SetValue(true)
	assert.True(t, f.IsValid())
	assert.Equal(t, []any{false, true}, seen)
}

func TestField_HelpTextFuncWins(t *testing.T) {
	f := NewField("x", "X", nil)
	f.HelpText = "static"
	assert.Equal(t, "static", f.Help())

	f.HelpTextFunc = func() string { return "dynamic" }
	assert.Equal(t, "dynamic", f.Help())
}

func TestValidityAndErrorMessage(t *testing.T) {
	f := NewField("name", "Name", "", Required(""))
	invalid, msg := ValidityAndErrorMessage(f)
	assert.False(t, invalid)
	assert.Empty(t, msg)

	f.Validate()
	invalid, msg = ValidityAndErrorMessage(f)
	assert.True(t, invalid)
	assert.Equal(t, "name is required", msg)

	f.IsChangingValue = true
	invalid, _ = ValidityAndErrorMessage(f)
	assert.False(t, invalid)
}

func TestCheckbox_DefaultsToRandomID(t *testing.T) {
	a := NewCheckbox(NewField("a", "A", false), "")
	b := NewCheckbox(NewField("b", "B", false), "")
	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	c := NewCheckbox(NewField("c", "C", false), "pin")
	assert.Equal(t, "pin", c.ID)
}

func TestCheckbox_ToggleAndView(t *testing.T) {
	field := NewField("pin", "Pin filters", false)
	field.HelpText = "New filters apply across requests"
	box := NewCheckbox(field, "pin")

	view := box.View(60, plainStyles())
	lines := strings.Split(view, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[ ] Pin filters", lines[0])
	assert.Equal(t, "    New filters apply across requests", lines[1])

	box.Toggle()
	assert.True(t, box.Checked())
	assert.True(t, strings.HasPrefix(box.View(60, plainStyles()), "[x] Pin filters"))
}

func TestCheckbox_ViewShowsErrorInsteadOfHelp(t *testing.T) {
	field := NewField("live", "Live reload", false, Required("enable live reload"))
	field.HelpText = "Re-run on change"
	box := NewCheckbox(field, "")
	field.Validate()

	view := box.View(60, plainStyles())
	assert.Contains(t, view, "enable live reload")
	assert.NotContains(t, view, "Re-run on change")
}

func TestForm_Submit(t *testing.T) {
	form := New(
		NewField("pin", "Pin", true),
		NewField("name", "Name", "", Required("")),
	)

	values, ok := form.Submit()
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"pin": true, "name": ""}, values)
	assert.False(t, form.IsValid())

	name, found := form.Field("name")
	require.True(t, found)
	name.SetValue("aggscope")
	values, ok = form.Submit()
	assert.True(t, ok)
	assert.Equal(t, "aggscope", values["name"])

	_, found = form.Field("nope")
	assert.False(t, found)
}
