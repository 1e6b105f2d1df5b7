package form

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

type CheckboxStyles struct {
	Box     lipgloss.Style
	Label   lipgloss.Style
	Focused lipgloss.Style
	Help    lipgloss.Style
	Error   lipgloss.Style
}

func DefaultCheckboxStyles() CheckboxStyles {
	return CheckboxStyles{
		Box:     lipgloss.NewStyle().Bold(true),
		Label:   lipgloss.NewStyle(),
		Focused: lipgloss.NewStyle().Bold(true).Reverse(true),
		Help:    lipgloss.NewStyle().Faint(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	}
}

// CheckboxField renders a boolean Field as a checkbox row.
type CheckboxField struct {
	Field   *Field
	ID      string
	Focused bool
}

// NewCheckbox wraps field. An empty id gets a random one.
func NewCheckbox(field *Field, id string) *CheckboxField {
	if id == "" {
		id = uuid.NewString()
	}
	return &CheckboxField{Field: field, ID: id}
}

func (c *CheckboxField) Checked() bool {
	v, _ := c.Field.Value.(bool)
	return v
}

func (c *CheckboxField) Toggle() {
	c.Field.SetValue(!c.Checked())
}

// View renders the checkbox line followed by the help text or, when the
// field is invalid, its error message.
func (c *CheckboxField) View(width int, styles CheckboxStyles) string {
	box := "[ ]"
	if c.Checked() {
		box = "[x]"
	}
	label := styles.Label.Render(c.Field.Label)
	if c.Focused {
		label = styles.Focused.Render(c.Field.Label)
	}
	lines := []string{styles.Box.Render(box) + " " + label}

	below := c.Field.Help()
	style := styles.Help
	if invalid, msg := ValidityAndErrorMessage(c.Field); invalid {
		below, style = msg, styles.Error
	}
	if below != "" {
		indent := 4
		w := width - indent
		if w < 10 {
			w = 10
		}
		wrapped := lipgloss.NewStyle().Width(w).Render(below)
		for _, line := range strings.Split(wrapped, "\n") {
			lines = append(lines, strings.Repeat(" ", indent)+style.Render(strings.TrimRight(line, " ")))
		}
	}
	return strings.Join(lines, "\n")
}
