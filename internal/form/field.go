// Package form holds the small field and form model behind the settings
// modal: values, validation state and checkbox rendering.
package form

import "fmt"

type ValidationError struct {
	Path    string
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

// Validator inspects a field value and returns nil when it is acceptable.
type Validator func(path string, value any) *ValidationError

// Field is one form value with its label, help text and validation state.
type Field struct {
	Path  string
	Label string
	// HelpText is shown under the field unless HelpTextFunc is set.
	HelpText     string
	HelpTextFunc func() string

	Value       any
	Validations []Validator
	Errors      []ValidationError

	// IsChangingValue is set while an edit is in flight; errors are not
	// reported until it settles.
	IsChangingValue bool
	IsPristine      bool

	listeners []func(any)
}

func NewField(path, label string, value any, validations ...Validator) *Field {
	return &Field{
		Path:        path,
		Label:       label,
		Value:       value,
		Validations: validations,
		IsPristine:  true,
	}
}

func (f *Field) Help() string {
	if f.HelpTextFunc != nil {
		return f.HelpTextFunc()
	}
	return f.HelpText
}

// OnChange registers fn to run after every SetValue.
func (f *Field) OnChange(fn func(any)) {
	f.listeners = append(f.listeners, fn)
}

// SetValue stores v, revalidates and notifies listeners.
func (f *Field) SetValue(v any) {
	f.Value = v
	f.IsPristine = false
	f.Validate()
	for _, fn := range f.listeners {
		fn(v)
	}
}

// Validate runs every validation and replaces Errors with the failures.
func (f *Field) Validate() bool {
	f.Errors = f.Errors[:0]
	for _, v := range f.Validations {
		if err := v(f.Path, f.Value); err != nil {
			f.Errors = append(f.Errors, *err)
		}
	}
	return len(f.Errors) == 0
}

func (f *Field) IsValid() bool {
	return len(f.Errors) == 0
}

// ValidityAndErrorMessage reports whether the field should render as
// invalid and the first error message.
func ValidityAndErrorMessage(f *Field) (bool, string) {
	invalid := !f.IsChangingValue && len(f.Errors) > 0
	if !invalid {
		return false, ""
	}
	return true, f.Errors[0].Message
}

// Required rejects nil, empty strings and false.
func Required(message string) Validator {
	return func(path string, value any) *ValidationError {
		switch v := value.(type) {
		case nil:
		case string:
			if v != "" {
				return nil
			}
		case bool:
			if v {
				return nil
			}
		default:
			return nil
		}
		msg := message
		if msg == "" {
			msg = fmt.Sprintf("%s is required", path)
		}
		return &ValidationError{Path: path, Code: "ERR_REQUIRED", Message: msg}
	}
}
