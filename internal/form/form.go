package form

import "github.com/samber/lo"

// Form is an ordered set of fields.
type Form struct {
	fields []*Field
}

func New(fields ...*Field) *Form {
	return &Form{fields: fields}
}

func (f *Form) Fields() []*Field {
	return f.fields
}

func (f *Form) Field(path string) (*Field, bool) {
	return lo.Find(f.fields, func(field *Field) bool { return field.Path == path })
}

// Submit validates every field and returns the values keyed by path.
func (f *Form) Submit() (map[string]any, bool) {
	valid := true
	out := make(map[string]any, len(f.fields))
	for _, field := range f.fields {
		field.IsChangingValue = false
		if !field.Validate() {
			valid = false
		}
		out[field.Path] = field.Value
	}
	return out, valid
}

func (f *Form) IsValid() bool {
	return lo.EveryBy(f.fields, func(field *Field) bool { return field.IsValid() })
}
