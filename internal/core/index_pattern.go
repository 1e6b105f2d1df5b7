package core

// IndexPattern lists the fields of the table an aggregation runs against.
type IndexPattern struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// FieldByName returns the named field, or nil.
func (p IndexPattern) FieldByName(name string) *Field {
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			f := p.Fields[i]
			return &f
		}
	}
	return nil
}
