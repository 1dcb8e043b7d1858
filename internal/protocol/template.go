package protocol

import "fmt"

// Style says how a template treats a field.
type Style uint8

const (
	// StyleRequired fields must be present. Constructors fill them with the
	// type's default value.
	StyleRequired Style = iota + 1

	// StyleOptional fields may be absent.
	StyleOptional

	// StyleDefault fields may be absent, and when present must not hold the
	// default value.
	StyleDefault
)

var styleNames = map[Style]string{
	StyleRequired: "required",
	StyleOptional: "optional",
	StyleDefault:  "default",
}

func (s Style) String() string {
	if n, ok := styleNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Style(%d)", uint8(s))
}

// ParseStyle maps the names used in formats.cue to a Style.
func ParseStyle(s string) (Style, error) {
	for st, n := range styleNames {
		if n == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown field style %q", s)
}

// TemplateElement is one (field, style) pair.
type TemplateElement struct {
	Field *SField
	Style Style
}

// Template is the ordered set of fields permitted for one entry or
// transaction type. Templates are immutable after construction.
type Template struct {
	name     string
	elements []TemplateElement
	index    map[*SField]int
}

// NewTemplate builds a template. Duplicate fields are an error.
func NewTemplate(name string, elements ...TemplateElement) (*Template, error) {
	t := &Template{
		name:     name,
		elements: make([]TemplateElement, 0, len(elements)),
		index:    make(map[*SField]int, len(elements)),
	}
	for _, el := range elements {
		if el.Field == nil {
			return nil, fmt.Errorf("template %s: nil field", name)
		}
		if _, dup := t.index[el.Field]; dup {
			return nil, fmt.Errorf("template %s: duplicate field %s", name, el.Field.Name)
		}
		t.index[el.Field] = len(t.elements)
		t.elements = append(t.elements, el)
	}
	return t, nil
}

// Name is the format name the template belongs to.
func (t *Template) Name() string { return t.name }

// Index returns the position of f, or -1 when the template does not contain it.
func (t *Template) Index(f *SField) int {
	if i, ok := t.index[f]; ok {
		return i
	}
	return -1
}

// Style returns the style of f.
func (t *Template) Style(f *SField) (Style, bool) {
	i, ok := t.index[f]
	if !ok {
		return 0, false
	}
	return t.elements[i].Style, true
}

// Elements returns a copy of the template's elements in declaration order.
func (t *Template) Elements() []TemplateElement {
	out := make([]TemplateElement, len(t.elements))
	copy(out, t.elements)
	return out
}

// instantiate returns an object bound to t with every required field set to
// its default value.
func (t *Template) instantiate() *Object {
	o := NewObject()
	for _, el := range t.elements {
		if el.Style == StyleRequired {
			o.fields[el.Field] = defaultValue(el.Field.Type)
		}
	}
	o.template = t
	return o
}
