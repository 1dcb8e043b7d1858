package protocol

import (
	"bytes"
	"fmt"
	"slices"
)

// Object is a set of typed fields. Values are stored in their Go form:
//
//	UInt8/16/32/64  uint8, uint16, uint32, uint64
//	Hash256         Hash256
//	Amount          Drops
//	Blob            []byte
//	AccountID       AccountID
//	STObject        *Object
//	STArray         []*Object
//	Vector256       []Hash256
//
// An Object with a template rejects fields outside it. Getters return the
// zero value for absent fields; use Has to distinguish.
type Object struct {
	// name is the wrapping field for inner objects (array elements); nil at top level.
	name     *SField
	fields   map[*SField]any
	template *Template

	// typeLocked forbids rewriting LedgerEntryType once set by a constructor.
	typeLocked bool
}

// NewObject returns an empty, untemplated object.
func NewObject() *Object {
	return &Object{fields: make(map[*SField]any)}
}

// NewInnerObject returns an empty object wrapped in the given object field,
// suitable as an STArray element.
func NewInnerObject(name *SField) *Object {
	o := NewObject()
	o.name = name
	return o
}

// Name returns the wrapping field of an inner object, or nil.
func (o *Object) Name() *SField { return o.name }

// Template returns the template the object was built against, or nil.
func (o *Object) Template() *Template { return o.template }

// Has reports whether the field is present.
func (o *Object) Has(f *SField) bool {
	_, ok := o.fields[f]
	return ok
}

// Len returns the number of present fields.
func (o *Object) Len() int { return len(o.fields) }

// Fields returns present fields in canonical order.
func (o *Object) Fields() []*SField {
	out := make([]*SField, 0, len(o.fields))
	for f := range o.fields {
		out = append(out, f)
	}
	sortFields(out)
	return out
}

// Get returns the raw value of a field.
func (o *Object) Get(f *SField) (any, bool) {
	v, ok := o.fields[f]
	return v, ok
}

func (o *Object) get(f *SField, want FieldType) any {
	if f.Type != want {
		panic(fmt.Sprintf("protocol: field %s is %s, not %s", f.Name, f.Type, want))
	}
	return o.fields[f]
}

func (o *Object) Uint8(f *SField) uint8 {
	v, _ := o.get(f, TypeUInt8).(uint8)
	return v
}

func (o *Object) Uint16(f *SField) uint16 {
	v, _ := o.get(f, TypeUInt16).(uint16)
	return v
}

func (o *Object) Uint32(f *SField) uint32 {
	v, _ := o.get(f, TypeUInt32).(uint32)
	return v
}

func (o *Object) Uint64(f *SField) uint64 {
	v, _ := o.get(f, TypeUInt64).(uint64)
	return v
}

func (o *Object) Hash256(f *SField) Hash256 {
	v, _ := o.get(f, TypeHash256).(Hash256)
	return v
}

func (o *Object) Amount(f *SField) Drops {
	v, _ := o.get(f, TypeAmount).(Drops)
	return v
}

// Blob returns a copy of a variable-length field.
func (o *Object) Blob(f *SField) []byte {
	v, _ := o.get(f, TypeBlob).([]byte)
	return bytes.Clone(v)
}

func (o *Object) Account(f *SField) AccountID {
	v, _ := o.get(f, TypeAccount).(AccountID)
	return v
}

func (o *Object) Vector256(f *SField) []Hash256 {
	v, _ := o.get(f, TypeVector256).([]Hash256)
	return slices.Clone(v)
}

// Array returns the elements of an array field. The elements are shared;
// clone before mutating.
func (o *Object) Array(f *SField) []*Object {
	v, _ := o.get(f, TypeArray).([]*Object)
	return v
}

// Set stores a value after checking its Go type against the field type.
func (o *Object) Set(f *SField, v any) {
	if !valueFits(f.Type, v) {
		panic(fmt.Sprintf("protocol: value %T does not fit %s field %s", v, f.Type, f.Name))
	}
	if o.template != nil && o.template.Index(f) < 0 {
		panic(templateError(f, "field not allowed by %s template", o.template.Name()))
	}
	if o.typeLocked && f == FieldLedgerEntryType {
		panic(&FatalError{Code: ErrCodeTemplate, Message: "ledger entry type is immutable", Field: f.Name})
	}
	o.fields[f] = v
}

func (o *Object) SetUint8(f *SField, v uint8)         { o.Set(f, v) }
func (o *Object) SetUint16(f *SField, v uint16)       { o.Set(f, v) }
func (o *Object) SetUint32(f *SField, v uint32)       { o.Set(f, v) }
func (o *Object) SetUint64(f *SField, v uint64)       { o.Set(f, v) }
func (o *Object) SetHash256(f *SField, v Hash256)     { o.Set(f, v) }
func (o *Object) SetAmount(f *SField, v Drops)        { o.Set(f, v) }
func (o *Object) SetBlob(f *SField, v []byte)         { o.Set(f, bytes.Clone(v)) }
func (o *Object) SetAccount(f *SField, v AccountID)   { o.Set(f, v) }
func (o *Object) SetVector256(f *SField, v []Hash256) { o.Set(f, slices.Clone(v)) }
func (o *Object) SetArray(f *SField, v []*Object)     { o.Set(f, v) }

// Remove makes a field absent. Removing a required field of a templated
// object panics.
func (o *Object) Remove(f *SField) {
	if o.template != nil {
		if style, ok := o.template.Style(f); ok && style == StyleRequired {
			panic(templateError(f, "cannot remove required field"))
		}
	}
	delete(o.fields, f)
}

// Clone returns a deep copy. The copy keeps the template and type lock.
func (o *Object) Clone() *Object {
	c := &Object{
		name:       o.name,
		fields:     make(map[*SField]any, len(o.fields)),
		template:   o.template,
		typeLocked: o.typeLocked,
	}
	for f, v := range o.fields {
		c.fields[f] = cloneValue(v)
	}
	return c
}

// Equal reports whether both objects hold the same fields with equal values.
// Templates are not compared.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.name != other.name || len(o.fields) != len(other.fields) {
		return false
	}
	for f, v := range o.fields {
		w, ok := other.fields[f]
		if !ok || !valueEqual(v, w) {
			return false
		}
	}
	return true
}

// ApplyTemplate binds the object to t after verifying every field: required
// fields present, no fields outside t, default-style fields not holding
// their default value.
func (o *Object) ApplyTemplate(t *Template) error {
	for _, el := range t.elements {
		v, ok := o.fields[el.Field]
		switch {
		case !ok && el.Style == StyleRequired:
			return templateError(el.Field, "required field missing from %s", t.Name())
		case ok && el.Style == StyleDefault && isDefaultValue(v):
			return templateError(el.Field, "default-style field holds its default value")
		}
	}
	for f := range o.fields {
		if t.Index(f) < 0 {
			return templateError(f, "field not allowed by %s template", t.Name())
		}
	}
	o.template = t
	return nil
}

// ValuesEqual compares two field values of the same kind.
func ValuesEqual(a, b any) bool { return valueEqual(a, b) }

// IsDefaultValue reports whether a field value equals its type's default.
func IsDefaultValue(v any) bool { return isDefaultValue(v) }

func valueFits(t FieldType, v any) bool {
	switch t {
	case TypeUInt8:
		_, ok := v.(uint8)
		return ok
	case TypeUInt16:
		_, ok := v.(uint16)
		return ok
	case TypeUInt32:
		_, ok := v.(uint32)
		return ok
	case TypeUInt64:
		_, ok := v.(uint64)
		return ok
	case TypeHash256:
		_, ok := v.(Hash256)
		return ok
	case TypeAmount:
		_, ok := v.(Drops)
		return ok
	case TypeBlob:
		_, ok := v.([]byte)
		return ok
	case TypeAccount:
		_, ok := v.(AccountID)
		return ok
	case TypeObject:
		_, ok := v.(*Object)
		return ok
	case TypeArray:
		_, ok := v.([]*Object)
		return ok
	case TypeVector256:
		_, ok := v.([]Hash256)
		return ok
	}
	return false
}

func defaultValue(t FieldType) any {
	switch t {
	case TypeUInt8:
		return uint8(0)
	case TypeUInt16:
		return uint16(0)
	case TypeUInt32:
		return uint32(0)
	case TypeUInt64:
		return uint64(0)
	case TypeHash256:
		return Hash256{}
	case TypeAmount:
		return Drops(0)
	case TypeBlob:
		return []byte{}
	case TypeAccount:
		return AccountID{}
	case TypeObject:
		return NewObject()
	case TypeArray:
		return []*Object{}
	case TypeVector256:
		return []Hash256{}
	}
	panic(fmt.Sprintf("protocol: no default for %s", t))
}

func isDefaultValue(v any) bool {
	switch val := v.(type) {
	case uint8:
		return val == 0
	case uint16:
		return val == 0
	case uint32:
		return val == 0
	case uint64:
		return val == 0
	case Hash256:
		return val.IsZero()
	case Drops:
		return val == 0
	case []byte:
		return len(val) == 0
	case AccountID:
		return val.IsZero()
	case *Object:
		return val.Len() == 0
	case []*Object:
		return len(val) == 0
	case []Hash256:
		return len(val) == 0
	}
	return false
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return bytes.Clone(val)
	case []Hash256:
		return slices.Clone(val)
	case *Object:
		return val.Clone()
	case []*Object:
		out := make([]*Object, len(val))
		for i, el := range val {
			out[i] = el.Clone()
		}
		return out
	}
	return v
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case []Hash256:
		bv, ok := b.([]Hash256)
		return ok && slices.Equal(av, bv)
	case *Object:
		bv, ok := b.(*Object)
		return ok && av.Equal(bv)
	case []*Object:
		bv, ok := b.([]*Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
