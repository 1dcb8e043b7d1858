package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/txgate/internal/ter"
)

// JSONValue renders the object in the generic JSON form: a map keyed by
// field name. Inner objects render without their wrapping name.
func (o *Object) JSONValue() any {
	m := make(map[string]any, len(o.fields))
	for f, v := range o.fields {
		m[f.Name] = fieldJSON(f, v)
	}
	return m
}

// JSON is JSONValue with a concrete map type.
func (o *Object) JSON() map[string]any {
	return o.JSONValue().(map[string]any)
}

// MarshalJSON renders the object as canonical JSON.
func (o *Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(o.JSONValue())
}

func fieldJSON(f *SField, v any) any {
	switch val := v.(type) {
	case uint8:
		if f == FieldTransactionResult {
			if c, err := ter.FromInt(int(val)); err == nil {
				return c.Token()
			}
		}
		return int64(val)
	case uint16:
		switch f {
		case FieldLedgerEntryType:
			if ef, ok := DefaultFormats().Entry(LedgerEntryType(val)); ok {
				return ef.Name
			}
		case FieldTransactionType:
			if tf, ok := DefaultFormats().Tx(TxType(val)); ok {
				return tf.Name
			}
		}
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return strconv.FormatUint(val, 16)
	case Hash256:
		return val.String()
	case Drops:
		return val.String()
	case []byte:
		return strings.ToUpper(hex.EncodeToString(val))
	case AccountID:
		return val.String()
	case []Hash256:
		out := make([]any, len(val))
		for i, h := range val {
			out[i] = h.String()
		}
		return out
	case *Object:
		return val.JSONValue()
	case []*Object:
		out := make([]any, len(val))
		for i, el := range val {
			name := "Object"
			if el.name != nil {
				name = el.name.Name
			}
			out[i] = map[string]any{name: el.JSONValue()}
		}
		return out
	}
	panic(fmt.Sprintf("protocol: cannot render %T for %s", v, f.Name))
}

// ParseObject builds an untemplated object from its generic JSON form. It
// accepts what JSONValue produces and also plain numbers where a name or
// hex string would be rendered.
func ParseObject(m map[string]any) (*Object, error) {
	o := NewObject()
	for name, raw := range m {
		f, ok := LookupField(name)
		if !ok {
			return nil, &FatalError{Code: ErrCodeEncoding, Message: "unknown field", Field: name}
		}
		v, err := parseFieldJSON(f, raw)
		if err != nil {
			return nil, &FatalError{Code: ErrCodeEncoding, Message: err.Error(), Field: name}
		}
		o.fields[f] = v
	}
	return o, nil
}

func parseFieldJSON(f *SField, raw any) (any, error) {
	switch f.Type {
	case TypeUInt8:
		if s, ok := raw.(string); ok && f == FieldTransactionResult {
			c, err := ter.Parse(s)
			if err != nil {
				return nil, err
			}
			return uint8(c.Int()), nil
		}
		n, err := jsonUint(raw, math.MaxUint8)
		return uint8(n), err
	case TypeUInt16:
		if s, ok := raw.(string); ok {
			switch f {
			case FieldLedgerEntryType:
				if ef, ok := DefaultFormats().EntryByName(s); ok {
					return uint16(ef.Type), nil
				}
				return nil, fmt.Errorf("unknown ledger entry type %q", s)
			case FieldTransactionType:
				if tf, ok := DefaultFormats().TxByName(s); ok {
					return uint16(tf.Type), nil
				}
				return nil, fmt.Errorf("unknown transaction type %q", s)
			}
		}
		n, err := jsonUint(raw, math.MaxUint16)
		return uint16(n), err
	case TypeUInt32:
		n, err := jsonUint(raw, math.MaxUint32)
		return uint32(n), err
	case TypeUInt64:
		if s, ok := raw.(string); ok {
			return strconv.ParseUint(s, 16, 64)
		}
		return jsonUint(raw, math.MaxUint64)
	case TypeHash256:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected hex string, got %T", raw)
		}
		return ParseHash256(s)
	case TypeAmount:
		switch val := raw.(type) {
		case string:
			return ParseDrops(val)
		default:
			n, err := jsonInt(raw)
			return Drops(n), err
		}
	case TypeBlob:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected hex string, got %T", raw)
		}
		return hex.DecodeString(s)
	case TypeAccount:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected hex string, got %T", raw)
		}
		return ParseAccountID(s)
	case TypeVector256:
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", raw)
		}
		out := make([]Hash256, len(list))
		for i, el := range list {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("[%d]: expected hex string, got %T", i, el)
			}
			h, err := ParseHash256(s)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = h
		}
		return out, nil
	case TypeObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", raw)
		}
		inner, err := ParseObject(m)
		if err != nil {
			return nil, err
		}
		inner.name = f
		return inner, nil
	case TypeArray:
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", raw)
		}
		out := make([]*Object, 0, len(list))
		for i, el := range list {
			wrapper, ok := el.(map[string]any)
			if !ok || len(wrapper) != 1 {
				return nil, fmt.Errorf("[%d]: expected single-key object", i)
			}
			for name, body := range wrapper {
				inner, ok := LookupField(name)
				if !ok || inner.Type != TypeObject {
					return nil, fmt.Errorf("[%d]: %q is not an object field", i, name)
				}
				v, err := parseFieldJSON(inner, body)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, v.(*Object))
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", f.Type)
}

func jsonUint(raw any, limit uint64) (uint64, error) {
	var n uint64
	switch val := raw.(type) {
	case int:
		if val < 0 {
			return 0, fmt.Errorf("negative value %d", val)
		}
		n = uint64(val)
	case int64:
		if val < 0 {
			return 0, fmt.Errorf("negative value %d", val)
		}
		n = uint64(val)
	case uint64:
		n = val
	case uint32:
		n = uint64(val)
	case float64:
		if val < 0 || val != math.Trunc(val) || val > float64(limit) {
			return 0, fmt.Errorf("value %v is not a valid unsigned integer", val)
		}
		n = uint64(val)
	case json.Number:
		parsed, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
	if n > limit {
		return 0, fmt.Errorf("value %d exceeds %d", n, limit)
	}
	return n, nil
}

func jsonInt(raw any) (int64, error) {
	switch val := raw.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("value %v is not an integer", val)
		}
		return int64(val), nil
	case json.Number:
		return val.Int64()
	}
	return 0, fmt.Errorf("expected integer, got %T", raw)
}
