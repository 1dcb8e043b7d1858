package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	objectEndMarker byte = 0xE1
	arrayEndMarker  byte = 0xF1

	amountPositive uint64 = 0x4000000000000000
	amountIOU      uint64 = 0x8000000000000000
	amountMask     uint64 = 0x3FFFFFFFFFFFFFFF

	maxVLLength = 918744
)

// Bytes returns the canonical binary serialization of every field.
func (o *Object) Bytes() []byte {
	var buf bytes.Buffer
	o.encode(&buf, false)
	return buf.Bytes()
}

// SigningBytes returns the serialization covered by a signature: every field
// except TxnSignature.
func (o *Object) SigningBytes() []byte {
	var buf bytes.Buffer
	o.encode(&buf, true)
	return buf.Bytes()
}

func (o *Object) encode(buf *bytes.Buffer, signing bool) {
	for _, f := range o.Fields() {
		if signing && f == FieldTxnSignature {
			continue
		}
		writeHeader(buf, f)
		writeValue(buf, f, o.fields[f], signing)
	}
}

func writeHeader(buf *bytes.Buffer, f *SField) {
	t, c := byte(f.Type), f.Code
	switch {
	case t < 16 && c < 16:
		buf.WriteByte(t<<4 | c)
	case t < 16:
		buf.WriteByte(t << 4)
		buf.WriteByte(c)
	case c < 16:
		buf.WriteByte(c)
		buf.WriteByte(t)
	default:
		buf.WriteByte(0)
		buf.WriteByte(t)
		buf.WriteByte(c)
	}
}

func writeValue(buf *bytes.Buffer, f *SField, v any, signing bool) {
	switch val := v.(type) {
	case uint8:
		buf.WriteByte(val)
	case uint16:
		_ = binary.Write(buf, binary.BigEndian, val)
	case uint32:
		_ = binary.Write(buf, binary.BigEndian, val)
	case uint64:
		_ = binary.Write(buf, binary.BigEndian, val)
	case Hash256:
		buf.Write(val[:])
	case Drops:
		var raw uint64
		if val >= 0 {
			raw = uint64(val) | amountPositive
		} else {
			raw = uint64(-val)
		}
		_ = binary.Write(buf, binary.BigEndian, raw)
	case []byte:
		writeVL(buf, val)
	case AccountID:
		writeVL(buf, val[:])
	case []Hash256:
		data := make([]byte, 0, 32*len(val))
		for _, h := range val {
			data = append(data, h[:]...)
		}
		writeVL(buf, data)
	case *Object:
		val.encode(buf, signing)
		buf.WriteByte(objectEndMarker)
	case []*Object:
		for _, el := range val {
			name := el.name
			if name == nil {
				panic(fmt.Sprintf("protocol: array %s element has no object name", f.Name))
			}
			writeHeader(buf, name)
			el.encode(buf, signing)
			buf.WriteByte(objectEndMarker)
		}
		buf.WriteByte(arrayEndMarker)
	default:
		panic(fmt.Sprintf("protocol: cannot serialize %T for %s", v, f.Name))
	}
}

func writeVL(buf *bytes.Buffer, data []byte) {
	n := len(data)
	switch {
	case n <= 192:
		buf.WriteByte(byte(n))
	case n <= 12480:
		n -= 193
		buf.WriteByte(byte(193 + n>>8))
		buf.WriteByte(byte(n))
	case n <= maxVLLength:
		n -= 12481
		buf.WriteByte(byte(241 + n>>16))
		buf.WriteByte(byte(n >> 8))
		buf.WriteByte(byte(n))
	default:
		panic(fmt.Sprintf("protocol: variable-length field of %d bytes exceeds %d", n, maxVLLength))
	}
	buf.Write(data)
}

// DecodeObject parses a top-level serialized object. The result carries no
// template; callers bind one with ApplyTemplate.
func DecodeObject(data []byte) (*Object, error) {
	d := &decoder{data: data}
	o, err := d.object(false)
	if err != nil {
		return nil, err
	}
	return o, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) eof() bool { return d.pos >= len(d.data) }

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, encodingError("unexpected end of data at offset %d", d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// header returns the field at the cursor, or a non-zero marker when an
// object or array end marker was read.
func (d *decoder) header() (field *SField, marker byte, err error) {
	b, err := d.readByte()
	if err != nil {
		return nil, 0, err
	}
	if b == objectEndMarker || b == arrayEndMarker {
		return nil, b, nil
	}
	t, c := b>>4, b&0x0F
	if t == 0 {
		if t, err = d.readByte(); err != nil {
			return nil, 0, err
		}
	}
	if c == 0 {
		if c, err = d.readByte(); err != nil {
			return nil, 0, err
		}
	}
	f, ok := lookupFieldID(FieldType(t), c)
	if !ok {
		return nil, 0, encodingError("unknown field type=%d code=%d at offset %d", t, c, d.pos)
	}
	return f, 0, nil
}

func (d *decoder) object(inner bool) (*Object, error) {
	o := NewObject()
	var last *SField
	for {
		if !inner && d.eof() {
			return o, nil
		}
		f, marker, err := d.header()
		if err != nil {
			return nil, err
		}
		if marker != 0 {
			if inner && marker == objectEndMarker {
				return o, nil
			}
			return nil, encodingError("unexpected end marker 0x%02X at offset %d", marker, d.pos-1)
		}
		if last != nil && f.ordinal() <= last.ordinal() {
			return nil, encodingError("field %s out of canonical order", f.Name)
		}
		last = f
		v, err := d.value(f)
		if err != nil {
			return nil, err
		}
		o.fields[f] = v
	}
}

func (d *decoder) value(f *SField) (any, error) {
	switch f.Type {
	case TypeUInt8:
		return d.readByte()
	case TypeUInt16:
		b, err := d.take(2)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint16(b), nil
	case TypeUInt32:
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint32(b), nil
	case TypeUInt64:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.Uint64(b), nil
	case TypeHash256:
		b, err := d.take(32)
		if err != nil {
			return nil, err
		}
		var h Hash256
		copy(h[:], b)
		return h, nil
	case TypeAmount:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		raw := binary.BigEndian.Uint64(b)
		if raw&amountIOU != 0 {
			return nil, encodingError("issued amounts are not supported (field %s)", f.Name)
		}
		v := Drops(raw & amountMask)
		if raw&amountPositive == 0 {
			v = -v
		}
		return v, nil
	case TypeBlob:
		b, err := d.vl()
		if err != nil {
			return nil, err
		}
		return bytes.Clone(b), nil
	case TypeAccount:
		b, err := d.vl()
		if err != nil {
			return nil, err
		}
		if len(b) != 20 {
			return nil, encodingError("account field %s has %d bytes", f.Name, len(b))
		}
		var a AccountID
		copy(a[:], b)
		return a, nil
	case TypeVector256:
		b, err := d.vl()
		if err != nil {
			return nil, err
		}
		if len(b)%32 != 0 {
			return nil, encodingError("vector256 field %s has %d bytes", f.Name, len(b))
		}
		out := make([]Hash256, len(b)/32)
		for i := range out {
			copy(out[i][:], b[i*32:])
		}
		return out, nil
	case TypeObject:
		inner, err := d.object(true)
		if err != nil {
			return nil, err
		}
		inner.name = f
		return inner, nil
	case TypeArray:
		return d.array()
	}
	return nil, encodingError("unsupported field type %s", f.Type)
}

func (d *decoder) array() ([]*Object, error) {
	out := []*Object{}
	for {
		f, marker, err := d.header()
		if err != nil {
			return nil, err
		}
		if marker == arrayEndMarker {
			return out, nil
		}
		if marker != 0 || f.Type != TypeObject {
			return nil, encodingError("array element is not an object at offset %d", d.pos)
		}
		el, err := d.object(true)
		if err != nil {
			return nil, err
		}
		el.name = f
		out = append(out, el)
	}
}

func (d *decoder) vl() ([]byte, error) {
	b1, err := d.readByte()
	if err != nil {
		return nil, err
	}
	var n int
	switch {
	case b1 <= 192:
		n = int(b1)
	case b1 <= 240:
		b2, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n = 193 + (int(b1)-193)*256 + int(b2)
	case b1 <= 254:
		rest, err := d.take(2)
		if err != nil {
			return nil, err
		}
		n = 12481 + (int(b1)-241)*65536 + int(rest[0])*256 + int(rest[1])
	default:
		return nil, encodingError("invalid length prefix 0x%02X", b1)
	}
	return d.take(n)
}
