package cpu

import (
	"fmt"
	"kernelc/device"
	"kernelc/meta"
	"kernelc/types"
	"math"
)

// record is a struct value; names keeps descriptor order
type record struct {
	desc   *meta.TypeDesc
	names  []string
	fields map[string]any
}

func (r *record) clone() *record {
	c := &record{desc: r.desc, names: r.names, fields: make(map[string]any, len(r.fields))}
	for k, v := range r.fields {
		c.fields[k] = copyValue(v)
	}
	return c
}

// copyValue gives struct values their by-value semantics
func copyValue(v any) any {
	if r, ok := v.(*record); ok {
		return r.clone()
	}
	return v
}

// pointer is an addressable location
type pointer interface {
	load() (any, error)
	store(v any) error
}

// cell is a variable slot
type cell struct {
	v any
}

func (c *cell) load() (any, error) { return c.v, nil }

func (c *cell) store(v any) error {
	c.v = copyValue(v)
	return nil
}

// element addresses buf[index]; an array argument is the element at 0
type element struct {
	buf   device.Buffer
	index int
}

func (e *element) load() (any, error) { return e.buf.Load(e.index) }

func (e *element) store(v any) error { return e.buf.Store(e.index, v) }

// member addresses one field of a record
type member struct {
	rec  *record
	name string
}

func (m *member) load() (any, error) {
	v, ok := m.rec.fields[m.name]
	if !ok {
		return nil, fmt.Errorf("no field %s", m.name)
	}
	return v, nil
}

// store writes a field, or each component of a swizzle such as xyz
func (m *member) store(v any) error {
	if _, ok := m.rec.fields[m.name]; ok {
		m.rec.fields[m.name] = copyValue(v)
		return nil
	}
	src, ok := v.(*record)
	if !ok || len(src.names) != len(m.name) {
		return fmt.Errorf("no field %s", m.name)
	}
	for i := 0; i < len(m.name); i++ {
		c := m.name[i : i+1]
		if _, ok := m.rec.fields[c]; !ok {
			return fmt.Errorf("no component %s in %s", c, m.name)
		}
		m.rec.fields[c] = src.fields[src.names[i]]
	}
	return nil
}

// zero returns the zero value of t
func (p *program) zero(t types.Type) (any, error) {
	switch t.Kind {
	case types.Primitive:
		return convert(int32(0), t)
	case types.Struct:
		return p.newRecord(t.Desc)
	default:
		return nil, nil
	}
}

func (p *program) newRecord(desc *meta.TypeDesc) (*record, error) {
	r := &record{desc: desc, fields: make(map[string]any, len(desc.Fields))}
	for _, f := range desc.Fields {
		t, err := types.Classify(p.store, f.Type)
		if err != nil {
			return nil, err
		}
		v, err := p.zero(t)
		if err != nil {
			return nil, err
		}
		name := f.TargetName()
		r.names = append(r.names, name)
		r.fields[name] = v
	}
	return r, nil
}

// ============================================================================
// CONVERSIONS
// ============================================================================

// convert casts v to primitive t. Non-primitive targets pass v through.
func convert(v any, t types.Type) (any, error) {
	if t.Kind != types.Primitive {
		return v, nil
	}
	switch t.Prim {
	case types.PrimVoid:
		return nil, nil
	case types.PrimHalf, types.PrimFloat:
		f, err := toFloat(v)
		return float32(f), err
	case types.PrimDouble:
		return toFloat(v)
	}

	var bits uint64
	switch x := v.(type) {
	case float32, float64:
		f, _ := toFloat(x)
		if t.IsUnsigned() {
			bits = uint64(f)
		} else {
			bits = uint64(int64(f))
		}
	default:
		i, err := toInt(v)
		if err != nil {
			return nil, err
		}
		bits = uint64(i)
	}
	switch t.Prim {
	case types.PrimChar:
		return int8(bits), nil
	case types.PrimUChar:
		return uint8(bits), nil
	case types.PrimShort:
		return int16(bits), nil
	case types.PrimUShort:
		return uint16(bits), nil
	case types.PrimInt:
		return int32(bits), nil
	case types.PrimUInt:
		return uint32(bits), nil
	case types.PrimLong:
		return int64(bits), nil
	default:
		return bits, nil
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case uint64:
		return float64(x), nil
	}
	i, err := toInt(v)
	return float64(i), err
}

// toInt sign- or zero-extends integers by their own type
func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		return int64(x), nil
	case int:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

// typeOf maps a runtime scalar back onto the target primitive it came from
func typeOf(v any) types.Type {
	switch v.(type) {
	case int8:
		return types.Int8
	case uint8:
		return types.UInt8
	case int16:
		return types.Int16
	case uint16:
		return types.UInt16
	case uint32:
		return types.UInt32
	case int64:
		return types.Int64
	case uint64:
		return types.UInt64
	case float32:
		return types.Float32
	case float64:
		return types.Float64
	default:
		return types.Int32
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case float32:
		return x != 0
	case float64:
		return x != 0
	case pointer:
		return true
	}
	i, err := toInt(v)
	return err == nil && i != 0
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// decode reads a bound scalar argument as primitive t
func decode(arg device.Arg, t types.Type) (any, error) {
	if arg.Buffer != nil {
		return nil, fmt.Errorf("buffer bound to %s parameter", t)
	}
	if want := t.Size(); arg.Size != want {
		return nil, fmt.Errorf("argument of %d bytes for %s parameter", arg.Size, t)
	}
	bits := arg.Bits()
	switch t.Prim {
	case types.PrimFloat:
		return math.Float32frombits(uint32(bits)), nil
	case types.PrimDouble:
		return math.Float64frombits(bits), nil
	case types.PrimHalf:
		return nil, fmt.Errorf("half arguments are not supported")
	}
	return convert(bits, t)
}
