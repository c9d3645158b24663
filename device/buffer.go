package device

import "fmt"

// Buffer is host memory visible to a kernel as a pointer argument
type Buffer interface {
	Len() int
	Load(i int) (any, error)
	Store(i int, v any) error
}

// Scalar is the element set a Slice buffer can hold
type Scalar interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// Slice is a buffer over a Go slice. Stores convert numerically to T.
type Slice[T Scalar] struct {
	Data []T
}

// NewBuffer wraps data without copying it
func NewBuffer[T Scalar](data []T) *Slice[T] {
	return &Slice[T]{Data: data}
}

func (s *Slice[T]) Len() int { return len(s.Data) }

func (s *Slice[T]) Load(i int) (any, error) {
	if i < 0 || i >= len(s.Data) {
		return nil, fmt.Errorf("buffer index %d out of range [0,%d)", i, len(s.Data))
	}
	return s.Data[i], nil
}

func (s *Slice[T]) Store(i int, v any) error {
	if i < 0 || i >= len(s.Data) {
		return fmt.Errorf("buffer index %d out of range [0,%d)", i, len(s.Data))
	}
	x, err := convert[T](v)
	if err != nil {
		return err
	}
	s.Data[i] = x
	return nil
}

func convert[T Scalar](v any) (T, error) {
	switch x := v.(type) {
	case int8:
		return T(x), nil
	case uint8:
		return T(x), nil
	case int16:
		return T(x), nil
	case uint16:
		return T(x), nil
	case int32:
		return T(x), nil
	case uint32:
		return T(x), nil
	case int64:
		return T(x), nil
	case uint64:
		return T(x), nil
	case float32:
		return T(x), nil
	case float64:
		return T(x), nil
	case int:
		return T(x), nil
	}
	var zero T
	return zero, fmt.Errorf("cannot store %T in %T buffer", v, zero)
}
