package stream

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrIncomparable is returned when two values have no defined order.
var ErrIncomparable = errors.New("values are not comparable")

// Compare orders two non-null domain values.
//
// Integers and floats compare numerically across widths. Strings compare
// bytewise, which matches SQLite's BINARY collation. Booleans order false
// before true. time.Time and uuid.UUID use their natural order.
func Compare(a, b any) (int, error) {
	if an, aok := number(a); aok {
		if bn, bok := number(b); bok {
			return an.compare(bn), nil
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := text(b); ok {
			return strings.Compare(av, bv), nil
		}
	case []byte:
		if bv, ok := text(b); ok {
			return strings.Compare(string(av), bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return compareBool(av, bv), nil
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), nil
		}
	case uuid.UUID:
		if bv, ok := b.(uuid.UUID); ok {
			return bytes.Compare(av[:], bv[:]), nil
		}
	}
	return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
}

// Equal reports whether two non-null values are equal. Values without a
// defined order are never equal.
func Equal(a, b any) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func text(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// num holds an integer or a float; isFloat selects which.
type num struct {
	i       int64
	f       float64
	isFloat bool
}

func (n num) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func (n num) compare(o num) int {
	if !n.isFloat && !o.isFloat {
		switch {
		case n.i < o.i:
			return -1
		case n.i > o.i:
			return 1
		default:
			return 0
		}
	}
	a, b := n.float(), o.float()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func number(v any) (num, bool) {
	switch n := v.(type) {
	case int:
		return num{i: int64(n)}, true
	case int8:
		return num{i: int64(n)}, true
	case int16:
		return num{i: int64(n)}, true
	case int32:
		return num{i: int64(n)}, true
	case int64:
		return num{i: n}, true
	case uint8:
		return num{i: int64(n)}, true
	case uint16:
		return num{i: int64(n)}, true
	case uint32:
		return num{i: int64(n)}, true
	case uint:
		return num{i: int64(n)}, true
	case uint64:
		return num{i: int64(n)}, true
	case float32:
		return num{f: float64(n), isFloat: true}, true
	case float64:
		return num{f: n, isFloat: true}, true
	default:
		return num{}, false
	}
}
