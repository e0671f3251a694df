package ir

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TypeMapper converts a field value between its domain representation and
// the representation stored in the database column.
//
// OrderingPreserving reports whether comparing two storage values yields the
// same order as comparing the corresponding domain values. Range and pattern
// predicates, and sorting, may only be pushed down for preserving mappers.
type TypeMapper interface {
	ToStorage(v any) any
	ToDomain(v any) any
	OrderingPreserving() bool
}

// Field is a typed reference to an entity attribute backed by a column.
//
// Name is both the row key used by in-memory evaluation and the default
// column name used by SQL rendering. A nil Mapper means Identity.
type Field struct {
	Name   string
	Mapper TypeMapper
}

// NewField creates a field with the given mapper. A nil mapper means Identity.
func NewField(name string, mapper TypeMapper) Field {
	return Field{Name: name, Mapper: mapper}
}

// TypeMapper returns the field mapper, defaulting to Identity.
func (f Field) TypeMapper() TypeMapper {
	if f.Mapper == nil {
		return Identity
	}
	return f.Mapper
}

// OrderingPreserving reports whether the field's mapper preserves order.
func (f Field) OrderingPreserving() bool {
	return f.TypeMapper().OrderingPreserving()
}

// String returns the field name.
func (f Field) String() string {
	return f.Name
}

// MapperFunc adapts a pair of conversion functions to TypeMapper.
type MapperFunc struct {
	Name       string
	Storage    func(any) any
	Domain     func(any) any
	Preserving bool
}

func (m MapperFunc) ToStorage(v any) any {
	if v == nil || m.Storage == nil {
		return v
	}
	return m.Storage(v)
}

func (m MapperFunc) ToDomain(v any) any {
	if v == nil || m.Domain == nil {
		return v
	}
	return m.Domain(v)
}

func (m MapperFunc) OrderingPreserving() bool {
	return m.Preserving
}

func (m MapperFunc) String() string {
	return m.Name
}

// Identity stores domain values unchanged.
var Identity TypeMapper = identityMapper{}

// BoolToInt stores booleans as 0/1. false < true and 0 < 1, so order holds.
var BoolToInt TypeMapper = boolToIntMapper{}

// TimeToUnixMillis stores time.Time values as milliseconds since the epoch.
var TimeToUnixMillis TypeMapper = timeToUnixMillisMapper{}

// UUIDToString stores UUIDs in their canonical lowercase hex form.
// Hex digits sort in the same order as the bytes they encode.
var UUIDToString TypeMapper = uuidToStringMapper{}

// IntToString stores integers as decimal text. "10" < "9", so order is lost.
var IntToString TypeMapper = intToStringMapper{}

type identityMapper struct{}

func (identityMapper) ToStorage(v any) any      { return v }
func (identityMapper) ToDomain(v any) any       { return v }
func (identityMapper) OrderingPreserving() bool { return true }
func (identityMapper) String() string           { return "identity" }

type boolToIntMapper struct{}

func (boolToIntMapper) ToStorage(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func (boolToIntMapper) ToDomain(v any) any {
	n, ok := toInt64(v)
	if !ok {
		return v
	}
	return n != 0
}

func (boolToIntMapper) OrderingPreserving() bool { return true }
func (boolToIntMapper) String() string           { return "bool_to_int" }

type timeToUnixMillisMapper struct{}

func (timeToUnixMillisMapper) ToStorage(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UnixMilli()
	}
	return v
}

func (timeToUnixMillisMapper) ToDomain(v any) any {
	n, ok := toInt64(v)
	if !ok {
		return v
	}
	return time.UnixMilli(n).UTC()
}

func (timeToUnixMillisMapper) OrderingPreserving() bool { return true }
func (timeToUnixMillisMapper) String() string           { return "time_to_unix_millis" }

type uuidToStringMapper struct{}

func (uuidToStringMapper) ToStorage(v any) any {
	if id, ok := v.(uuid.UUID); ok {
		return id.String()
	}
	return v
}

func (uuidToStringMapper) ToDomain(v any) any {
	s, ok := asString(v)
	if !ok {
		return v
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return v
	}
	return id
}

func (uuidToStringMapper) OrderingPreserving() bool { return true }
func (uuidToStringMapper) String() string           { return "uuid_to_string" }

type intToStringMapper struct{}

func (intToStringMapper) ToStorage(v any) any {
	if n, ok := toInt64(v); ok {
		return strconv.FormatInt(n, 10)
	}
	return v
}

func (intToStringMapper) ToDomain(v any) any {
	s, ok := asString(v)
	if !ok {
		return v
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return v
	}
	return n
}

func (intToStringMapper) OrderingPreserving() bool { return false }
func (intToStringMapper) String() string           { return "int_to_string" }

// Mappers lists the built-in mappers by name.
var Mappers = map[string]TypeMapper{
	"identity":            Identity,
	"bool_to_int":         BoolToInt,
	"time_to_unix_millis": TimeToUnixMillis,
	"uuid_to_string":      UUIDToString,
	"int_to_string":       IntToString,
}

// LookupMapper returns the built-in mapper registered under name.
// The empty name resolves to Identity.
func LookupMapper(name string) (TypeMapper, error) {
	if name == "" {
		return Identity, nil
	}
	m, ok := Mappers[name]
	if !ok {
		return nil, fmt.Errorf("unknown type mapper %q", name)
	}
	return m, nil
}

func asString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return "", false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
