package envconf

import (
	"encoding"
	"reflect"
	"strconv"
	"time"
)

// Parser converts the textual form of a value into V.
type Parser[V any] func(raw string) (V, error)

// ParseString returns raw unchanged.
func ParseString(raw string) (string, error) {
	return raw, nil
}

// ParseBool accepts the forms understood by strconv.ParseBool.
func ParseBool(raw string) (bool, error) {
	return strconv.ParseBool(raw)
}

// ParseStringAs converts raw to a string-based type such as a named enum.
func ParseStringAs[T ~string](raw string) (T, error) {
	return T(raw), nil
}

// ParseBoolAs is ParseBool for bool-based types.
func ParseBoolAs[T ~bool](raw string) (T, error) {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, err
	}
	return T(v), nil
}

// ParseInt parses a base 10 signed integer that fits into T.
func ParseInt[T ~int | ~int8 | ~int16 | ~int32 | ~int64](raw string) (T, error) {
	v, err := strconv.ParseInt(raw, 10, reflect.TypeOf((*T)(nil)).Elem().Bits())
	if err != nil {
		return 0, err
	}
	return T(v), nil
}

// ParseUint parses a base 10 unsigned integer that fits into T.
func ParseUint[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](raw string) (T, error) {
	v, err := strconv.ParseUint(raw, 10, reflect.TypeOf((*T)(nil)).Elem().Bits())
	if err != nil {
		return 0, err
	}
	return T(v), nil
}

// ParseFloat parses a floating point number with the precision of T.
func ParseFloat[T ~float32 | ~float64](raw string) (T, error) {
	v, err := strconv.ParseFloat(raw, reflect.TypeOf((*T)(nil)).Elem().Bits())
	if err != nil {
		return 0, err
	}
	return T(v), nil
}

// ParseDuration accepts the forms understood by time.ParseDuration.
func ParseDuration(raw string) (time.Duration, error) {
	return time.ParseDuration(raw)
}

// ParseText parses any type whose pointer implements encoding.TextUnmarshaler.
func ParseText[T any, P interface {
	*T
	encoding.TextUnmarshaler
}](raw string) (T, error) {
	var v T
	if err := P(&v).UnmarshalText([]byte(raw)); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func typeName[V any]() string {
	return reflect.TypeOf((*V)(nil)).Elem().String()
}
