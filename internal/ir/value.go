package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/roach88/editions/internal/ident"
)

// IRValue is a sealed interface over the permitted payload value types.
// There is deliberately no float type.
type IRValue interface {
	irValue()
}

// IRNull represents JSON null. It only appears when decoding stored data;
// canonical marshaling rejects it.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString is a string value.
type IRString string

func (IRString) irValue() {}

// IRInt is an integer value.
type IRInt int64

func (IRInt) irValue() {}

// IRBool is a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject is a string-keyed map of values.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// Addr encodes an address as its hex IRString.
func Addr(a ident.Address) IRString {
	return IRString(a.Hex())
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// String returns the string at key.
func (obj IRObject) String(key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("missing %q", key)
	}
	s, ok := v.(IRString)
	if !ok {
		return "", fmt.Errorf("%q: expected string, got %T", key, v)
	}
	return string(s), nil
}

// StringOr returns the string at key, or def when the key is absent.
func (obj IRObject) StringOr(key, def string) (string, error) {
	if _, ok := obj[key]; !ok {
		return def, nil
	}
	return obj.String(key)
}

// Int returns the integer at key.
func (obj IRObject) Int(key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	n, ok := v.(IRInt)
	if !ok {
		return 0, fmt.Errorf("%q: expected int, got %T", key, v)
	}
	return int64(n), nil
}

// IntOr returns the integer at key, or def when the key is absent.
func (obj IRObject) IntOr(key string, def int64) (int64, error) {
	if _, ok := obj[key]; !ok {
		return def, nil
	}
	return obj.Int(key)
}

// BoolOr returns the boolean at key, or def when the key is absent.
func (obj IRObject) BoolOr(key string, def bool) (bool, error) {
	v, ok := obj[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(IRBool)
	if !ok {
		return false, fmt.Errorf("%q: expected bool, got %T", key, v)
	}
	return bool(b), nil
}

// Address returns the hex address at key.
func (obj IRObject) Address(key string) (ident.Address, error) {
	s, err := obj.String(key)
	if err != nil {
		return ident.Zero, err
	}
	a, err := ident.Parse(s)
	if err != nil {
		return ident.Zero, fmt.Errorf("%q: %w", key, err)
	}
	return a, nil
}

// AddressOr returns the hex address at key, or def when the key is absent.
func (obj IRObject) AddressOr(key string, def ident.Address) (ident.Address, error) {
	if _, ok := obj[key]; !ok {
		return def, nil
	}
	return obj.Address(key)
}

// Object returns the nested object at key (empty when absent).
func (obj IRObject) Object(key string) (IRObject, error) {
	v, ok := obj[key]
	if !ok {
		return IRObject{}, nil
	}
	o, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("%q: expected object, got %T", key, v)
	}
	return o, nil
}

// UnmarshalJSON decodes an object, rejecting floats.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// MarshalJSON encodes the object with sorted keys. Not canonical for strings;
// use MarshalCanonical for anything that is hashed or persisted.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

func decodeValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// FromAny converts decoded JSON/YAML data into an IRValue.
// nil becomes IRNull; floats with a fractional part are rejected.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		return IRInt(int64(val)), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not allowed: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return IRInt(n), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not allowed: %v", val)
		}
		return IRInt(int64(val)), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ObjectFromAny converts a decoded map into an IRObject.
func ObjectFromAny(m map[string]any) (IRObject, error) {
	if m == nil {
		return IRObject{}, nil
	}
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(IRObject), nil
}

// ToAny converts an IRValue into plain Go values (for JSON/YAML output).
func ToAny(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = ToAny(e)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = ToAny(e)
		}
		return out
	default:
		return nil
	}
}
