package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	dErrors "draftline/pkg/domain-errors"
)

// ValueKind enumerates the closed set of field value kinds. Staged rows
// and lineage entries only ever carry these kinds, which keeps ledger
// serialization deterministic.
type ValueKind string

const (
	KindString  ValueKind = "string"
	KindInt     ValueKind = "int"
	KindDecimal ValueKind = "decimal"
	KindDate    ValueKind = "date"
	KindBool    ValueKind = "bool"
	KindNull    ValueKind = "null"
)

const dateLayout = "2006-01-02"

// FieldValue is a tagged union over the supported value kinds. The zero
// value is the null value.
type FieldValue struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	date time.Time
}

func StringValue(s string) FieldValue   { return FieldValue{kind: KindString, str: s} }
func IntValue(i int64) FieldValue       { return FieldValue{kind: KindInt, num: float64(i)} }
func DecimalValue(f float64) FieldValue { return FieldValue{kind: KindDecimal, num: f} }
func BoolValue(b bool) FieldValue       { return FieldValue{kind: KindBool, b: b} }
func NullValue() FieldValue             { return FieldValue{kind: KindNull} }

// DateValue truncates to day granularity; times never appear in prospect
// data and keeping them out makes hashes stable across timezones.
func DateValue(t time.Time) FieldValue {
	return FieldValue{kind: KindDate, date: t.UTC().Truncate(24 * time.Hour)}
}

func (v FieldValue) Kind() ValueKind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

func (v FieldValue) IsNull() bool { return v.Kind() == KindNull }

func (v FieldValue) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v FieldValue) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }

func (v FieldValue) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return int64(v.num), true
}

func (v FieldValue) AsDate() (time.Time, bool) { return v.date, v.kind == KindDate }

// AsFloat returns the numeric value for int and decimal kinds.
func (v FieldValue) AsFloat() (float64, bool) {
	if v.kind == KindInt || v.kind == KindDecimal {
		return v.num, true
	}
	return 0, false
}

// Equal compares kind and payload. Int and decimal values of equal
// magnitude compare equal so cross-source numeric comparison does not
// depend on which representation a scraper happened to produce.
func (v FieldValue) Equal(o FieldValue) bool {
	vk, ok := v.Kind(), o.Kind()
	if (vk == KindInt || vk == KindDecimal) && (ok == KindInt || ok == KindDecimal) {
		return v.num == o.num
	}
	if vk != ok {
		return false
	}
	switch vk {
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.date.Equal(o.date)
	case KindNull:
		return true
	}
	return false
}

// String renders the value for logic strings and conflict notes.
func (v FieldValue) String() string {
	switch v.Kind() {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(int64(v.num), 10)
	case KindDecimal:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.date.Format(dateLayout)
	default:
		return "null"
	}
}

// jsonValue is the stable wire form: explicit kind tag plus a kind-typed
// value. Field order is fixed by the struct so encoding/json output is
// byte-stable for hashing.
type jsonValue struct {
	Kind  ValueKind `json:"kind"`
	Value string    `json:"value"`
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonValue{Kind: v.Kind(), Value: v.String()})
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	parsed, err := ParseFieldValue(jv.Kind, jv.Value)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseFieldValue reconstructs a FieldValue from its wire form.
func ParseFieldValue(kind ValueKind, raw string) (FieldValue, error) {
	switch kind {
	case KindString:
		return StringValue(raw), nil
	case KindInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return FieldValue{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid int value %q", raw)
		}
		return IntValue(i), nil
	case KindDecimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return FieldValue{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid decimal value %q", raw)
		}
		return DecimalValue(f), nil
	case KindDate:
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return FieldValue{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid date value %q", raw)
		}
		return DateValue(t), nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return FieldValue{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid bool value %q", raw)
		}
		return BoolValue(b), nil
	case KindNull, "":
		return NullValue(), nil
	default:
		return FieldValue{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown value kind %q", kind)
	}
}

// FromAny converts a decoded-JSON scalar into a FieldValue. Acquisition
// payloads arrive as map[string]any; this is the single place the open
// dynamic type is narrowed to the closed union.
func FromAny(raw any) (FieldValue, error) {
	switch t := raw.(type) {
	case nil:
		return NullValue(), nil
	case string:
		if d, err := time.Parse(dateLayout, t); err == nil {
			return DateValue(d), nil
		}
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return IntValue(int64(t)), nil
		}
		return DecimalValue(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return FieldValue{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid number %q", t.String())
		}
		return DecimalValue(f), nil
	default:
		return FieldValue{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported value type %T", raw))
	}
}
