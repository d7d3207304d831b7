package dqsi

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldKind identifies the runtime type of a raw KDE value.
type FieldKind int

const (
	KindNull FieldKind = iota
	KindBool
	KindNumber
	KindString
)

func (k FieldKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// FieldValue is a small discriminated union over the value types that
// arrive in decoded alert/case records. Scoring heuristics switch on
// Kind instead of doing ad hoc type assertions at every call site.
type FieldValue struct {
	kind FieldKind
	b    bool
	n    float64
	s    string
}

// NullValue returns the null field value.
func NullValue() FieldValue {
	return FieldValue{kind: KindNull}
}

// FieldValueOf converts a decoded JSON value (or any Go scalar) into a
// FieldValue. Unrecognized types are stringified so they still get scored
// rather than silently dropped.
func FieldValueOf(v interface{}) FieldValue {
	switch t := v.(type) {
	case nil:
		return FieldValue{kind: KindNull}
	case bool:
		return FieldValue{kind: KindBool, b: t}
	case float64:
		return FieldValue{kind: KindNumber, n: t}
	case float32:
		return FieldValue{kind: KindNumber, n: float64(t)}
	case int:
		return FieldValue{kind: KindNumber, n: float64(t)}
	case int32:
		return FieldValue{kind: KindNumber, n: float64(t)}
	case int64:
		return FieldValue{kind: KindNumber, n: float64(t)}
	case uint:
		return FieldValue{kind: KindNumber, n: float64(t)}
	case uint64:
		return FieldValue{kind: KindNumber, n: float64(t)}
	case string:
		return FieldValue{kind: KindString, s: t}
	case decimal.Decimal:
		f, _ := t.Float64()
		return FieldValue{kind: KindNumber, n: f}
	case FieldValue:
		return t
	default:
		return FieldValue{kind: KindString, s: fmt.Sprintf("%v", t)}
	}
}

// Kind returns the discriminant.
func (v FieldValue) Kind() FieldKind { return v.kind }

// IsNull reports whether the value is absent.
func (v FieldValue) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the value is null or a blank string.
func (v FieldValue) IsEmpty() bool {
	if v.kind == KindNull {
		return true
	}
	return v.kind == KindString && strings.TrimSpace(v.s) == ""
}

// Bool returns the boolean payload. Only meaningful when Kind is KindBool.
func (v FieldValue) Bool() bool { return v.b }

// Float returns the numeric payload. Only meaningful when Kind is KindNumber.
func (v FieldValue) Float() float64 { return v.n }

// String renders the value as text. Numbers use a minimal decimal form so
// "100.5" and 100.5 compare equal in string space.
func (v FieldValue) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return decimal.NewFromFloat(v.n).String()
	default:
		return v.s
	}
}

// Number attempts a numeric interpretation of the value. Numeric strings
// parse through decimal so currency-style text survives the trip.
func (v FieldValue) Number() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return decimal.NewFromFloat(v.n), true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.s))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case KindBool:
		if v.b {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

// Len returns the rune length of the string rendering. Used by the
// shape heuristics for identifier and text fields.
func (v FieldValue) Len() int {
	return len([]rune(v.String()))
}
