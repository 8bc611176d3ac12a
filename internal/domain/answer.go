package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindNone valueKind = iota
	kindText
	kindNumber
	kindList
	kindOther
)

// AnswerValue holds what a respondent entered for one question: a string, a
// number, a list of strings, or nothing. Payloads of any other JSON shape are
// preserved verbatim so a stored response round-trips unchanged, but they
// never count as text, rating or choice input.
type AnswerValue struct {
	kind valueKind
	text string
	num  float64
	list []string
	raw  json.RawMessage
}

// TextValue wraps a string answer.
func TextValue(s string) AnswerValue { return AnswerValue{kind: kindText, text: s} }

// NumberValue wraps a numeric answer.
func NumberValue(n float64) AnswerValue { return AnswerValue{kind: kindNumber, num: n} }

// ListValue wraps a multi-select answer.
func ListValue(items ...string) AnswerValue {
	return AnswerValue{kind: kindList, list: append([]string(nil), items...)}
}

// NewAnswerValue converts a decoded Go value into an AnswerValue. Unknown
// shapes are kept as raw JSON.
func NewAnswerValue(v any) AnswerValue {
	switch x := v.(type) {
	case nil:
		return AnswerValue{}
	case AnswerValue:
		return x
	case string:
		return TextValue(x)
	case float64:
		return NumberValue(x)
	case float32:
		return NumberValue(float64(x))
	case int:
		return NumberValue(float64(x))
	case int32:
		return NumberValue(float64(x))
	case int64:
		return NumberValue(float64(x))
	case []string:
		return ListValue(x...)
	case []any:
		items := make([]string, 0, len(x))
		for _, it := range x {
			s, ok := it.(string)
			if !ok {
				return otherValue(v)
			}
			items = append(items, s)
		}
		return ListValue(items...)
	}
	return otherValue(v)
}

func otherValue(v any) AnswerValue {
	b, err := json.Marshal(v)
	if err != nil {
		return AnswerValue{}
	}
	return AnswerValue{kind: kindOther, raw: b}
}

// IsEmpty reports whether the answer counts as "not answered": absent, null,
// the empty string, or an empty list.
func (v AnswerValue) IsEmpty() bool {
	switch v.kind {
	case kindNone:
		return true
	case kindText:
		return v.text == ""
	case kindList:
		return len(v.list) == 0
	}
	return false
}

// Text returns the string payload.
func (v AnswerValue) Text() (string, bool) { return v.text, v.kind == kindText }

// Number returns the numeric payload.
func (v AnswerValue) Number() (float64, bool) { return v.num, v.kind == kindNumber }

// List returns the multi-select payload.
func (v AnswerValue) List() ([]string, bool) { return v.list, v.kind == kindList }

// Choice returns the selected option of a choice answer: the string itself,
// or the first element of a list.
func (v AnswerValue) Choice() (string, bool) {
	switch v.kind {
	case kindText:
		return v.text, true
	case kindList:
		if len(v.list) > 0 {
			return v.list[0], true
		}
	}
	return "", false
}

// Display renders the answer for exports: lists are joined with ", ".
func (v AnswerValue) Display() string {
	switch v.kind {
	case kindText:
		return v.text
	case kindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindList:
		return strings.Join(v.list, ", ")
	case kindOther:
		return string(v.raw)
	}
	return ""
}

// Interface returns the answer as a plain Go value (nil, string, float64,
// []string or the decoded raw JSON).
func (v AnswerValue) Interface() any {
	switch v.kind {
	case kindText:
		return v.text
	case kindNumber:
		return v.num
	case kindList:
		return append([]string(nil), v.list...)
	case kindOther:
		var out any
		_ = json.Unmarshal(v.raw, &out)
		return out
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindText:
		return json.Marshal(v.text)
	case kindNumber:
		return json.Marshal(v.num)
	case kindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case kindOther:
		return v.raw, nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *AnswerValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	out := NewAnswerValue(decoded)
	if out.kind == kindOther {
		out.raw = append(json.RawMessage(nil), b...)
	}
	*v = out
	return nil
}
