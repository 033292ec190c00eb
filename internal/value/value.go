package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Kind 标识 Value 当前承载的变体。
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindAbsent  Kind = "absent"
)

// absentText 是 absent 变体落盘时写入的字面量。
const absentText = "undefined"

// Value 是不可变的标签联合体，零值等价于 Absent()。
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	obj  any
}

// String 构造字符串变体。
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number 构造数值变体，NaN/Inf 无法往返文本表示，因此被拒绝。
func Number(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("number %v is not finite", f)
	}
	return Value{kind: KindNumber, num: f}, nil
}

// Bool 构造布尔变体。
func Bool(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

// Absent 表示路径没有对应内容（磁盘文件不存在）。
func Absent() Value {
	return Value{kind: KindAbsent}
}

// Object 通过一次 JSON 往返把 map/slice/struct 规范化为 map[string]any 或 []any。
func Object(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("encode object: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return Value{}, fmt.Errorf("decode object: %w", err)
	}
	switch normalized.(type) {
	case map[string]any, []any:
		return Value{kind: KindObject, obj: normalized}, nil
	default:
		return Value{}, fmt.Errorf("%T is not a JSON object or array", v)
	}
}

// Of 按运行时形状推断 Kind，供持有无类型数据的调用方（例如 HTTP 请求体）使用。
func Of(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("parse number %q: %w", t, err)
		}
		return Number(f)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float())
	}
	return Object(v)
}

// Kind 返回变体标签；零值 Value 视为 absent。
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindAbsent
	}
	return v.kind
}

// IsAbsent reports whether v is the absent variant.
func (v Value) IsAbsent() bool {
	return v.Kind() == KindAbsent
}

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Boolean returns the boolean payload and whether v is a boolean.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// Interface 返回 Go 视角的载荷：string、float64、bool、map[string]any/[]any 或 nil。
func (v Value) Interface() any {
	switch v.Kind() {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.b
	case KindObject:
		return v.obj
	default:
		return nil
	}
}

// Equal 比较 Kind 与载荷，对象按 JSON 语义做深比较（与键顺序无关）。
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBoolean:
		return v.b == other.b
	case KindObject:
		return reflect.DeepEqual(v.obj, other.obj)
	default:
		return true
	}
}

// Encode 把 Value 序列化为落盘字节，是 Infer 的逆过程。
func (v Value) Encode() []byte {
	switch v.Kind() {
	case KindString:
		return []byte(v.str)
	case KindNumber:
		return []byte(FormatNumber(v.num))
	case KindBoolean:
		return []byte(strconv.FormatBool(v.b))
	case KindObject:
		// obj 已在 Object 中规范化，Marshal 不会失败。
		raw, _ := json.Marshal(v.obj)
		return raw
	default:
		return []byte(absentText)
	}
}

// MarshalJSON 让 Value 可直接出现在 HTTP 响应中，absent 编码为 null。
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FormatNumber 输出最短的可往返十进制文本，仅在极小或极大数值时使用指数形式。
func FormatNumber(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Infer 按顺序尝试 JSON 对象/数组、数值、字符串，首个匹配生效。
// 解析失败只会落入下一分支，从不向调用方返回错误。
func Infer(content []byte) Value {
	if obj, ok := parseStructured(content); ok {
		return Value{kind: KindObject, obj: obj}
	}
	if num, ok := parseNumber(content); ok {
		return Value{kind: KindNumber, num: num}
	}
	return String(string(content))
}

func parseStructured(content []byte) (any, bool) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func parseNumber(content []byte) (float64, bool) {
	trimmed := string(bytes.TrimSpace(content))
	if trimmed == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}
	return num, true
}
