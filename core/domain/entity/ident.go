package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

var ErrInvalidIdent = errors.New("identifier must be a string or a number")

// Ident 客户端传来的标识符（player_id、team）
// 可能是 JSON 字符串也可能是数字，序列化时按收到的原样回写
type Ident struct {
	raw string // JSON 字面量，为空表示未设置
}

// StringIdent 空字符串视为未设置
func StringIdent(s string) Ident {
	if s == "" {
		return Ident{}
	}
	b, _ := json.Marshal(s)
	return Ident{raw: string(b)}
}

func NumberIdent(n int64) Ident {
	return Ident{raw: strconv.FormatInt(n, 10)}
}

// IsZero 未设置或者为 null
func (id Ident) IsZero() bool {
	return id.raw == "" || id.raw == "null"
}

// Key 比较用的规范形式，字符串去掉引号，所以 "1" 和 1 视为同一个标识
func (id Ident) Key() string {
	if id.IsZero() {
		return ""
	}
	if id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(id.raw), &s); err == nil {
			return s
		}
	}
	return id.raw
}

func (id Ident) String() string {
	return id.Key()
}

// Equal 按 Key 比较，任一方未设置都不相等
func (id Ident) Equal(other Ident) bool {
	return !id.IsZero() && !other.IsZero() && id.Key() == other.Key()
}

func (id Ident) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return []byte(id.raw), nil
}

func (id *Ident) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		id.raw = ""
		return nil
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			id.raw = ""
			return nil
		}
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
	default:
		return ErrInvalidIdent
	}
	id.raw = string(data)
	return nil
}
