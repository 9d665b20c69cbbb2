package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"exohabit/planet"
)

// Form 看板表单的当前内容，作为控制器的输入来源
type Form struct {
	mu     sync.RWMutex
	values planet.RawValues
}

// NewForm 创建空表单
func NewForm() *Form {
	return &Form{values: planet.RawValues{}}
}

// Values 返回表单内容的副本
func (f *Form) Values() planet.RawValues {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(planet.RawValues, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Set 用提交的内容替换表单
func (f *Form) Set(values planet.RawValues) {
	next := make(planet.RawValues, len(values))
	for k, v := range values {
		next[k] = v
	}
	f.mu.Lock()
	f.values = next
	f.mu.Unlock()
}

// decodeForm 读取请求体中的六个字段，值可以是字符串或数字
func decodeForm(body []byte) (planet.RawValues, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("form must be a JSON object: %w", err)
	}
	if raw == nil {
		return nil, errors.New("form must be a JSON object")
	}

	values := make(planet.RawValues, len(planet.Fields))
	for _, field := range planet.Fields {
		v, ok := raw[string(field)]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		switch {
		case len(v) == 0 || bytes.Equal(v, []byte("null")):
			values[field] = ""
		case v[0] == '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			values[field] = s
		default:
			var n json.Number
			if err := json.Unmarshal(v, &n); err != nil {
				return nil, fmt.Errorf("field %s must be a string or a number", field)
			}
			values[field] = n.String()
		}
	}
	return values, nil
}
