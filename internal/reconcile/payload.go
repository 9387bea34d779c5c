package reconcile

import (
	"bytes"
	"encoding/json"
	"math"
)

// payload is an inbound event body whose fields have not been trusted yet.
type payload map[string]json.RawMessage

// decode accepts only a JSON object.
func decode(raw json.RawMessage) (payload, bool) {
	if kindOf(raw) != '{' {
		return nil, false
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return p, true
}

// kindOf returns the first significant byte of a JSON value: '{', '[', '"',
// 'n' (null), 't'/'f' (bool), '0' for numbers and 0 for empty input.
func kindOf(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	switch c := raw[0]; c {
	case '{', '[', '"', 'n', 't', 'f':
		return c
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return '0'
	default:
		return 0
	}
}

func (p payload) has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p payload) isNull(key string) bool {
	v, ok := p[key]
	return ok && kindOf(v) == 'n'
}

func (p payload) str(key string) (string, bool) {
	v, ok := p[key]
	if !ok || kindOf(v) != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// nonEmpty is str that also rejects "".
func (p payload) nonEmpty(key string) (string, bool) {
	s, ok := p.str(key)
	return s, ok && s != ""
}

func (p payload) num(key string) (float64, bool) {
	v, ok := p[key]
	if !ok || kindOf(v) != '0' {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func (p payload) boolean(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	switch kindOf(v) {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func (p payload) object(key string) (payload, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	return decode(v)
}

func (p payload) array(key string) ([]json.RawMessage, bool) {
	v, ok := p[key]
	if !ok || kindOf(v) != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, false
	}
	return items, true
}

// stringMap accepts an object whose every value is a string.
func (p payload) stringMap() (map[string]string, bool) {
	out := make(map[string]string, len(p))
	for k := range p {
		s, ok := p.str(k)
		if !ok {
			return nil, false
		}
		out[k] = s
	}
	return out, true
}

// counterMap accepts an object whose every value is a non-negative integer.
func (p payload) counterMap() (map[string]int, bool) {
	out := make(map[string]int, len(p))
	for k := range p {
		f, ok := p.num(k)
		if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
			return nil, false
		}
		out[k] = int(f)
	}
	return out, true
}

// serverError returns the human-readable error a server ack may carry.
func (p payload) serverError() (string, bool) {
	return p.nonEmpty("message")
}
