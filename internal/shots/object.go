package shots

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// rawObject keeps a JSON object's members and key order so fields this
// package does not model survive a load/save cycle.
type rawObject struct {
	keys   []string
	values map[string]json.RawMessage
}

func decodeObject(data []byte) (rawObject, error) {
	obj := rawObject{values: make(map[string]json.RawMessage)}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return obj, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return obj, fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return obj, err
		}
		key, ok := tok.(string)
		if !ok {
			return obj, fmt.Errorf("expected key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return obj, fmt.Errorf("member %q: %w", key, err)
		}
		if _, dup := obj.values[key]; dup {
			return obj, fmt.Errorf("duplicate key %q", key)
		}
		obj.keys = append(obj.keys, key)
		obj.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return obj, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return obj, errors.New("unexpected data after object")
	}
	return obj, nil
}

func (o rawObject) has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o rawObject) clone() rawObject {
	out := rawObject{keys: append([]string(nil), o.keys...)}
	if o.values != nil {
		out.values = make(map[string]json.RawMessage, len(o.values))
		for k, v := range o.values {
			out.values[k] = v
		}
	}
	return out
}

func (o rawObject) text(key string) (string, error) {
	raw, ok := o.values[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: expected string", key)
	}
	return s, nil
}

// set stores value under key. Absent keys are only added when keep is true,
// which lets zero values stay absent if they were absent on load.
func (o *rawObject) set(key string, value any, keep bool) error {
	if !keep && !o.has(key) {
		return nil
	}
	encoded, err := encodeJSON(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}
	if !o.has(key) {
		o.keys = append(o.keys, key)
	}
	o.values[key] = encoded
	return nil
}

// setText writes a string member. An empty value leaves an absent or null
// member as it was unless always is set.
func (o *rawObject) setText(key, value string, always bool) error {
	if value == "" && !always && o.unset(key) {
		return nil
	}
	return o.set(key, value, true)
}

// setInt is setText for integers, with zero as the empty value.
func (o *rawObject) setInt(key string, value int, always bool) error {
	if value == 0 && !always && o.unset(key) {
		return nil
	}
	return o.set(key, value, true)
}

func (o rawObject) unset(key string) bool {
	raw, ok := o.values[key]
	return !ok || isNull(raw)
}

func (o rawObject) encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := encodeJSON(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// encodeJSON marshals without HTML escaping so prompts keep their < > &.
func encodeJSON(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
