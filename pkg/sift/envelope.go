package sift

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Envelope is the insertion-ordered result document. "status" is set
// first so that it always leads the serialized form.
type Envelope struct {
	keys   []string
	values map[string]interface{}
}

// NewEnvelope returns an empty envelope.
func NewEnvelope() *Envelope {
	return &Envelope{values: make(map[string]interface{})}
}

// Success builds the skeleton of a successful response.
func Success() *Envelope {
	e := NewEnvelope()
	e.Set("status", true)
	return e
}

// Failure builds an error response. Extra details are appended after
// the message in their own keys.
func Failure(code, message string, details map[string]interface{}) *Envelope {
	e := NewEnvelope()
	e.Set("status", false)
	e.Set("message", message)
	e.Set("code", code)
	for _, k := range sortedDetailKeys(details) {
		e.Set(k, details[k])
	}
	return e
}

// Set stores a value, keeping the key's first insertion position.
func (e *Envelope) Set(key string, value interface{}) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns the value for key, if set.
func (e *Envelope) Get(key string) (interface{}, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (e *Envelope) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Status reports whether the envelope describes a successful query.
func (e *Envelope) Status() bool {
	v, ok := e.values["status"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// MarshalJSON writes the fields in insertion order.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(e.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func sortedDetailKeys(details map[string]interface{}) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
