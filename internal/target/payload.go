package target

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPayload is returned when a payload file has no document.
var ErrEmptyPayload = errors.New("payload file is empty")

// DefaultPayload is served when no payload file is configured.
var DefaultPayload = map[string]any{
	"status":  "ok",
	"message": "This is a fast mock response!",
}

// Payload holds the current response body. Reads are lock free so the hot
// path never contends with a reload.
type Payload struct {
	body atomic.Pointer[[]byte]
}

// NewPayload marshals v once and returns a Payload serving it.
func NewPayload(v any) (*Payload, error) {
	p := &Payload{}
	if err := p.Set(v); err != nil {
		return nil, err
	}
	return p, nil
}

// Set replaces the body with the JSON encoding of v.
func (p *Payload) Set(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	p.body.Store(&b)
	return nil
}

// Bytes returns the current body. Callers must not modify it.
func (p *Payload) Bytes() []byte {
	if b := p.body.Load(); b != nil {
		return *b
	}
	return nil
}

// Load reads path and replaces the body. The previous body is kept when the
// file cannot be read or decoded.
func (p *Payload) Load(path string) error {
	v, err := ReadPayloadFile(path)
	if err != nil {
		return err
	}
	return p.Set(v)
}

// ReadPayloadFile decodes a YAML or JSON document from path.
func ReadPayloadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", path, err)
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", path, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyPayload)
	}
	return v, nil
}
