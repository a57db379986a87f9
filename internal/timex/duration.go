// Package timex provides a time.Duration wrapper that config files can spell
// either as a Go duration string ("3s", "1m30s") or as integer nanoseconds.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from JSON and YAML.
type Duration struct {
	time.Duration
}

var errInvalidDuration = errors.New("invalid duration")

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case int:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %q", errInvalidDuration, value)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("%w: %v", errInvalidDuration, v)
	}
	return nil
}
