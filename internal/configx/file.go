// Package configx decodes configuration files shared by the client and the
// backend. The format is picked from the file extension.
package configx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

// DecodeFile reads path into dst. ".yaml" and ".yml" files are decoded as
// YAML, ".json" and extensionless files as JSON. Unknown keys are rejected.
func DecodeFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}
