package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJS   = "js"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// DefaultConstName is the JavaScript constant the script format declares.
const DefaultConstName = "dashboardData"

// defaultIndent is used by pretty-printed JSON.
const defaultIndent = "  "

// ErrUnknownFormat is returned by CodecFor for an unsupported format.
var ErrUnknownFormat = errors.New("unknown output format")

// ErrInvalidConstName is returned when the script constant name is not a JavaScript identifier.
var ErrInvalidConstName = errors.New("invalid JavaScript constant name")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Formats lists every supported output format.
func Formats() []string {
	return []string{FormatJS, FormatJSON, FormatYAML, FormatText}
}

// Codec serializes a report.
type Codec interface {
	// Encode writes the report to the writer.
	Encode(w io.Writer, r *Report) error
	// Extension returns the conventional file extension (e.g. ".js").
	Extension() string
}

// CodecOptions tune the codec returned by CodecFor.
type CodecOptions struct {
	ConstName string
	Pretty    bool
	NoColor   bool
	Limit     int
}

// CodecFor returns the codec for the named format.
func CodecFor(format string, opts CodecOptions) (Codec, error) {
	indent := ""
	if opts.Pretty {
		indent = defaultIndent
	}

	switch format {
	case FormatJS:
		name := opts.ConstName
		if name == "" {
			name = DefaultConstName
		}

		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidConstName, name)
		}

		return &ScriptCodec{ConstName: name}, nil
	case FormatJSON:
		return &JSONCodec{Indent: indent}, nil
	case FormatYAML:
		return &YAMLCodec{}, nil
	case FormatText:
		return &TextCodec{NoColor: opts.NoColor, Limit: opts.Limit}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// JSONCodec writes the report as a JSON document.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// Encode implements Codec.
func (c *JSONCodec) Encode(w io.Writer, r *Report) error {
	if r == nil {
		return ErrNilReport
	}

	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(r)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *JSONCodec) Extension() string { return ".json" }

// ScriptCodec writes the report as a JavaScript constant declaration that a
// dashboard page can include with a script tag.
type ScriptCodec struct {
	ConstName string
}

// Encode implements Codec.
func (c *ScriptCodec) Encode(w io.Writer, r *Report) error {
	if r == nil {
		return ErrNilReport
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	_, err = fmt.Fprintf(w, "const %s = %s;", c.ConstName, payload)
	if err != nil {
		return fmt.Errorf("write script: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *ScriptCodec) Extension() string { return ".js" }

// YAMLCodec writes the report as YAML.
type YAMLCodec struct{}

// Encode implements Codec.
func (c *YAMLCodec) Encode(w io.Writer, r *Report) error {
	if r == nil {
		return ErrNilReport
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(len(defaultIndent))

	err := encoder.Encode(r)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml close: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *YAMLCodec) Extension() string { return ".yaml" }

// Payload extracts the JSON document from serialized report bytes. Script
// output ("const name = {...};") is unwrapped; anything else is returned
// with surrounding whitespace trimmed.
func Payload(data []byte) []byte {
	data = bytes.TrimSpace(data)

	for _, keyword := range []string{"const ", "var ", "let "} {
		if !bytes.HasPrefix(data, []byte(keyword)) {
			continue
		}

		_, value, ok := bytes.Cut(data, []byte("="))
		if !ok {
			return data
		}

		value = bytes.TrimSpace(value)

		return bytes.TrimSpace(bytes.TrimSuffix(value, []byte(";")))
	}

	return data
}

// Decode parses JSON or script-wrapped report bytes.
func Decode(data []byte) (*Report, error) {
	var r Report

	err := json.Unmarshal(Payload(data), &r)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	return &r, nil
}
