// Package hydrate turns JSON and YAML payloads into plain snapshot values:
// map[string]any, []any, string, bool, nil and numbers. Integral numbers
// decode as int64 and the rest as float64.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Context describes the payload being decoded, for hooks and error messages.
type Context struct {
	Source string
	Format Format
}

func (ctx Context) label() string {
	if ctx.Source == "" {
		return "<inline>"
	}
	return ctx.Source
}

// PreHook lets callers rewrite the decoded payload before it is normalized.
type PreHook func(Context, any) (any, error)

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts payloads into snapshot values.
type Decoder struct {
	preHooks     []PreHook
	configureDec []func(*json.Decoder)
	keepNumbers  bool
}

// WithPreHook applies hook after decoding and before number normalization.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithJSONNumbers keeps JSON numbers as json.Number instead of converting
// them to int64 or float64.
func WithJSONNumbers() DecoderOption {
	return func(d *Decoder) {
		d.keepNumbers = true
	}
}

// WithDecoderConfig allows callers to configure the json.Decoder directly.
func WithDecoderConfig(configure func(*json.Decoder)) DecoderOption {
	return func(d *Decoder) {
		if configure != nil {
			d.configureDec = append(d.configureDec, configure)
		}
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses data according to ctx.Format, JSON when unset.
func (d *Decoder) Decode(ctx Context, data []byte) (any, error) {
	var (
		value any
		err   error
	)
	switch ctx.Format {
	case FormatYAML:
		value, err = d.decodeYAML(data)
	case FormatJSON, "":
		ctx.Format = FormatJSON
		value, err = d.decodeJSON(data)
	default:
		return nil, fmt.Errorf("hydrate: unsupported format %q for %s", ctx.Format, ctx.label())
	}
	if err != nil {
		return nil, fmt.Errorf("hydrate: decode %s %s: %w", ctx.Format, ctx.label(), err)
	}

	for _, hook := range d.preHooks {
		next, err := hook(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.label(), err)
		}
		value = next
	}

	return d.normalize(value)
}

// DecodeJSON decodes a JSON payload with a default decoder.
func DecodeJSON(data []byte) (any, error) {
	return NewDecoder().Decode(Context{Format: FormatJSON}, data)
}

// DecodeYAML decodes a YAML payload with a default decoder.
func DecodeYAML(data []byte) (any, error) {
	return NewDecoder().Decode(Context{Format: FormatYAML}, data)
}

func (d *Decoder) decodeJSON(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	for _, configure := range d.configureDec {
		configure(decoder)
	}
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return value, nil
}

func (d *Decoder) decodeYAML(data []byte) (any, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (d *Decoder) normalize(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			normalized, err := d.normalize(item)
			if err != nil {
				return nil, err
			}
			out[key] = normalized
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			normalized, err := d.normalize(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(key)] = normalized
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			normalized, err := d.normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	case json.Number:
		if d.keepNumbers {
			return v, nil
		}
		return normalizeNumber(v)
	case int:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return float64(v), nil
		}
		return int64(v), nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1<<53 {
			return int64(v), nil
		}
		return v, nil
	default:
		return v, nil
	}
}

func normalizeNumber(n json.Number) (any, error) {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("hydrate: invalid number %q: %w", n.String(), err)
	}
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}
