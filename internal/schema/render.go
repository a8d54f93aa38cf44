package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Output formats understood by Render.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatEnv  = "env"
)

// ErrUnknownFormat is returned by Render for an unsupported format.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the output formats in the order they are documented.
func Formats() []string {
	return []string{FormatYAML, FormatJSON, FormatEnv}
}

// Render writes the resolved values to w in the requested format.
func Render(w io.Writer, r *Resolved, format string) error {
	switch format {
	case FormatYAML:
		return renderYAML(w, r)
	case FormatJSON:
		return renderJSON(w, r)
	case FormatEnv:
		return renderEnv(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// display converts values whose natural encoding is not their textual form,
// such as time.Duration and net.IP, into strings. Nil and empty slice values
// become nil so they render as null or an empty variable.
func display(v any) any {
	if isEmpty(v) {
		return nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return v
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func renderYAML(w io.Writer, r *Resolved) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range r.Entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: e.Field}
		value := &yaml.Node{}
		if err := value.Encode(display(e.Value)); err != nil {
			return fmt.Errorf("encode field %q: %w", e.Field, err)
		}
		doc.Content = append(doc.Content, key, value)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}

func renderJSON(w io.Writer, r *Resolved) error {
	values := make(map[string]any, len(r.Entries))
	for _, e := range r.Entries {
		values[e.Field] = display(e.Value)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(values); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func renderEnv(w io.Writer, r *Resolved) error {
	values := make(map[string]string, len(r.Entries))
	for _, e := range r.Entries {
		key := e.Env
		if key == "" {
			key = strings.ToUpper(e.Field)
		}
		if v := display(e.Value); v != nil {
			values[key] = fmt.Sprint(v)
		} else {
			values[key] = ""
		}
	}

	out, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode env: %w", err)
	}
	_, err = io.WriteString(w, out+"\n")
	return err
}
