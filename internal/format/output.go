package format

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	JSON     = "json"
	YAML     = "yaml"
	TableFmt = "table"
	Markdown = "markdown"
)

func Formats() []string { return []string{JSON, YAML, TableFmt, Markdown} }

// Tabler is implemented by values that can be shown as a table.
type Tabler interface {
	Table() Table
}

// Markdowner is implemented by values that can be shown as a markdown document.
type Markdowner interface {
	Markdown() string
}

type Options struct {
	Pretty bool
	// Width bounds table and markdown output; 0 means DefaultWidth.
	Width int
}

// Write writes v in the requested format.
//
// Supported formats:
// - json (default)
// - yaml
// - table (v must implement Tabler)
// - markdown (v must implement Markdowner)
func Write(w io.Writer, v any, format string, opt Options) error {
	switch format {
	case "", JSON:
		return WriteJSON(w, v, opt.Pretty)
	case YAML:
		return WriteYAML(w, v)
	case TableFmt:
		t, ok := v.(Tabler)
		if !ok {
			return fmt.Errorf("table output is not available for %T", v)
		}
		return WriteTable(w, t.Table(), opt.Width)
	case Markdown:
		m, ok := v.(Markdowner)
		if !ok {
			return fmt.Errorf("markdown output is not available for %T", v)
		}
		return WriteMarkdown(w, m.Markdown(), opt.Width)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteYAML writes v as YAML. Values go through JSON first so json tags decide
// field names in both formats.
func WriteYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(x); err != nil {
		return err
	}
	return enc.Close()
}
