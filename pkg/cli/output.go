package cli

import (
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputTable, OutputJSON, OutputYAML:
		return f, nil
	case "":
		return OutputTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: table, json, yaml)", s)
	}
}

type OutputOptions struct {
	Format    OutputFormat
	Quiet     bool
	Writer    io.Writer
	ErrWriter io.Writer
}

func NewOutputOptions() *OutputOptions {
	return &OutputOptions{
		Format:    OutputTable,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

func FormatOutput(data any, format OutputFormat) (string, error) {
	switch format {
	case OutputJSON:
		return formatJSON(data)
	case OutputYAML:
		return formatYAML(data)
	default:
		return formatTable(data)
	}
}

func formatJSON(data any) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JSON: %w", err)
	}
	return string(b) + "\n", nil
}

func formatYAML(data any) (string, error) {
	b, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal YAML: %w", err)
	}
	return string(b), nil
}

func formatTable(data any) (string, error) {
	if data == nil {
		return "", nil
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return formatSliceTable(v)
	case reflect.Map:
		return formatMapTable(v)
	case reflect.Struct:
		return formatStructTable(v)
	default:
		return fmt.Sprintf("%v\n", data), nil
	}
}

func formatSliceTable(v reflect.Value) (string, error) {
	if v.Len() == 0 {
		return "No items\n", nil
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	headers := fieldNames(v.Index(0))
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	for i := 0; i < v.Len(); i++ {
		fmt.Fprintln(w, strings.Join(fieldValues(v.Index(i)), "\t"))
	}

	w.Flush()
	return sb.String(), nil
}

func formatMapTable(v reflect.Value) (string, error) {
	keys := make([]string, 0, v.Len())
	values := make(map[string]string, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := fmt.Sprintf("%v", iter.Key())
		keys = append(keys, k)
		values[k] = formatValue(iter.Value().Interface())
	}
	sort.Strings(keys)

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, values[k])
	}
	w.Flush()
	return sb.String(), nil
}

func formatStructTable(v reflect.Value) (string, error) {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	headers := fieldNames(v)
	values := fieldValues(v)
	for i, h := range headers {
		fmt.Fprintf(w, "%s\t%s\n", h, values[i])
	}

	w.Flush()
	return sb.String(), nil
}

func jsonName(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" {
		return "", false
	}
	name := f.Tag.Get("json")
	if name == "-" {
		return "", false
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	if name == "" {
		name = f.Name
	}
	return name, true
}

func fieldNames(v reflect.Value) []string {
	v = reflect.Indirect(v)
	if v.Kind() != reflect.Struct {
		return []string{"value"}
	}

	t := v.Type()
	var names []string
	for i := 0; i < t.NumField(); i++ {
		if name, ok := jsonName(t.Field(i)); ok {
			names = append(names, name)
		}
	}
	return names
}

func fieldValues(v reflect.Value) []string {
	v = reflect.Indirect(v)
	if v.Kind() != reflect.Struct {
		return []string{formatValue(v.Interface())}
	}

	t := v.Type()
	var values []string
	for i := 0; i < t.NumField(); i++ {
		if _, ok := jsonName(t.Field(i)); ok {
			values = append(values, formatValue(v.Field(i).Interface()))
		}
	}
	return values
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		v = rv.Elem().Interface()
	}

	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Local().Format(time.DateTime)
	case time.Duration:
		return val.String()
	case json.Marshaler:
		b, err := val.MarshalJSON()
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return strings.Trim(string(b), `"`)
	case encoding.TextMarshaler:
		b, err := val.MarshalText()
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%.2f", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func PrintOutput(data any, opts *OutputOptions) error {
	if opts.Quiet {
		return nil
	}

	output, err := FormatOutput(data, opts.Format)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(opts.Writer, output)
	return err
}

func PrintError(err error, opts *OutputOptions) {
	w := opts.ErrWriter
	if w == nil {
		w = os.Stderr
	}

	data := map[string]any{
		"success": false,
		"error": map[string]string{
			"message": err.Error(),
		},
	}

	switch opts.Format {
	case OutputJSON:
		b, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintln(w, string(b))
	case OutputYAML:
		b, _ := yaml.Marshal(data)
		fmt.Fprint(w, string(b))
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}
