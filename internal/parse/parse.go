// Package parse turns configuration files of mixed formats into flat,
// line-annotated key/value entries that scanners can inspect.
package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format int

const (
	FormatPlain Format = iota
	FormatJSON
	FormatYAML
	FormatTOML
	FormatINI
	FormatDotenv
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatINI:
		return "ini"
	case FormatDotenv:
		return "dotenv"
	default:
		return "plain"
	}
}

// Entry is one scalar value found in a file. Key is a dotted path for
// structured formats and the variable name for dotenv/shell files.
type Entry struct {
	Key    string
	Value  string
	Line   int
	Column int
}

// LeafKey returns the last segment of a dotted key.
func (e Entry) LeafKey() string {
	if i := strings.LastIndex(e.Key, "."); i >= 0 {
		return e.Key[i+1:]
	}
	return e.Key
}

// DetectFormat picks a format from the file name first and the content second.
func DetectFormat(path string, contents []byte) Format {
	base := strings.ToLower(filepath.Base(path))
	switch ext := filepath.Ext(base); {
	case ext == ".json":
		return FormatJSON
	case ext == ".yaml" || ext == ".yml":
		return FormatYAML
	case ext == ".toml":
		return FormatTOML
	case ext == ".ini" || ext == ".cfg" || ext == ".conf":
		return FormatINI
	case ext == ".env" || strings.HasPrefix(base, ".env") || base == ".envrc":
		return FormatDotenv
	case strings.HasSuffix(base, "rc") || base == ".profile" || base == ".zshenv" || ext == ".sh" || ext == ".fish":
		return FormatDotenv
	}

	trimmed := bytes.TrimSpace(contents)
	switch {
	case len(trimmed) == 0:
		return FormatPlain
	case trimmed[0] == '{' || trimmed[0] == '[' && json.Valid(trimmed):
		return FormatJSON
	case trimmed[0] == '[':
		if _, err := ini.Load(trimmed); err == nil {
			return FormatINI
		}
	case bytes.Contains(trimmed, []byte(": ")) && !bytes.Contains(trimmed, []byte("=")):
		return FormatYAML
	case bytes.Contains(trimmed, []byte("=")):
		return FormatDotenv
	}
	return FormatPlain
}

// IsBinary reports whether contents is not text according to its MIME type.
func IsBinary(contents []byte) bool {
	if len(contents) == 0 {
		return false
	}
	for m := mimetype.Detect(contents); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return false
		}
	}
	return true
}

// Flatten parses contents in the detected format and returns its scalar
// entries in a deterministic order.
func Flatten(path string, contents []byte) ([]Entry, Format, error) {
	format := DetectFormat(path, contents)
	entries, err := FlattenAs(format, contents)
	return entries, format, err
}

// FlattenAs parses contents with an explicit format.
func FlattenAs(format Format, contents []byte) ([]Entry, error) {
	switch format {
	case FormatJSON:
		tree, err := DecodeJSON(contents)
		if err != nil {
			return nil, err
		}
		return flattenTree(tree, contents), nil
	case FormatYAML:
		var tree any
		if err := yaml.Unmarshal(contents, &tree); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
		return flattenTree(tree, contents), nil
	case FormatTOML:
		var tree map[string]any
		if err := toml.Unmarshal(contents, &tree); err != nil {
			return nil, fmt.Errorf("invalid toml: %w", err)
		}
		return flattenTree(tree, contents), nil
	case FormatINI:
		return flattenINI(contents)
	case FormatDotenv:
		return KeyValues(contents), nil
	default:
		return nil, nil
	}
}

// DecodeJSON decodes a JSON document into a generic tree.
func DecodeJSON(contents []byte) (any, error) {
	var tree any
	dec := json.NewDecoder(bytes.NewReader(contents))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return tree, nil
}

func flattenTree(tree any, contents []byte) []Entry {
	var out []Entry
	walk("", tree, func(key, value string) {
		line, col := Locate(contents, value)
		out = append(out, Entry{Key: key, Value: value, Line: line, Column: col})
	})
	return out
}

func walk(prefix string, node any, emit func(key, value string)) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(join(k), v[k], emit)
		}
	case map[any]any:
		keys := make([]string, 0, len(v))
		byName := make(map[string]any, len(v))
		for k, child := range v {
			name := fmt.Sprint(k)
			keys = append(keys, name)
			byName[name] = child
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(join(k), byName[k], emit)
		}
	case []any:
		for i, child := range v {
			walk(join(strconv.Itoa(i)), child, emit)
		}
	case string:
		emit(prefix, v)
	case json.Number:
		emit(prefix, v.String())
	case nil:
	default:
		emit(prefix, fmt.Sprint(v))
	}
}

func flattenINI(contents []byte) ([]Entry, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: false, AllowBooleanKeys: true}, contents)
	if err != nil {
		return nil, fmt.Errorf("invalid ini: %w", err)
	}
	var out []Entry
	for _, sec := range cfg.Sections() {
		for _, key := range sec.Keys() {
			name := key.Name()
			if sec.Name() != ini.DefaultSection {
				name = sec.Name() + "." + name
			}
			value := key.String()
			line, col := Locate(contents, value)
			out = append(out, Entry{Key: name, Value: value, Line: line, Column: col})
		}
	}
	return out, nil
}

// KeyValues parses dotenv and shell assignment lines. It understands
// "export" prefixes, single and double quotes, and trailing comments.
func KeyValues(contents []byte) []Entry {
	var out []Entry
	for i, raw := range strings.Split(string(contents), "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		spaced := false
		for _, prefix := range []string{"export ", "set -gx ", "set -x ", "setenv "} {
			if strings.HasPrefix(trimmed, prefix) {
				trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
				spaced = prefix != "export "
				break
			}
		}

		key, rest, ok := splitAssignment(trimmed, spaced)
		if !ok {
			continue
		}
		value := unquote(rest)
		if value == "" {
			continue
		}
		col := strings.Index(line, value) + 1
		out = append(out, Entry{Key: key, Value: value, Line: i + 1, Column: col})
	}
	return out
}

func splitAssignment(s string, spaced bool) (string, string, bool) {
	if !spaced {
		if idx := strings.IndexByte(s, '='); idx > 0 {
			key := strings.TrimSpace(s[:idx])
			if isIdentifier(key) {
				return key, strings.TrimSpace(s[idx+1:]), true
			}
		}
		return "", "", false
	}
	// fish: set -gx KEY value / csh: setenv KEY value
	fields := strings.Fields(s)
	if len(fields) >= 2 && isIdentifier(fields[0]) {
		return fields[0], strings.TrimSpace(strings.TrimPrefix(s, fields[0])), true
	}
	return "", "", false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '.' || r == '-':
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func unquote(s string) string {
	if s == "" {
		return s
	}
	if q := s[0]; q == '"' || q == '\'' {
		if end := strings.IndexByte(s[1:], q); end >= 0 {
			return s[1 : end+1]
		}
		return strings.TrimSpace(s[1:])
	}
	if idx := strings.Index(s, " #"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// Locate returns the 1-based line and column of the first occurrence of value
// in contents, or zeros if it does not appear verbatim.
func Locate(contents []byte, value string) (int, int) {
	if value == "" {
		return 0, 0
	}
	idx := bytes.Index(contents, []byte(value))
	if idx < 0 {
		return 0, 0
	}
	line := bytes.Count(contents[:idx], []byte("\n")) + 1
	lineStart := bytes.LastIndexByte(contents[:idx], '\n') + 1
	return line, idx - lineStart + 1
}
