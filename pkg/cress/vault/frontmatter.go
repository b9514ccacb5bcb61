package vault

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/cress/pkg/cress/evaluator"
)

var frontMatterDelim = []byte("---")

// splitFrontMatter splits a note into its YAML front matter source
// and body. A note without a leading --- fence has no front matter.
func splitFrontMatter(source []byte) (front, body []byte) {
	if !bytes.HasPrefix(source, frontMatterDelim) {
		return nil, source
	}
	rest := source[len(frontMatterDelim):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != '\n' {
		return nil, source
	}
	rest = rest[1:]
	for _, end := range []string{"\n---\n", "\n---\r\n"} {
		if i := bytes.Index(rest, []byte(end)); i >= 0 {
			return rest[:i], rest[i+len(end):]
		}
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return rest[:len(rest)-4], nil
	}
	return nil, source
}

// parseFrontMatter decodes YAML front matter into a record of dynamic
// values, preserving key order.
func parseFrontMatter(front []byte) (*evaluator.Record, error) {
	rec := evaluator.NewRecord()
	if len(front) == 0 {
		return rec, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(front, &root); err != nil {
		return rec, err
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return rec, nil
	}
	mapping := root.Content[0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		rec.Set(key, yamlValue(mapping.Content[i+1]))
	}
	return rec, nil
}

var (
	wikiValuePattern = regexp.MustCompile(`^\[\[([^\]|]+)(?:\|([^\]]*))?\]\]$`)
	dateishPattern   = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}`)
)

// yamlValue converts one YAML node to a dynamic value. Strings that
// look like wiki links become links; strings that lead with a date
// become timestamps.
func yamlValue(node *yaml.Node) evaluator.Object {
	switch node.Kind {
	case yaml.SequenceNode:
		elems := make([]evaluator.Object, 0, len(node.Content))
		for _, c := range node.Content {
			elems = append(elems, yamlValue(c))
		}
		return &evaluator.List{Elements: elems}
	case yaml.MappingNode:
		rec := evaluator.NewRecord()
		for i := 0; i+1 < len(node.Content); i += 2 {
			rec.Set(node.Content[i].Value, yamlValue(node.Content[i+1]))
		}
		return rec
	case yaml.ScalarNode:
		return scalarValue(node)
	}
	return evaluator.NULL
}

func scalarValue(node *yaml.Node) evaluator.Object {
	switch node.Tag {
	case "!!null":
		return evaluator.NULL
	case "!!bool":
		if b, err := strconv.ParseBool(node.Value); err == nil {
			return nativeBool(b)
		}
	case "!!int", "!!float":
		if n, err := strconv.ParseFloat(node.Value, 64); err == nil {
			return &evaluator.Number{Value: n}
		}
	case "!!timestamp":
		if t, err := evaluator.ParseDatetime(node.Value); err == nil {
			return &evaluator.Datetime{Time: t}
		}
	}
	return stringValue(node.Value)
}

func stringValue(s string) evaluator.Object {
	if m := wikiValuePattern.FindStringSubmatch(s); m != nil {
		return &evaluator.Link{Target: strings.TrimSpace(m[1]), Display: m[2]}
	}
	if dateishPattern.MatchString(s) {
		if t, err := evaluator.ParseDatetime(s); err == nil {
			return &evaluator.Datetime{Time: t}
		}
	}
	return &evaluator.String{Value: s}
}

func nativeBool(b bool) evaluator.Object {
	if b {
		return evaluator.TRUE
	}
	return evaluator.FALSE
}
