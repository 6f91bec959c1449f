package refstore

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/citationmanager/cm/internal/reference"
)

const frontMatterDelim = "---"

// splitFrontMatter separates "---\n<yaml>\n---\n<body>" into its parts.
func splitFrontMatter(data []byte) (header []byte, body string, err error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, frontMatterDelim+"\n") {
		return nil, "", fmt.Errorf("%w: no front matter", ErrMalformedRecord)
	}
	rest := text[len(frontMatterDelim)+1:]

	// The closing delimiter may directly follow the opening one when the
	// header is empty.
	if strings.HasPrefix(rest, frontMatterDelim+"\n") || rest == frontMatterDelim {
		return nil, strings.TrimPrefix(strings.TrimPrefix(rest, frontMatterDelim), "\n"), nil
	}

	end := strings.Index(rest, "\n"+frontMatterDelim+"\n")
	if end < 0 {
		if strings.HasSuffix(rest, "\n"+frontMatterDelim) {
			return []byte(rest[:len(rest)-len(frontMatterDelim)-1]), "", nil
		}
		return nil, "", fmt.Errorf("%w: unterminated front matter", ErrMalformedRecord)
	}
	return []byte(rest[:end]), rest[end+len(frontMatterDelim)+2:], nil
}

// decodeRecord reads a stored file into a Record according to the kind's
// layout.
func decodeRecord(kind Kind, data []byte) (Record, error) {
	header, body, err := splitFrontMatter(data)
	if err != nil {
		return Record{}, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Record{}, fmt.Errorf("%w: front matter is not a mapping", ErrMalformedRecord)
	}
	mapping := doc.Content[0]

	rec := Record{Fields: reference.Fields{}, Meta: reference.Fields{}, Body: body}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		node := mapping.Content[i+1]

		if kind.FieldsKey != "" && key == kind.FieldsKey {
			var fields reference.Fields
			if err := node.Decode(&fields); err != nil {
				return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
			}
			if fields == nil {
				fields = reference.Fields{}
			}
			rec.Fields = fields
			continue
		}

		var v reference.Value
		if err := node.Decode(&v); err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
		}
		switch {
		case key == kind.IDField:
			rec.ID = v.Scalar()
			if kind.FieldsKey == "" {
				rec.Fields[key] = v
			}
		case kind.FieldsKey == "":
			rec.Fields[key] = v
		default:
			rec.Meta[key] = v
		}
	}

	if rec.ID == "" {
		return Record{}, fmt.Errorf("%w: missing %s", ErrMalformedRecord, kind.IDField)
	}
	return rec, nil
}

// encodeRecord renders a Record as front matter plus body. Keys are
// written in a stable order: identity first, then fields, then metadata.
func encodeRecord(kind Kind, rec Record) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}

	add := func(key string, value interface{}) error {
		var node yaml.Node
		if err := node.Encode(value); err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&node,
		)
		return nil
	}

	if err := add(kind.IDField, rec.ID); err != nil {
		return nil, err
	}

	if kind.FieldsKey == "" {
		for _, k := range rec.Fields.Keys() {
			if k == kind.IDField {
				continue
			}
			if err := add(k, rec.Fields[k]); err != nil {
				return nil, err
			}
		}
	} else {
		fields := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range rec.Fields.Keys() {
			var node yaml.Node
			if err := node.Encode(rec.Fields[k]); err != nil {
				return nil, fmt.Errorf("encoding %s.%s: %w", kind.FieldsKey, k, err)
			}
			fields.Content = append(fields.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				&node,
			)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kind.FieldsKey},
			fields,
		)
	}

	metaKeys := make([]string, 0, len(rec.Meta))
	for k := range rec.Meta {
		if k == kind.IDField || k == kind.FieldsKey {
			continue
		}
		metaKeys = append(metaKeys, k)
	}
	sort.Strings(metaKeys)
	for _, k := range metaKeys {
		if err := add(k, rec.Meta[k]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	buf.WriteString(frontMatterDelim + "\n")
	buf.WriteString(rec.Body)
	return buf.Bytes(), nil
}
