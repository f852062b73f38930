package parsers

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skn123/robin-sub001/internal/errors"
)

// DecodeDocument reads one YAML declaration document.
func DecodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, errors.Wrapf(errors.ErrMalformedInput, "decoding document: %v", err)
	}
	return &doc, nil
}

// ReadDocument reads the YAML declaration document at path. The document's
// File defaults to path.
func ReadDocument(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	doc, err := DecodeDocument(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	if doc.File == "" {
		doc.File = path
	}
	return doc, nil
}

// EncodeDocument writes doc as YAML.
func EncodeDocument(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding document")
	}
	return enc.Close()
}

// typeSpecFields has the fields of TypeSpec without its methods.
type typeSpecFields TypeSpec

// UnmarshalYAML accepts a plain string as an expression.
func (s *TypeSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = TypeSpec{Expr: node.Value}
		return nil
	}
	var fields typeSpecFields
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*s = TypeSpec(fields)
	return nil
}

// MarshalYAML writes a spec holding only an expression as a plain string.
func (s TypeSpec) MarshalYAML() (any, error) {
	if s.Expr != "" && s.Kind == "" {
		return s.Expr, nil
	}
	return typeSpecFields(s), nil
}
