package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danmuck/doipscope/internal/doip"
	"gopkg.in/yaml.v3"
)

// Document is a serializable message view. It implements Sink. Header and
// payload field ranges both count from the first header byte.
type Document struct {
	Index       int         `json:"index" yaml:"index"`
	PayloadType string      `json:"payload_type" yaml:"payload_type"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Known       bool        `json:"known" yaml:"known"`
	Partial     bool        `json:"partial,omitempty" yaml:"partial,omitempty"`
	Header      []FieldView `json:"header,omitempty" yaml:"header,omitempty"`
	Fields      []FieldView `json:"fields" yaml:"fields"`
	Summary     string      `json:"summary" yaml:"summary"`
	Error       string      `json:"error,omitempty" yaml:"error,omitempty"`
}

func NewDocument(index int, h doip.Header, res doip.Result) *Document {
	doc := &Document{
		Index:       index,
		PayloadType: res.PayloadType.String(),
		Name:        res.Name,
		Known:       res.Known,
		Partial:     res.Partial,
		Fields:      []FieldView{},
	}
	for _, f := range doip.HeaderFields(h) {
		doc.Header = append(doc.Header, View(f, 0))
	}
	emitAt(res, doc, doip.HeaderLength)
	return doc
}

func (d *Document) AddField(v FieldView) {
	d.Fields = append(d.Fields, v)
}

func (d *Document) SetSummary(s string) {
	d.Summary = s
}

// Format selects a document encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(raw); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("render: unknown format %q", raw)
	}
}

// WriteDocuments encodes docs as a JSON array or a YAML sequence.
func WriteDocuments(w io.Writer, format Format, docs []*Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("render: format %q is not a document format", format)
	}
}
