// Package render turns evaluation results into the output formats offered by
// the roll CLI and the dice service.
package render

import (
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/roll/internal/dice"
)

// Format names an output encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat parses "text", "json" or "yaml" (case-insensitive).
//
// Postcondition: Returns a known Format or a non-nil error.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, JSON, YAML:
		return f, nil
	case "":
		return Text, nil
	}
	return "", fmt.Errorf("render: unknown format %q, want one of [text, json, yaml]", s)
}

// Roll is the encoding-neutral view of one roll group.
type Roll struct {
	Notation string    `yaml:"notation"`
	Values   []float64 `yaml:"values"`
}

// Document is the encoding-neutral view of a Result. History and Rolls are
// only populated for verbose output.
type Document struct {
	Total   float64  `yaml:"total"`
	History []string `yaml:"history,omitempty"`
	Rolls   []Roll   `yaml:"rolls,omitempty"`
}

// NewDocument builds the view of res.
//
// Precondition: res must be non-nil.
func NewDocument(res *dice.Result, verbose bool) Document {
	doc := Document{Total: res.Total}
	if !verbose {
		return doc
	}
	doc.History = append([]string(nil), res.History...)
	for _, rr := range res.Rolls {
		doc.Rolls = append(doc.Rolls, Roll{
			Notation: rr.Notation,
			Values:   append([]float64(nil), rr.Values...),
		})
	}
	return doc
}

// Struct converts d to a protobuf Struct with keys total, history and rolls.
func (d Document) Struct() (*structpb.Struct, error) {
	fields := map[string]any{"total": d.Total}
	if len(d.History) > 0 {
		history := make([]any, len(d.History))
		for i, h := range d.History {
			history[i] = h
		}
		fields["history"] = history
	}
	if len(d.Rolls) > 0 {
		rolls := make([]any, len(d.Rolls))
		for i, r := range d.Rolls {
			values := make([]any, len(r.Values))
			for j, v := range r.Values {
				values[j] = v
			}
			rolls[i] = map[string]any{"notation": r.Notation, "values": values}
		}
		fields["rolls"] = rolls
	}
	return structpb.NewStruct(fields)
}

// Write renders res to w in format.
//
// Postcondition: output ends with a newline.
func Write(w io.Writer, res *dice.Result, format Format, verbose bool) error {
	switch format {
	case Text:
		out := dice.FormatNumber(res.Total)
		if verbose {
			out = res.String()
		}
		_, err := fmt.Fprintln(w, out)
		return err

	case JSON:
		s, err := NewDocument(res, verbose).Struct()
		if err != nil {
			return fmt.Errorf("render: building json document: %w", err)
		}
		data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
		if err != nil {
			return fmt.Errorf("render: encoding json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(res, verbose)); err != nil {
			return fmt.Errorf("render: encoding yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("render: unknown format %q", format)
}
