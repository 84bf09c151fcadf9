// Package schema decodes ClinicalTrials.gov public XML records into nested
// mappings shaped after the registry's public.xsd.
package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RootElement is the document element of every registry record.
const RootElement = "clinical_study"

// ErrUnexpectedRoot is returned when the document is not a clinical_study.
var ErrUnexpectedRoot = errors.New("unexpected root element")

// repeated lists the parent/child pairs declared unbounded in public.xsd.
// They always decode to []any, even with a single occurrence.
var repeated = map[string]bool{
	"id_info/secondary_id":                        true,
	"id_info/nct_alias":                           true,
	"sponsors/collaborator":                       true,
	"clinical_study/primary_outcome":              true,
	"clinical_study/secondary_outcome":            true,
	"clinical_study/other_outcome":                true,
	"clinical_study/condition":                    true,
	"clinical_study/arm_group":                    true,
	"clinical_study/intervention":                 true,
	"intervention/arm_group_label":                true,
	"intervention/other_name":                     true,
	"clinical_study/overall_official":             true,
	"clinical_study/location":                     true,
	"location/investigator":                       true,
	"location_countries/country":                  true,
	"removed_countries/country":                   true,
	"clinical_study/link":                         true,
	"clinical_study/reference":                    true,
	"clinical_study/results_reference":            true,
	"clinical_study/keyword":                      true,
	"condition_browse/mesh_term":                  true,
	"intervention_browse/mesh_term":               true,
	"study_docs/study_doc":                        true,
	"provided_document_section/provided_document": true,
	"patient_data/ipd_info_type":                  true,
}

// Decode parses a raw record. The returned mapping is the content of the
// clinical_study element: child elements by name, attributes under "@name"
// and the text of an element that carries attributes under "$". Text is
// NFC-normalized. Textblocks keep their line structure, other text is
// trimmed.
func Decode(raw []byte) (map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty document", ErrUnexpectedRoot)
		}
		if err != nil {
			return nil, fmt.Errorf("read xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != RootElement {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedRoot, start.Name.Local)
		}
		v, err := decodeElement(dec, start)
		if err != nil {
			return nil, err
		}
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
		return map[string]any{}, nil
	}
}

// decodeElement consumes tokens up to the end of start and returns either a
// string (leaf without attributes) or a map.
func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	var (
		text     strings.Builder
		children map[string]any
	)
	attrs := attributes(start)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read xml in <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			if children == nil {
				children = map[string]any{}
			}
			add(children, start.Name.Local, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return assemble(start.Name.Local, text.String(), attrs, children), nil
		}
	}
}

func assemble(name, text string, attrs, children map[string]any) any {
	if name != "textblock" {
		text = strings.TrimSpace(text)
	}
	text = norm.NFC.String(text)

	if children == nil && attrs == nil {
		return text
	}
	out := map[string]any{}
	for k, v := range attrs {
		out[k] = v
	}
	for k, v := range children {
		out[k] = v
	}
	if children == nil && text != "" {
		out["$"] = text
	}
	return out
}

func attributes(start xml.StartElement) map[string]any {
	var out map[string]any
	for _, a := range start.Attr {
		// namespace declarations and xsi hints are not part of the record
		if a.Name.Space != "" || a.Name.Local == "xmlns" {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		out["@"+a.Name.Local] = norm.NFC.String(a.Value)
	}
	return out
}

func add(children map[string]any, parent, name string, v any) {
	prev, seen := children[name]
	switch {
	case !seen && repeated[parent+"/"+name]:
		children[name] = []any{v}
	case !seen:
		children[name] = v
	default:
		if list, ok := prev.([]any); ok {
			children[name] = append(list, v)
			return
		}
		children[name] = []any{prev, v}
	}
}
