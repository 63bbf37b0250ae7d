// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package collada decodes the subset of the Collada format that the
// engine's model import understands: geometries with their float
// sources, vertex inputs and triangle index lists.
package collada

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
)

// ErrNoSource is returned when an input references a source that is
// not present in the mesh.
var ErrNoSource = errors.New("collada: referenced source not found")

// Parse decodes a Collada document from raw XML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Document is the top-level Collada object.
type Document struct {
	Geometries []Geometry `xml:"library_geometries>geometry"`
}

// Geometry represents Collada's geometry.
type Geometry struct {
	Mesh Mesh   `xml:"mesh"`
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// Mesh contains all the primitive data.
type Mesh struct {
	Sources   []Source  `xml:"source"`
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

// Source returns the float source referenced by url, with or without
// the leading '#'.
func (m *Mesh) Source(url string) (*Source, error) {
	id := strings.TrimPrefix(url, "#")
	for i := range m.Sources {
		if m.Sources[i].ID == id || m.Sources[i].Floats.ID == id {
			return &m.Sources[i], nil
		}
	}
	return nil, ErrNoSource
}

// SourceBySemantic resolves the source behind the triangle input with
// the given semantic, following one level of vertex indirection for
// the VERTEX semantic.
func (m *Mesh) SourceBySemantic(semantic string) (*Source, error) {
	for _, in := range m.Triangles.Inputs {
		if in.Semantic != semantic {
			continue
		}
		if semantic == "VERTEX" {
			for _, vin := range m.Vertices.Inputs {
				if vin.Semantic == "POSITION" {
					return m.Source(vin.Source)
				}
			}
		}
		return m.Source(in.Source)
	}
	return nil, ErrNoSource
}

// Source holds one float array of mesh data.
type Source struct {
	ID     string `xml:"id,attr"`
	Floats Floats `xml:"float_array"`
	// technique_common defines accessing rules, add if needed
}

// Floats is the array of floats.
type Floats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the array of floats.
func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			f.ID = attr.Value
		}
	}
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.ParseFloat(r, 32)
		if err != nil {
			return err
		}
		f.Data = append(f.Data, float32(num))
	}
	return nil
}

// Vertices contains the list of vertex inputs.
type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

// Triangles contain the triangle index list and its inputs. The index
// interleaves one value per input, in input offset order.
type Triangles struct {
	Count    int     `xml:"count,attr"`
	Material string  `xml:"material,attr"`
	Inputs   []Input `xml:"input"`
	Index    []int
}

// Stride returns the number of index values per vertex.
func (t *Triangles) Stride() int {
	var max uint
	for _, in := range t.Inputs {
		if in.Offset > max {
			max = in.Offset
		}
	}
	return int(max) + 1
}

// UnmarshalXML parses the triangle inputs and index list.
func (t *Triangles) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "count":
			num, err := strconv.Atoi(attr.Value)
			if err != nil {
				return err
			}
			t.Count = num
		case "material":
			t.Material = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "input":
				var input Input
				if err := d.DecodeElement(&input, &el); err != nil {
					return err
				}
				t.Inputs = append(t.Inputs, input)
			case "p":
				var raw string
				if err := d.DecodeElement(&raw, &el); err != nil {
					return err
				}
				for _, r := range strings.Fields(raw) {
					num, err := strconv.Atoi(r)
					if err != nil {
						return err
					}
					t.Index = append(t.Index, num)
				}
			}
		case xml.EndElement:
			if el == start.End() {
				return nil
			}
		}
	}
}

// Input is Collada's input type.
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   uint   `xml:"offset,attr"`
}
