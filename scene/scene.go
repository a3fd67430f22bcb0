package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is a scene exported by the Tiled level editor. Only the fields
// needed to build recipes are decoded; editor metadata such as object ids,
// names, visibility and tile data is ignored.
type Document struct {
	Layers     []Layer    `json:"layers"`
	Properties []Property `json:"properties,omitempty"`
}

// Layer is an object group, a tile layer (no objects) or a group layer
// holding nested layers.
type Layer struct {
	Name    string   `json:"name,omitempty"`
	Type    string   `json:"type,omitempty"`
	Objects []Object `json:"objects,omitempty"`
	Layers  []Layer  `json:"layers,omitempty"`
}

// Object is a placed editor object. Position is the top-left corner in
// editor space (Y down) and rotation is in clockwise degrees around it.
type Object struct {
	Type       string     `json:"type"`
	Class      string     `json:"class,omitempty"`
	X          *float64   `json:"x" validate:"required"`
	Y          *float64   `json:"y" validate:"required"`
	Width      *float64   `json:"width" validate:"required"`
	Height     *float64   `json:"height" validate:"required"`
	Rotation   float64    `json:"rotation"`
	Polyline   []Point    `json:"polyline"`
	Ellipse    any        `json:"ellipse"`
	Properties []Property `json:"properties" validate:"dive"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Property struct {
	Name  string `json:"name" validate:"required"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

// Kind returns the recipe type of the object. Tiled 1.9 moved the object
// type into "class"; older exports only carry "type".
func (o *Object) Kind() string {
	if o.Type != "" {
		return o.Type
	}
	return o.Class
}

// PropertyMap flattens a property list into a map. Later duplicates win.
// A nil list yields a nil map.
func PropertyMap(props []Property) map[string]any {
	if props == nil {
		return nil
	}
	m := make(map[string]any, len(props))
	for _, p := range props {
		m[p.Name] = p.Value
	}
	return m
}

// LayerPath addresses a layer by its index at every nesting level.
type LayerPath []int

func (p LayerPath) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// Placed is an object together with its position in the document.
type Placed struct {
	Layer  LayerPath
	Index  int
	Object *Object
}

// Objects returns every object in traversal order: layers in document order,
// group layers depth-first, objects in layer order.
func (d *Document) Objects() []Placed {
	var out []Placed
	var walk func(layers []Layer, parent LayerPath)
	walk = func(layers []Layer, parent LayerPath) {
		for li := range layers {
			path := append(append(LayerPath(nil), parent...), li)
			l := &layers[li]
			for oi := range l.Objects {
				out = append(out, Placed{Layer: path, Index: oi, Object: &l.Objects[oi]})
			}
			if len(l.Layers) > 0 {
				walk(l.Layers, path)
			}
		}
	}
	walk(d.Layers, nil)
	return out
}

type rawDocument struct {
	Layers     json.RawMessage `json:"layers"`
	Properties []Property      `json:"properties"`
}

// Parse decodes a scene document. It fails with a *ParseError when data is
// not JSON, when "layers" is missing, null or not an array, or when a field
// has the wrong JSON type.
func Parse(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	layers := bytes.TrimSpace(raw.Layers)
	if len(layers) == 0 || bytes.Equal(layers, []byte("null")) {
		return nil, &ParseError{Err: fmt.Errorf("missing \"layers\"")}
	}
	if layers[0] != '[' {
		return nil, &ParseError{Err: fmt.Errorf("\"layers\" is not an array")}
	}

	doc := &Document{Properties: raw.Properties}
	if err := json.Unmarshal(layers, &doc.Layers); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("layers: %w", err)}
	}
	return doc, nil
}
