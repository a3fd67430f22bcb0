package recipe

import (
	"encoding/json"
	"fmt"

	"github.com/milk9111/sceneexport/scene"
)

// Encode writes the document as indented JSON with a trailing newline.
func Encode(doc *Document) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode recipes: %w", err)
	}
	return append(b, '\n'), nil
}

// ExportBytes parses a raw scene, exports it and encodes the result.
func ExportBytes(data []byte, opts Options) ([]byte, *Document, error) {
	sc, err := scene.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	doc, err := Export(sc, opts)
	if err != nil {
		return nil, nil, err
	}
	out, err := Encode(doc)
	if err != nil {
		return nil, nil, err
	}
	return out, doc, nil
}
