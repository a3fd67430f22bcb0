package levels

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Sample Tiled exports. tutorial.json exercises every recipe feature;
// broken.json has an object without a width.
//
//go:embed *.json
var LevelsFS embed.FS

// Load returns the raw bytes of an embedded scene. The .json extension is
// optional.
func Load(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	data, err := fs.ReadFile(LevelsFS, path.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	return data, nil
}

// Names lists the embedded scenes in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(LevelsFS, ".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
