package levels

import "testing"

func TestLoad(t *testing.T) {
	names := Names()
	if len(names) < 2 {
		t.Fatalf("expected embedded levels, got %v", names)
	}
	for _, name := range names {
		if _, err := Load(name); err != nil {
			t.Fatalf("Load(%q): %v", name, err)
		}
	}
	if _, err := Load("tutorial"); err != nil {
		t.Fatalf("Load without extension: %v", err)
	}
	if _, err := Load("missing"); err == nil {
		t.Fatalf("expected error for missing level")
	}
}
