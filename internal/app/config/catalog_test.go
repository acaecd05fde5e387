package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exercises.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
exercises:
  - name: "Hand Open/Close"
    joint: "Hand"
  - name: "Wrist Flexion"
    joint: "Wrist"
    dwell: 4s
`)

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(c.Exercises) != 2 {
		t.Fatalf("loaded %d exercises, want 2", len(c.Exercises))
	}
	if c.Exercises[0].Name != "Hand Open/Close" || c.Exercises[0].Joint != "Hand" {
		t.Errorf("first entry = %+v", c.Exercises[0])
	}
	if got := time.Duration(c.Exercises[1].Dwell); got != 4*time.Second {
		t.Errorf("dwell override = %v, want 4s", got)
	}
	if c.Exercises[0].Dwell != 0 {
		t.Errorf("unset dwell = %v, want 0", c.Exercises[0].Dwell)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty plan", content: "exercises: []\n"},
		{name: "nameless entry", content: "exercises:\n  - joint: Hand\n"},
		{name: "bad duration", content: "exercises:\n  - name: x\n    dwell: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCatalog(writeCatalog(t, tt.content)); err == nil {
				t.Error("LoadCatalog() succeeded, want error")
			}
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadCatalog() on missing file succeeded")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if len(c.Exercises) != 3 {
		t.Fatalf("default catalog has %d exercises, want 3", len(c.Exercises))
	}
}
