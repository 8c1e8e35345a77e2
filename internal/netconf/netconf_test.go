package netconf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSeedsParsesValidRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seeds.csv")
	content := "127.0.0.1, 9001\n127.0.0.1,9002\n\nbadrow\n10.0.0.1,notaport\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("LoadSeeds: %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("expected 2 valid seeds, got %d: %+v", len(seeds), seeds)
	}
	if seeds[0].IP != "127.0.0.1" || seeds[0].Port != 9001 {
		t.Fatalf("unexpected first seed: %+v", seeds[0])
	}
}

func TestLoadSeedsMissingFile(t *testing.T) {
	if _, err := LoadSeeds("/nonexistent/seeds.csv"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestQuorum(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 3, 0: 1}
	for n, want := range cases {
		if got := Quorum(n); got != want {
			t.Errorf("Quorum(%d) = %d, want %d", n, got, want)
		}
	}
}
