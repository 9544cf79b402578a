package catalog

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/campuseats/ordering/internal/restaurant"
)

func newDirectory(t *testing.T) *restaurant.Directory {
	t.Helper()
	return restaurant.NewDirectory(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestParse(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	input := strings.Join([]string{
		`Campus Bistro,pasta:8.5;salad:3.5,1 University Walk`,
		`Night Grill,wings:6:afterwork,2 College Road`,
		`,orphan:1,nowhere`,
		`Broken Menus,not-a-menu;soup:4,3 Library Lane`,
		`Too Few Fields,only-two`,
	}, "\n")

	dir := newDirectory(t)
	loaded, err := Parse(strings.NewReader(input), dir, logger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if loaded != 3 {
		t.Fatalf("loaded = %d, want 3", loaded)
	}

	bistro, ok := dir.ByName("Campus Bistro")
	if !ok {
		t.Fatal("Campus Bistro not registered")
	}
	if len(bistro.Menus()) != 2 {
		t.Fatalf("bistro menus = %d, want 2", len(bistro.Menus()))
	}
	if bistro.Address() != "1 University Walk" {
		t.Fatalf("address = %q", bistro.Address())
	}

	grill, ok := dir.ByName("Night Grill")
	if !ok {
		t.Fatal("Night Grill not registered")
	}
	wings, ok := grill.MenuByName("wings")
	if !ok {
		t.Fatal("wings menu missing")
	}
	if !wings.AfterWork() {
		t.Fatal("wings should be flagged as an after-work menu")
	}

	// the bad entry is skipped but the good one on the same line survives
	broken, ok := dir.ByName("Broken Menus")
	if !ok {
		t.Fatal("Broken Menus not registered")
	}
	if len(broken.Menus()) != 1 {
		t.Fatalf("broken menus = %d, want 1", len(broken.Menus()))
	}

	if _, ok := dir.ByName("Too Few Fields"); ok {
		t.Fatal("record with too few fields should be skipped")
	}
}

func TestParseEmptyInput(t *testing.T) {
	dir := newDirectory(t)
	loaded, err := Parse(strings.NewReader(""), dir, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if loaded != 0 {
		t.Fatalf("loaded = %d, want 0", loaded)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := newDirectory(t)
	if _, err := Load(t.TempDir()+"/missing.csv", dir, nil); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
