package hostcfg

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Defaults() {
		t.Fatalf("got %+v, want defaults %+v", s, Defaults())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")

	want := Defaults()
	want.Scale = 5
	want.LastROM = "/roms/tetris.gb"
	want.Keys.A = "J"

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := Settings{Scale: 0, AudioBufferMs: -1, ROMsDir: ""}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"scale", "audio_buffer_ms", "roms_dir"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not report %s", err, field)
		}
	}
}
