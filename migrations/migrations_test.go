package migrations

import (
	"strings"
	"testing"
)

func TestFS_ContainsGooseAnnotations(t *testing.T) {
	b, err := FS.ReadFile("00001_device_storage.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(b)
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "device_storage"} {
		if !strings.Contains(s, want) {
			t.Fatalf("migration missing %q", want)
		}
	}
}
