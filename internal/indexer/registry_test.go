package indexer_test

import (
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"

	"telegram-search/internal/indexer"
)

func TestRegistryAddListRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "channels.json")
	registry := indexer.NewRegistry(path)

	ch, err := registry.Add(1002, "second", "Second Channel")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !ch.Enabled {
		t.Fatal("new channel must be enabled by default")
	}
	if ch.AddedAt.IsZero() {
		t.Fatal("AddedAt not set for new channel")
	}
	if _, err = registry.Add(1001, "first", "First Channel"); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	list := registry.List()
	if len(list) != 2 {
		t.Fatalf("List() len = %d, want 2", len(list))
	}
	// Список стабильно отсортирован по id.
	if list[0].ChannelID != 1001 || list[1].ChannelID != 1002 {
		t.Fatalf("List() order = [%d %d], want [1001 1002]", list[0].ChannelID, list[1].ChannelID)
	}

	removed, err := registry.Remove(1001)
	if err != nil || !removed {
		t.Fatalf("Remove() = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = registry.Remove(1001)
	if err != nil || removed {
		t.Fatalf("repeat Remove() = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestRegistryUpdateKeepsFlags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "channels.json")
	registry := indexer.NewRegistry(path)

	first, err := registry.Add(5, "oldname", "Old Title")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	updated, err := registry.Add(5, "newname", "New Title")
	if err != nil {
		t.Fatalf("Add() update error: %v", err)
	}
	if updated.Username != "newname" || updated.Title != "New Title" {
		t.Fatalf("update did not apply: %+v", updated)
	}
	// enabled и added_at переживают обновление.
	if updated.Enabled != first.Enabled || !updated.AddedAt.Equal(first.AddedAt) {
		t.Fatalf("update clobbered flags: %+v vs %+v", updated, first)
	}
}

func TestRegistryPersistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "channels.json")
	if _, err := indexer.NewRegistry(path).Add(9, "chan", "Chan"); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	reloaded := indexer.NewRegistry(path)
	ch, ok := reloaded.Get(9)
	if !ok {
		t.Fatal("channel lost after reload")
	}
	if ch.Username != "chan" {
		t.Fatalf("Username after reload = %q, want %q", ch.Username, "chan")
	}
}

func TestRegistryInvalidID(t *testing.T) {
	t.Parallel()

	registry := indexer.NewRegistry(filepath.Join(t.TempDir(), "channels.json"))

	if _, err := registry.Add(0, "x", ""); !errors.Is(err, indexer.ErrInvalidChannelID) {
		t.Fatalf("Add(0) error = %v, want ErrInvalidChannelID", err)
	}
	if _, err := registry.Remove(-1); !errors.Is(err, indexer.ErrInvalidChannelID) {
		t.Fatalf("Remove(-1) error = %v, want ErrInvalidChannelID", err)
	}
}
