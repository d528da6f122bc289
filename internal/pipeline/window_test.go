package pipeline_test

import (
	"fmt"
	"testing"

	"telegram-search/internal/pipeline"
)

func TestWindowContains(t *testing.T) {
	t.Parallel()

	w := pipeline.NewWindow(10)

	if w.Contains("0xff") {
		t.Fatal("empty window reported a duplicate")
	}

	w.Add("0xff")
	if !w.Contains("0xff") {
		t.Fatal("exact hash not found in window")
	}
	// Дистанция 2 — в пределах порога 3.
	if !w.Contains("0xfc") {
		t.Fatal("near hash (distance 2) not treated as duplicate")
	}
	// Дистанция 8 — далеко за порогом.
	if w.Contains("0x0") {
		t.Fatal("distant hash treated as duplicate")
	}
}

func TestWindowEviction(t *testing.T) {
	t.Parallel()

	const capacity = 4
	w := pipeline.NewWindow(capacity)

	// Заполняем окно далёкими друг от друга отпечатками.
	hashes := []string{
		"0x000000000000000f",
		"0x00000000000000f0",
		"0x0000000000000f00",
		"0x000000000000f000",
		"0x00000000000f0000",
	}
	for _, h := range hashes {
		w.Add(h)
	}

	if w.Len() != capacity {
		t.Fatalf("Len() = %d, want %d", w.Len(), capacity)
	}
	// Самый старый вытеснен, самый новый на месте.
	if w.Contains(hashes[0]) {
		t.Fatalf("oldest hash %s survived eviction", hashes[0])
	}
	if !w.Contains(hashes[len(hashes)-1]) {
		t.Fatalf("newest hash %s missing", hashes[len(hashes)-1])
	}
}

func TestWindowAddAll(t *testing.T) {
	t.Parallel()

	w := pipeline.NewWindow(100)

	var hashes []string
	for i := range 5 {
		hashes = append(hashes, fmt.Sprintf("0x%x", uint64(0xf)<<(8*i)))
	}
	w.AddAll(hashes)

	if w.Len() != len(hashes) {
		t.Fatalf("Len() = %d, want %d", w.Len(), len(hashes))
	}
	for _, h := range hashes {
		if !w.Contains(h) {
			t.Fatalf("hash %s missing after AddAll", h)
		}
	}
}
