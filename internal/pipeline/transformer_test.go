package pipeline_test

import (
	"testing"
	"time"

	"telegram-search/internal/pipeline"
)

func TestTransform(t *testing.T) {
	t.Parallel()

	raw := pipeline.RawMessage{
		ChatID:       1001234,
		MsgID:        42,
		Text:         "上海  疫情最新通報",
		Date:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ChatTitle:    "Shanghai News",
		ChatUsername: "shanghainews",
	}

	doc, err := pipeline.Transform(raw)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}

	if doc.ID != "1001234_42" {
		t.Fatalf("ID = %q, want %q", doc.ID, "1001234_42")
	}
	if doc.Date != 1704067200 {
		t.Fatalf("Date = %d, want 1704067200", doc.Date)
	}
	if doc.URL != "https://t.me/shanghainews/42" {
		t.Fatalf("URL = %q, want synthesized t.me link", doc.URL)
	}
	if doc.TextNorm != "上海 疫情最新通報" {
		t.Fatalf("TextNorm = %q, want collapsed whitespace", doc.TextNorm)
	}
	if doc.Simp == "" || doc.Trad == "" || doc.Pinyin == "" {
		t.Fatalf("script variants not populated: simp=%q trad=%q pinyin=%q", doc.Simp, doc.Trad, doc.Pinyin)
	}
	if doc.Simhash == "" || doc.Simhash == "0" {
		t.Fatalf("Simhash = %q, want non-empty fingerprint", doc.Simhash)
	}
}

func TestTransformEdgeCases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		raw   pipeline.RawMessage
		check func(t *testing.T, doc pipeline.Document)
	}{
		{
			name: "explicitURLKept",
			raw: pipeline.RawMessage{
				ChatID:       1,
				MsgID:        2,
				Text:         "linked message",
				ChatUsername: "chan",
				URL:          "https://example.com/post",
			},
			check: func(t *testing.T, doc pipeline.Document) {
				t.Helper()
				if doc.URL != "https://example.com/post" {
					t.Fatalf("URL = %q, want explicit value preserved", doc.URL)
				}
			},
		},
		{
			name: "noUsernameNoURL",
			raw:  pipeline.RawMessage{ChatID: 1, MsgID: 2, Text: "private channel post"},
			check: func(t *testing.T, doc pipeline.Document) {
				t.Helper()
				if doc.URL != "" {
					t.Fatalf("URL = %q, want empty for channel without username", doc.URL)
				}
			},
		},
		{
			name: "zeroDate",
			raw:  pipeline.RawMessage{ChatID: 1, MsgID: 2, Text: "undated message"},
			check: func(t *testing.T, doc pipeline.Document) {
				t.Helper()
				if doc.Date != 0 {
					t.Fatalf("Date = %d, want 0 for zero time", doc.Date)
				}
			},
		},
		{
			name: "mediaTypeCarried",
			raw:  pipeline.RawMessage{ChatID: 1, MsgID: 2, Text: "photo caption here", MediaType: "photo"},
			check: func(t *testing.T, doc pipeline.Document) {
				t.Helper()
				if doc.MediaType != "photo" {
					t.Fatalf("MediaType = %q, want %q", doc.MediaType, "photo")
				}
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			doc, err := pipeline.Transform(tc.raw)
			if err != nil {
				t.Fatalf("Transform() error: %v", err)
			}
			tc.check(t, doc)
		})
	}
}
