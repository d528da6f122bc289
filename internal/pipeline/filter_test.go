package pipeline_test

import (
	"testing"

	"telegram-search/internal/pipeline"
)

func TestFilterApply(t *testing.T) {
	t.Parallel()

	f := pipeline.NewFilter(5)

	cases := []struct {
		name string
		doc  pipeline.Document
		want bool
	}{
		{
			name: "passes",
			doc:  pipeline.Document{TextNorm: "достаточно длинный текст"},
			want: true,
		},
		{
			name: "emptyText",
			doc:  pipeline.Document{TextNorm: ""},
			want: false,
		},
		{
			name: "serviceMessage",
			doc:  pipeline.Document{TextNorm: "участник вступил в канал", MediaType: "service"},
			want: false,
		},
		{
			name: "tooShortRunes",
			doc:  pipeline.Document{TextNorm: "你好"},
			want: false,
		},
		{
			name: "exactMinLengthRunes",
			doc:  pipeline.Document{TextNorm: "你好世界啊"},
			want: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := f.Apply(tc.doc); got != tc.want {
				t.Fatalf("Apply(%+v) = %v, want %v", tc.doc, got, tc.want)
			}
		})
	}
}

func TestFilterDefaultMinLength(t *testing.T) {
	t.Parallel()

	// Неположительный порог заменяется на значение по умолчанию.
	f := pipeline.NewFilter(0)
	if f.MinLength(pipeline.Document{TextNorm: "1234"}) {
		t.Fatal("MinLength accepted text shorter than the default threshold")
	}
	if !f.MinLength(pipeline.Document{TextNorm: "12345"}) {
		t.Fatal("MinLength rejected text of the default threshold length")
	}
}
