package app_test

import (
	"testing"

	"telegram-search/internal/app"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    app.Mode
		wantErr bool
	}{
		{in: "historical", want: app.ModeHistorical},
		{in: "realtime", want: app.ModeRealtime},
		{in: "both", want: app.ModeBoth},
		{in: "", wantErr: true},
		{in: "Historical", wantErr: true},
		{in: "stream", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := app.ParseMode(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseMode(%q) accepted invalid mode", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
