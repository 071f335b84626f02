package version

import (
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	i := Info{
		Version:   "v1.2.0",
		BuildTime: "2026-10-01T12:00:00Z",
		GoVersion: "go1.24.0",
		Revision:  "0123456789abcdef",
		Dirty:     true,
	}

	s := i.String()
	for _, want := range []string{"salonrecon v1.2.0", "built 2026-10-01T12:00:00Z", "go1.24.0", "commit 01234567+dirty"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestInfoStringOmitsUnknownBuildTime(t *testing.T) {
	s := Info{Version: "dev", BuildTime: "unknown"}.String()
	if strings.Contains(s, "built") {
		t.Errorf("String() = %q, should not mention build time", s)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"clean", Info{Version: "v1.0.0", Revision: "abc"}, ""},
		{"dirty", Info{Version: "v1.0.0", Revision: "abc", Dirty: true}, "modified"},
		{"dev", Info{Version: "dev"}, "development build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info.Check()
			if tt.want == "" {
				if got != "" {
					t.Errorf("Check() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Check() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestShortRevision(t *testing.T) {
	if got := (Info{Revision: "abc"}).ShortRevision(); got != "abc" {
		t.Errorf("ShortRevision() = %q", got)
	}
	if got := (Info{Revision: "0123456789"}).ShortRevision(); got != "01234567" {
		t.Errorf("ShortRevision() = %q", got)
	}
}
