// Package version reports the build identity of the salonrecon binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X salonrecon/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info is served by the health endpoint and printed by -version.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Module    string `json:"module,omitempty"`
	Revision  string `json:"revision,omitempty"`
	Committed string `json:"committed,omitempty"`
	Dirty     bool   `json:"dirty"`
}

// Get collects version information from ldflags and the embedded build info.
func Get() Info {
	info := Info{Version: Version, BuildTime: BuildTime}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	info.Module = bi.Main.Path

	// go install of a tagged module gives a version without ldflags
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.time":
			info.Committed = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// ShortRevision is the first 8 characters of the commit hash.
func (i Info) ShortRevision() string {
	if len(i.Revision) > 8 {
		return i.Revision[:8]
	}
	return i.Revision
}

func (i Info) String() string {
	parts := []string{"salonrecon " + i.Version}
	if i.BuildTime != "unknown" {
		parts = append(parts, "built "+i.BuildTime)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	if rev := i.ShortRevision(); rev != "" {
		if i.Dirty {
			rev += "+dirty"
		}
		parts = append(parts, fmt.Sprintf("commit %s", rev))
	}
	if i.Committed != "" {
		parts = append(parts, "committed "+i.Committed)
	}
	return strings.Join(parts, ", ")
}

// Check returns a warning for builds that cannot be traced to a commit,
// or "" when the build is clean.
func (i Info) Check() string {
	switch {
	case i.Dirty:
		return "Warning: binary built from a modified source tree"
	case i.Revision == "" && i.Version == "dev":
		return "Warning: no version control information (development build)"
	}
	return ""
}
