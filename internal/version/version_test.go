package version

import (
	"runtime"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" || info.Commit == "" || info.Date == "" {
		t.Errorf("Get() has empty fields: %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != want {
		t.Errorf("Platform = %q, want %q", info.Platform, want)
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "2.1.0", Commit: "deadbeef", Date: "2024-06-01"}

	if got, want := info.String(), "2.1.0 (deadbeef) built 2024-06-01"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
