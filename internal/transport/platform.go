package transport

import (
	"os"
	"runtime"
)

// Platform is the environment the process runs in, detected once by
// the Manager and cached for its lifetime.
type Platform struct {
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	Mobile   bool   `json:"mobile"`
	Headless bool   `json:"headless"`
}

// DetectPlatform inspects the runtime environment. Mobile builds
// (android, ios) prefer the deep-link handoff; headless hosts have no
// display session to open dialogs or URIs in.
func DetectPlatform() Platform {
	p := Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
	switch runtime.GOOS {
	case "android", "ios":
		p.Mobile = true
	case "linux":
		p.Headless = os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
	}
	return p
}
