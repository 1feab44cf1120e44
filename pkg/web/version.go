package web

import (
	"runtime"
	"sync"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go_version"`
}

var (
	buildMu sync.RWMutex
	build   = BuildInfo{Version: "dev", Commit: "unknown", Built: "unknown"}
)

// SetVersionInfo records the build stamped into main
func SetVersionInfo(version, commit, built string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	build = BuildInfo{Version: version, Commit: commit, Built: built}
}

// GetVersionInfo returns the recorded build
func GetVersionInfo() BuildInfo {
	buildMu.RLock()
	defer buildMu.RUnlock()
	info := build
	info.GoVersion = runtime.Version()
	return info
}
