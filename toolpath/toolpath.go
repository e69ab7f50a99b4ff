// Package toolpath resolves backend CLI executables. Bundled binaries
// (shipped next to the deskagent executable for installs without npm or
// cargo) take priority over PATH lookup. An unresolvable tool is reported
// as absent, never as an error: callers fold it to "provider unavailable".
package toolpath

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// BundledDirEnv overrides the bundled-binary search directory.
const BundledDirEnv = "DESKAGENT_BUNDLED_DIR"

// bundledBinaries maps (tool, os, arch) to the bundled binary filename.
var bundledBinaries = map[[3]string]string{
	{"claude", "windows", "amd64"}: "claude-x86_64-pc-windows-msvc.exe",
	{"claude", "darwin", "arm64"}:  "claude-aarch64-apple-darwin",
	{"claude", "darwin", "amd64"}:  "claude-x86_64-apple-darwin",
	{"claude", "linux", "amd64"}:   "claude-x86_64-unknown-linux-gnu",
	{"claude", "linux", "arm64"}:   "claude-aarch64-unknown-linux-gnu",
	{"codex", "windows", "amd64"}:  "codex-x86_64-pc-windows-msvc.exe",
	{"codex", "darwin", "arm64"}:   "codex-aarch64-apple-darwin",
	{"codex", "darwin", "amd64"}:   "codex-x86_64-apple-darwin",
	{"codex", "linux", "amd64"}:    "codex-x86_64-unknown-linux-gnu",
	{"codex", "linux", "arm64"}:    "codex-aarch64-unknown-linux-gnu",
}

// Resolve returns the full path to a tool binary and whether it was found.
// Bundled binaries are checked first, then PATH.
func Resolve(tool string) (string, bool) {
	if path, ok := bundledPath(tool); ok {
		return path, true
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", false
	}
	return path, true
}

// bundledPath locates a bundled binary for the current platform.
func bundledPath(tool string) (string, bool) {
	name, ok := bundledBinaries[[3]string{tool, runtime.GOOS, runtime.GOARCH}]
	if !ok {
		return "", false
	}

	for _, dir := range searchDirs() {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// searchDirs lists bundled-binary directories in priority order.
func searchDirs() []string {
	var dirs []string
	if dir := os.Getenv(BundledDirEnv); dir != "" {
		dirs = append(dirs, dir)
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Join(exeDir, "bundled"))
	}
	return dirs
}
