package mux

import (
	"os"
	"os/exec"
)

// tmuxCandidates are checked in order before falling back to PATH.
// Browsers launch native hosts with a minimal PATH, so package-manager
// locations have to be probed explicitly.
var tmuxCandidates = []string{
	"/opt/homebrew/bin/tmux", // Homebrew on Apple Silicon
	"/usr/local/bin/tmux",    // Homebrew on Intel, manual installs
	"/usr/bin/tmux",          // system package manager
}

// FindTmux resolves the tmux binary: the configured path if set, else the
// first existing candidate, else whatever PATH yields, else plain "tmux"
// so the eventual exec error names the missing binary.
func FindTmux(configured string) string {
	return findTmux(configured, tmuxCandidates, fileExists, exec.LookPath)
}

func findTmux(configured string, candidates []string, exists func(string) bool, lookPath func(string) (string, error)) string {
	if configured != "" {
		return configured
	}
	for _, p := range candidates {
		if exists(p) {
			return p
		}
	}
	if p, err := lookPath("tmux"); err == nil && p != "" {
		return p
	}
	return "tmux"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
