package vfs

import (
	"path/filepath"
	"strings"
)

// Filter decides which files are probed and, when mounted, which processes
// see them transcoded.
type Filter struct {
	AllowedProcesses  []string
	AllowedExtensions []string
}

// NewFilter creates a new Filter with the given settings.
func NewFilter(processes, extensions []string) *Filter {
	return &Filter{
		AllowedProcesses:  processes,
		AllowedExtensions: extensions,
	}
}

// ShouldProcess checks if the process and file should be handled.
func (f *Filter) ShouldProcess(processName string, path string) bool {
	if !f.matchProcess(processName) {
		return false
	}
	return f.MatchPath(path)
}

// MatchPath reports whether path has one of the allowed extensions. An empty
// extension list matches everything.
func (f *Filter) MatchPath(path string) bool {
	if len(f.AllowedExtensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range f.AllowedExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// An empty process list allows every process.
func (f *Filter) matchProcess(name string) bool {
	if len(f.AllowedProcesses) == 0 {
		return true
	}
	for _, p := range f.AllowedProcesses {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
