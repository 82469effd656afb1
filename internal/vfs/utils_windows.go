//go:build windows

package vfs

import (
	"fmt"
	"path/filepath"

	"github.com/stirante/dokan-go"
	"golang.org/x/sys/windows"
)

// callerName names the process behind a dokan request, falling back to its PID.
func callerName(fi *dokan.FileInfo) string {
	if name, err := getProcessName(uint32(fi.ProcessId())); err == nil && name != "" {
		return name
	}
	return fmt.Sprintf("PID:%d", fi.ProcessId())
}

// getProcessName gets the process name (basename) from a given PID.
func getProcessName(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)

	var buf [windows.MAX_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}
