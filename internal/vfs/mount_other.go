//go:build !windows

package vfs

import (
	"context"
	"errors"
	"log/slog"
)

// ErrMountUnsupported is returned by Mount outside Windows.
var ErrMountUnsupported = errors.New("mount requires Windows and Dokany")

// ProxyFS is only functional on Windows.
type ProxyFS struct {
	PhysicalPath string
	Filter       *Filter
	Codec        *Codec
	Logger       *slog.Logger
}

func NewProxyFS(physicalPath string, filter *Filter, codec *Codec, logger *slog.Logger) *ProxyFS {
	return &ProxyFS{PhysicalPath: physicalPath, Filter: filter, Codec: codec, Logger: logger}
}

func Mount(ctx context.Context, mountPoint string, fs *ProxyFS) error {
	return ErrMountUnsupported
}
