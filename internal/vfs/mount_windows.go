//go:build windows

package vfs

import (
	"context"

	"github.com/stirante/dokan-go"
)

// Mount serves fs at mountPoint until ctx is cancelled.
func Mount(ctx context.Context, mountPoint string, fs *ProxyFS) error {
	m, err := dokan.Mount(&dokan.Config{
		Path:       mountPoint,
		FileSystem: fs,
	})
	if err != nil {
		return err
	}
	fs.Logger.Info("mounted", "physical", fs.PhysicalPath, "mount_point", mountPoint)

	go func() {
		<-ctx.Done()
		fs.Logger.Info("unmounting", "mount_point", mountPoint)
		m.Close()
	}()

	return m.BlockTillDone()
}
