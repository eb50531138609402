package util

import (
	"fmt"
	"os"
	"syscall"
)

// FileInfo identifies one version of a file on disk
type FileInfo struct {
	ModTime int64  // Last modification time in nanoseconds
	Size    int64  // File size in bytes
	Inode   uint64 // Inode number (unique file identifier on Unix-like systems)
}

// GetFileInfo retrieves detailed file information, including inode number.
// Supported on Linux and macOS.
func GetFileInfo(filepath string) (*FileInfo, error) {
	stat, err := os.Stat(filepath)
	if err != nil {
		return nil, err
	}

	sysStat, ok := stat.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("failed to get file system information: %s", filepath)
	}

	return &FileInfo{
		ModTime: stat.ModTime().UnixNano(),
		Size:    stat.Size(),
		Inode:   sysStat.Ino,
	}, nil
}

// Version renders the identity of this file version, so a rewritten file
// gets a new cache key
func (fi *FileInfo) Version() string {
	return fmt.Sprintf("%d:%d:%d", fi.Inode, fi.Size, fi.ModTime)
}
