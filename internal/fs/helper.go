package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/substantialcattle5/backup/internal/constants"
)

// PathType classifies what a filesystem path currently is.
type PathType int

const (
	PathTypeError PathType = iota
	PathTypeDir
	PathTypeFile
)

func (p PathType) String() string {
	switch p {
	case PathTypeDir:
		return "directory"
	case PathTypeFile:
		return "file"
	default:
		return "error"
	}
}

// GetPathInfo stats path and classifies it. Anything that is not a directory
// (regular files, devices, sockets) is reported as PathTypeFile.
func GetPathInfo(path string) (os.FileInfo, PathType, error) {
	info, err := VerifyPathAndReturnInfo(path)
	if err != nil {
		return nil, PathTypeError, err
	}
	if info.IsDir() {
		return info, PathTypeDir, nil
	}
	return info, PathTypeFile, nil
}

// VerifyPathAndReturnInfo stats path, naming the failure when it is missing
// or not accessible.
func VerifyPathAndReturnInfo(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path does not exist: %s: %w", path, err)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied: %s: %w", path, err)
		}
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	return info, nil
}

// IsDirectory reports whether path exists and is a directory.
func IsDirectory(path string) bool {
	_, pathType, err := GetPathInfo(path)
	return err == nil && pathType == PathTypeDir
}

// EnsureDirectory ensures a directory exists, creating it if necessary
func EnsureDirectory(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, constants.StandardDirPerms)
	} else if err != nil {
		return err
	}
	return nil
}

// EnsureDirectoryExists creates path as a directory when nothing exists there
// yet and then classifies it. An existing file is left alone and reported as
// PathTypeFile.
func EnsureDirectoryExists(path string) (PathType, error) {
	if err := EnsureDirectory(path); err != nil {
		return PathTypeError, fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	_, pathType, err := GetPathInfo(path)
	return pathType, err
}

// EnsureParentDirectory creates every missing directory above path.
func EnsureParentDirectory(path string) error {
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, constants.StandardDirPerms); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", parent, err)
	}
	return nil
}

// IsEmptyDirectory reports whether path is a directory with no entries.
func IsEmptyDirectory(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
