package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrExists is returned by WriteAtomic when the destination exists and
// replacement was not requested.
var ErrExists = errors.New("destination already exists")

// ErrInsufficientSpace is returned by EnsureFreeSpace.
var ErrInsufficientSpace = errors.New("insufficient free space")

// Exists reports whether path exists. Errors other than "not exist" are
// returned.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// CheckWritableDir verifies that dir exists, is a directory, and that the
// current user may create files in it.
func CheckWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	return nil
}

// FreeBytes returns the space available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureFreeSpace fails when writing need bytes into dir would leave less
// than reserve bytes free.
func EnsureFreeSpace(dir string, need, reserve uint64) error {
	free, err := FreeBytes(dir)
	if err != nil {
		return fmt.Errorf("check free space: %w", err)
	}
	if free < need+reserve {
		return fmt.Errorf("%w: %d bytes free in %s, need %d plus %d reserved", ErrInsufficientSpace, free, dir, need, reserve)
	}
	return nil
}

// WriteAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial file. Unless overwrite is
// set, an existing path fails with ErrExists.
func WriteAtomic(path string, data []byte, mode os.FileMode, overwrite bool) error {
	if !overwrite {
		exists, err := Exists(path)
		if err != nil {
			return fmt.Errorf("stat destination: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}

	if !overwrite {
		// Link fails if the destination appeared since the check above.
		if err := os.Link(tmpName, path); err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%w: %s", ErrExists, path)
			}
			return err
		}
		committed = true
		_ = os.Remove(tmpName)
		return nil
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
