// Package backup keeps a single copy of an environment file next to it.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dasanik2001/manage-env/envfile"
)

const Suffix = ".backup"

var (
	ErrSourceNotFound = errors.New("source file not found")
	ErrBackupNotFound = errors.New("no backup file found")
)

func PathFor(source string) string {
	return source + Suffix
}

// Backup copies source over backupPath, replacing any previous backup.
func Backup(source, backupPath string) error {
	if err := mustExist(source, ErrSourceNotFound); err != nil {
		return err
	}
	return envfile.CopyAtomic(source, backupPath)
}

// Restore copies backupPath back over source.
func Restore(source, backupPath string) error {
	if err := mustExist(backupPath, ErrBackupNotFound); err != nil {
		return err
	}
	return envfile.CopyAtomic(backupPath, source)
}

func mustExist(path string, notFound error) error {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, notFound)
	}
	return err
}
