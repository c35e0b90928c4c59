// Package backup manages library backup files on disk.
package backup

import "errors"

var (
	// ErrBackupNotFound indicates the requested backup does not exist.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrInvalidBackupID indicates an id that does not name a file in the backup directory.
	ErrInvalidBackupID = errors.New("invalid backup id")
)
