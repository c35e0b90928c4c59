package backup

import (
	"time"

	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
)

const (
	filePrefix = "openbook_library_"
	fileSuffix = ".json"

	// idLayout sorts lexically in creation order.
	idLayout = "2006-01-02-150405.000"
)

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string        `json:"path"`
	Counts   Counts        `json:"counts"`
	Duration time.Duration `json:"duration"`
	Size     int64         `json:"size"`
}

// Counts summarises a backup's contents.
type Counts struct {
	Lists     int `json:"lists"`
	Books     int `json:"books"`
	ListBooks int `json:"list_books"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
}

// RestoreResult contains the outcome of a restore.
type RestoreResult struct {
	backupimport.Result
	Path     string            `json:"path"`
	Mode     backupimport.Mode `json:"mode"`
	Duration time.Duration     `json:"duration"`
}
