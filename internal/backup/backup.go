package backup

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/openbookapp/openbook-library/internal/backup/export"
	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
	"github.com/openbookapp/openbook-library/internal/store"
)

// BackupService manages backup creation, listing and restore.
type BackupService struct {
	backupDir string
	logger    *slog.Logger
	exporter  *export.Exporter
	importer  *backupimport.Importer
	now       func() time.Time
}

// NewBackupService creates a BackupService writing into backupDir.
func NewBackupService(s store.Store, backupDir string, logger *slog.Logger) *BackupService {
	return &BackupService{
		backupDir: backupDir,
		logger:    logger,
		exporter:  export.New(s),
		importer:  backupimport.New(s, logger),
		now:       time.Now,
	}
}

// Dir returns the backup directory.
func (s *BackupService) Dir() string {
	return s.backupDir
}

// Create exports the library into a new file in the backup directory.
// The file appears atomically; a crash never leaves a partial backup behind.
func (s *BackupService) Create(ctx context.Context) (*BackupResult, error) {
	start := time.Now()

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	doc, err := s.exporter.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	path := s.Path(s.now().UTC().Format(idLayout))
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}

	result := &BackupResult{
		Path: path,
		Size: int64(len(data)),
		Counts: Counts{
			Lists:     len(doc.Lists),
			Books:     len(doc.Books),
			ListBooks: len(doc.ListBooks),
		},
		Duration: time.Since(start),
	}

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"books", result.Counts.Books,
		"duration", result.Duration)
	return result, nil
}

// List returns all available backups, newest first.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix),
			Path:      filepath.Join(s.backupDir, name),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	slices.SortFunc(backups, func(a, b BackupInfo) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return backups, nil
}

// Get returns a backup by ID.
func (s *BackupService) Get(ctx context.Context, id string) (*BackupInfo, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	path := s.Path(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return os.Remove(s.Path(id))
}

// Prune deletes all but the newest keep backups and returns how many were removed.
// A non-positive keep disables pruning.
func (s *BackupService) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	backups, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		return 0, nil
	}

	var removed int
	var errs []error
	for _, b := range backups[keep:] {
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", b.ID, err))
			continue
		}
		removed++
	}

	s.logger.Info("backups pruned", "removed", removed, "kept", keep)
	return removed, errors.Join(errs...)
}

// Restore imports a backup file. path may be a file path or a backup ID.
func (s *BackupService) Restore(ctx context.Context, path string, mode backupimport.Mode) (*RestoreResult, error) {
	start := time.Now()
	if mode == "" {
		mode = backupimport.ModeMerge
	}

	if _, err := os.Stat(path); os.IsNotExist(err) && checkID(path) == nil {
		path = s.Path(path)
	}

	s.logger.Info("starting restore", "path", path, "mode", mode)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("read backup: %w", err)
	}

	res, err := s.importer.Import(ctx, data, mode)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{
		Result:   *res,
		Path:     path,
		Mode:     mode,
		Duration: time.Since(start),
	}
	s.logger.Info("restore complete",
		"path", path,
		"lists_imported", res.ListsImported,
		"books_imported", res.BooksImported,
		"list_books_imported", res.ListBooksImported,
		"duration", result.Duration)
	return result, nil
}

// Path returns the file path for a backup ID.
func (s *BackupService) Path(id string) string {
	return filepath.Join(s.backupDir, filePrefix+id+fileSuffix)
}

func checkID(id string) error {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) {
		return ErrInvalidBackupID
	}
	return nil
}
