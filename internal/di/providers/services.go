package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/openbookapp/openbook-library/internal/backup"
	"github.com/openbookapp/openbook-library/internal/backup/export"
	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
	"github.com/openbookapp/openbook-library/internal/config"
	"github.com/openbookapp/openbook-library/internal/service"
)

// ProvideLibraryService provides the library service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	hubHandle := do.MustInvoke[*WatchHubHandle](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewLibraryService(storeHandle.Store, hubHandle.Hub, log), nil
}

// ProvideStatsService provides the statistics service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewStatsService(storeHandle.Store, log), nil
}

// ProvideBackupService provides the backup file service.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*slog.Logger](i)

	// Bootstrap first so a restore never runs against an unseeded store.
	_ = do.MustInvoke[*Bootstrap](i)

	return backup.NewBackupService(storeHandle.Store, cfg.Backup.Dir, log), nil
}

// ProvideExporter provides the library exporter.
func ProvideExporter(i do.Injector) (*export.Exporter, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return export.New(storeHandle.Store), nil
}

// ProvideImporter provides the library importer.
func ProvideImporter(i do.Injector) (*backupimport.Importer, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*slog.Logger](i)

	_ = do.MustInvoke[*Bootstrap](i)

	return backupimport.New(storeHandle.Store, log), nil
}
