package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbookapp/openbook-library/internal/backup"
	"github.com/openbookapp/openbook-library/internal/config"
	"github.com/openbookapp/openbook-library/internal/di/providers"
	"github.com/openbookapp/openbook-library/internal/service"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "error"},
		Store:  config.StoreConfig{DataPath: filepath.Join(dir, "data"), Driver: driver},
		Backup: config.BackupConfig{Dir: filepath.Join(dir, "backups"), Keep: 2},
	}
}

func TestBootstrap(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite, config.DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			injector := NewContainer(testConfig(t, driver))
			t.Cleanup(func() { _ = injector.Shutdown() })

			require.NoError(t, Bootstrap(injector))

			boot := do.MustInvoke[*providers.Bootstrap](injector)
			assert.True(t, boot.SeededSystemLists)

			library := do.MustInvoke[*service.LibraryService](injector)
			lists, err := library.GetAllLists(context.Background())
			require.NoError(t, err)
			assert.Len(t, lists, 3)

			backups := do.MustInvoke[*backup.BackupService](injector)
			_, err = backups.Create(context.Background())
			require.NoError(t, err)
		})
	}
}

func TestBackupScheduler_IdleWithoutSchedule(t *testing.T) {
	injector := NewContainer(testConfig(t, config.DriverBadger))
	t.Cleanup(func() { _ = injector.Shutdown() })

	sched := do.MustInvoke[*providers.BackupSchedulerHandle](injector)
	assert.False(t, sched.IsRunning())
}
