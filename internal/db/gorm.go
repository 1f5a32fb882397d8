package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/mylog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var vecOnce sync.Once

// OpenSqlite opens (and creates if needed) the SQLite database at path with
// the sqlite-vec extension registered on every connection.
func OpenSqlite(path string, log *slog.Logger) (*gorm.DB, error) {
	log = mylog.OrDefault(log)
	vecOnce.Do(sqlite_vec.Auto)

	if dir := filepath.Dir(path); dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "failed to create sqlite directory at %s", dir)
			}
			log.Info("created sqlite directory", slog.String("path", dir))
		}
	}

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database")
	}

	var sqliteVersion, vecVersion string
	if err := db.Raw("SELECT sqlite_version(), vec_version()").Row().Scan(&sqliteVersion, &vecVersion); err != nil {
		return nil, errors.Wrapf(err, "sqlite-vec extension not properly loaded")
	}
	log.Debug("opened sqlite", slog.String("path", path), slog.String("sqlite", sqliteVersion), slog.String("vec", vecVersion))

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrapf(err, "failed to close db")
	}

	return nil
}
