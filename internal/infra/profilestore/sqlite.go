// Package profilestore persists the named profile collection.
package profilestore

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/ports"
)

const currentKey = "current_profile"

type profileRow struct {
	Name      string `gorm:"primaryKey"`
	Data      string `gorm:"not null"`
	UpdatedAt time.Time
}

func (profileRow) TableName() string { return "profiles" }

type settingRow struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (settingRow) TableName() string { return "settings" }

// SQLiteStore keeps profiles in a single SQLite file (pure Go driver).
type SQLiteStore struct {
	db *gorm.DB
}

type Option func(*options)

type options struct {
	log *slog.Logger
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	o := options{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &domain.OpError{Op: "profilestore.open", Kind: domain.KindInvalidConfig, Path: path, Err: err}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newGormLogger(o.log)})
	if err != nil {
		return nil, &domain.OpError{Op: "profilestore.open", Kind: domain.KindInvalidConfig, Path: path, Err: err}
	}
	if err := db.AutoMigrate(&profileRow{}, &settingRow{}); err != nil {
		return nil, &domain.OpError{Op: "profilestore.migrate", Kind: domain.KindInvalidConfig, Path: path, Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

var _ ports.ProfileStore = (*SQLiteStore)(nil)

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) LoadAll() (map[string]domain.RequestProfile, error) {
	var rows []profileRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, dbErr("profilestore.load", "", err)
	}
	out := make(map[string]domain.RequestProfile, len(rows))
	for _, r := range rows {
		p, err := decode([]byte(r.Data))
		if err != nil {
			return nil, corrupt(r.Name, err)
		}
		out[r.Name] = p
	}
	return out, nil
}

func (s *SQLiteStore) Save(name string, p domain.RequestProfile) error {
	if name == "" {
		return &domain.OpError{Op: "profilestore.save", Kind: domain.KindState, Err: domain.ErrEmptyProfileKey}
	}
	b, err := encode(p)
	if err != nil {
		return err
	}
	row := profileRow{Name: name, Data: string(b), UpdatedAt: time.Now().UTC()}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return dbErr("profilestore.save", name, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(name string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&profileRow{}).Count(&n).Error; err != nil {
			return dbErr("profilestore.delete", name, err)
		}
		var exists int64
		if err := tx.Model(&profileRow{}).Where("name = ?", name).Count(&exists).Error; err != nil {
			return dbErr("profilestore.delete", name, err)
		}
		if exists == 0 {
			return missing("profilestore.delete", name)
		}
		if n <= 1 {
			return &domain.OpError{Op: "profilestore.delete", Kind: domain.KindState, Path: name, Err: domain.ErrLastProfile}
		}
		if err := tx.Where("name = ?", name).Delete(&profileRow{}).Error; err != nil {
			return dbErr("profilestore.delete", name, err)
		}
		return nil
	})
}

func (s *SQLiteStore) CurrentName() (string, error) {
	var row settingRow
	err := s.db.Where("key = ?", currentKey).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", dbErr("profilestore.current", "", err)
	}
	return row.Value, nil
}

func (s *SQLiteStore) SetCurrent(name string) error {
	var n int64
	if err := s.db.Model(&profileRow{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return dbErr("profilestore.current", name, err)
	}
	if n == 0 {
		return missing("profilestore.current", name)
	}
	row := settingRow{Key: currentKey, Value: name}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return dbErr("profilestore.current", name, err)
	}
	return nil
}

func dbErr(op, name string, err error) error {
	return &domain.OpError{Op: op, Kind: domain.KindExecution, Path: name, Err: err}
}
