// database/db.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/LilVoxy/campus_lostfound/config"
)

// Поддерживаемые драйверы
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Store хранилище объявлений, профилей, попыток связи и отзывов
type Store struct {
	db     *sql.DB
	driver string
	log    logrus.FieldLogger
	now    func() time.Time
}

// Open подключается к базе данных по настройкам и проверяет соединение
func Open(cfg config.DatabaseConfig, log logrus.FieldLogger) (*Store, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// sqlite не поддерживает параллельную запись из нескольких соединений
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с базой данных: %w", err)
	}

	log.Infof("✅ Подключение к базе данных %s установлено", cfg.Driver)
	return NewStore(db, cfg.Driver, log), nil
}

// NewStore оборачивает уже открытое соединение
func NewStore(db *sql.DB, driver string, log logrus.FieldLogger) *Store {
	return &Store{
		db:     db,
		driver: driver,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DB возвращает соединение с базой
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность базы
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close закрывает соединение
func (s *Store) Close() error {
	return s.db.Close()
}

// timestamp текущее время с точностью до микросекунд, как его хранит база
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func buildDSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		// RowsAffected считает найденные строки, а не измененные
		mc.ClientFoundRows = true
		return mc.FormatDSN(), nil

	case DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("не удалось создать каталог базы данных: %w", err)
			}
		}
		return "file:" + cfg.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", nil

	default:
		return "", fmt.Errorf("неизвестный драйвер базы данных %q", cfg.Driver)
	}
}
