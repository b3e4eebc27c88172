package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config содержит полную конфигурацию сервиса
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Resync    ResyncConfig    `mapstructure:"resync"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// HTTPConfig содержит параметры HTTP-сервера
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к базе данных.
// Для sqlite используется только Path, для mysql - остальные поля.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RealtimeConfig содержит настройки ленты изменений
type RealtimeConfig struct {
	// Размер буфера событий на одну подписку
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// WebSocketConfig содержит параметры WebSocket-соединений
type WebSocketConfig struct {
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

// ResyncConfig управляет периодическим пересчетом списков контактов.
// Interval = 0 отключает задачу.
type ResyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig управляет логированием
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text|json
	File   string `mapstructure:"file"`
}

// EnvPrefix префикс переменных окружения, например LOSTFOUND_HTTP_ADDR
const EnvPrefix = "LOSTFOUND"

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			Host:            "localhost",
			Port:            3306,
			User:            "root",
			Name:            "lostfound",
			Path:            "data/lostfound.db",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Realtime: RealtimeConfig{
			SubscriberBuffer: 16,
		},
		WebSocket: WebSocketConfig{
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			MaxMessageSize: 512 * 1024,
			SendBuffer:     256,
		},
		Resync: ResyncConfig{
			Interval: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load читает конфигурацию: значения по умолчанию, затем файл (если указан),
// затем переменные окружения с префиксом LOSTFOUND.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений
func (c Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr не может быть пустым"))
	}

	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("для mysql требуются database.host и database.name"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Errorf("database.port %d вне допустимого диапазона", c.Database.Port))
		}
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("для sqlite требуется database.path"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный драйвер базы данных %q", c.Database.Driver))
	}

	if c.Realtime.SubscriberBuffer <= 0 {
		errs = append(errs, errors.New("realtime.subscriber_buffer должен быть больше нуля"))
	}
	if c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0 {
		errs = append(errs, errors.New("websocket.pong_wait и websocket.write_wait должны быть больше нуля"))
	}
	if c.WebSocket.SendBuffer <= 0 {
		errs = append(errs, errors.New("websocket.send_buffer должен быть больше нуля"))
	}
	if c.Resync.Interval < 0 {
		errs = append(errs, errors.New("resync.interval не может быть отрицательным"))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("неизвестный формат логов %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// PingPeriod период отправки пинг-сообщений клиенту
func (c WebSocketConfig) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", d.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("realtime.subscriber_buffer", d.Realtime.SubscriberBuffer)

	v.SetDefault("websocket.write_wait", d.WebSocket.WriteWait)
	v.SetDefault("websocket.pong_wait", d.WebSocket.PongWait)
	v.SetDefault("websocket.max_message_size", d.WebSocket.MaxMessageSize)
	v.SetDefault("websocket.send_buffer", d.WebSocket.SendBuffer)

	v.SetDefault("resync.interval", d.Resync.Interval)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}
