package config

import (
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

type Server struct {
	ListenAddr   string        `toml:"listen_addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type MySQL struct {
	DSN                string   `toml:"dsn"`
	SlaveAddr          []string `toml:"slave_addr"`
	MaxIdleConnections int      `toml:"max_idle_connections"`
	MaxOpenConnections int      `toml:"max_open_connections"`
	SetConnMaxLifetime int      `toml:"set_conn_max_lifetime"`
	SetConnMaxIdleTime int      `toml:"set_conn_max_idle_time"`
	ProxyEnabled       bool     `toml:"proxy_enabled"`
	ProxyAddr          string   `toml:"proxy_addr"`
}

type HotStore struct {
	DSN           string        `toml:"dsn"`
	Retention     time.Duration `toml:"retention"`
	SweepInterval time.Duration `toml:"sweep_interval"`
	MaxRows       int64         `toml:"max_rows"`
}

type Ingest struct {
	PoolSize   int           `toml:"pool_size"`
	DedupTTL   time.Duration `toml:"dedup_ttl"`
	WarmWindow time.Duration `toml:"warm_window"`
}

type Query struct {
	DefaultLimit  int `toml:"default_limit"`
	RangedLimit   int `toml:"ranged_limit"`
	SyncBatchSize int `toml:"sync_batch_size"`
}

type NATS struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type Logger struct {
	Level      string `toml:"level"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
	Console    bool   `toml:"console"`
}

type Config struct {
	Server   Server   `toml:"server"`
	MySQL    MySQL    `toml:"mysql"`
	HotStore HotStore `toml:"hot_store"`
	Ingest   Ingest   `toml:"ingest"`
	Query    Query    `toml:"query"`
	NATS     NATS     `toml:"nats"`
	Logger   Logger   `toml:"log"`
}

var (
	cfg         *Config
	cfgPath     string
	cfgLock     sync.RWMutex
	lastModTime time.Time
	stopChan    chan struct{}
)

func Default() *Config {
	return &Config{
		Server: Server{
			ListenAddr:   "0.0.0.0:18600",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		MySQL: MySQL{
			DSN:                "root:password@tcp(localhost:3306)/utrading?charset=utf8mb4&parseTime=True&loc=Local",
			SlaveAddr:          []string{},
			MaxIdleConnections: 16,
			MaxOpenConnections: 64,
			SetConnMaxLifetime: 7200,
			SetConnMaxIdleTime: 3600,
			ProxyEnabled:       false,
			ProxyAddr:          "127.0.0.1:7890",
		},
		HotStore: HotStore{
			DSN:           "file::memory:?cache=shared",
			Retention:     24 * time.Hour,
			SweepInterval: 1 * time.Hour,
			MaxRows:       500000, // 数量兜底，防止单表无限增长
		},
		Ingest: Ingest{
			PoolSize:   30,
			DedupTTL:   30 * time.Minute,
			WarmWindow: 30 * time.Minute,
		},
		Query: Query{
			DefaultLimit:  100,
			RangedLimit:   1000,
			SyncBatchSize: 500,
		},
		NATS: NATS{
			Enabled:  false,
			Endpoint: "nats://localhost:4222",
		},
		Logger: Logger{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 60,
			MaxAge:     7,
			Compress:   false,
			Console:    false,
		},
	}
}

func Load(path string) error {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	cfgLock.Lock()
	defer cfgLock.Unlock()
	cfg = c
	cfgPath = path
	lastModTime = info.ModTime()

	return nil
}

func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Init 初始化配置并启动定期重载（默认10秒）
func Init(path string) error {
	return InitWithInterval(path, 10*time.Second)
}

// InitWithInterval 初始化配置并指定重载间隔
func InitWithInterval(path string, interval time.Duration) error {
	if err := Load(path); err != nil {
		return err
	}

	stopChan = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				reloadIfNeeded()
			case <-stopChan:
				return
			}
		}
	}()

	return nil
}

// Stop 停止配置重载
func Stop() {
	if stopChan != nil {
		close(stopChan)
	}
}

// reloadIfNeeded 仅在文件修改时重载
func reloadIfNeeded() {
	cfgLock.RLock()
	path := cfgPath
	lastMod := lastModTime
	cfgLock.RUnlock()

	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Error().Err(err).Msg("config stat failed")
		return
	}

	if info.ModTime().After(lastMod) {
		if err = Load(path); err != nil {
			logger.Error().Err(err).Msg("config reload failed")
		} else {
			logger.Info().Msg("config reloaded")
		}
	}
}
