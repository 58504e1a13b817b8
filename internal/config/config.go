package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sync modes.
const (
	SyncAuto = "auto"
	SyncOn   = "on"
	SyncOff  = "off"
)

// MaxBatchSize is the largest accepted sync.batch_size.
const MaxBatchSize = 500

// managedSignals are environment variables present only in a managed or
// emulated deployment.
var managedSignals = []string{
	"FIRESTORE_EMULATOR_HOST",
	"GCLOUD_PROJECT",
	"GOOGLE_CLOUD_PROJECT",
	"FIREBASE_CONFIG",
	"K_SERVICE",
}

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Data   DataConfig   `yaml:"data"`
	Sync   SyncConfig   `yaml:"sync"`
	Admin  AdminConfig  `yaml:"admin"`
	DNS    DNSConfig    `yaml:"dns"`
	MCP    MCPConfig    `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type DataConfig struct {
	Dir       string `yaml:"dir"`
	File      string `yaml:"file"`
	AuditFile string `yaml:"audit_file"`
}

type SyncConfig struct {
	Mode             string `yaml:"mode"`
	DSN              string `yaml:"dsn"`
	BatchSize        int    `yaml:"batch_size"`
	QueueSize        int    `yaml:"queue_size"`
	AuditReplayLimit int    `yaml:"audit_replay_limit"`
}

type AdminConfig struct {
	Token           string `yaml:"token"`
	InitialEmail    string `yaml:"initial_email"`
	InitialPassword string `yaml:"initial_password"`
	BcryptCost      int    `yaml:"bcrypt_cost"`
}

type DNSConfig struct {
	Server         string `yaml:"server"`
	ExpectedTarget string `yaml:"expected_target"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
		},
		Data: DataConfig{
			Dir:       "data",
			File:      "data.json",
			AuditFile: "audit.log",
		},
		Sync: SyncConfig{
			Mode:             SyncAuto,
			BatchSize:        400,
			QueueSize:        1024,
			AuditReplayLimit: 5000,
		},
		Admin: AdminConfig{
			BcryptCost: 12,
		},
		DNS: DNSConfig{
			Server: "1.1.1.1:53",
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}

	if path := os.Getenv("STATUSPAGE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("STATUSPAGE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if err := envInt("STATUSPAGE_SERVER_PORT", &cfg.Server.Port); err != nil {
		return Config{}, err
	}
	if level := os.Getenv("STATUSPAGE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if path := os.Getenv("STATUSPAGE_LOG_PATH"); path != "" {
		cfg.Log.Path = path
	}
	if dir := os.Getenv("STATUSPAGE_DATA_DIR"); dir != "" {
		cfg.Data.Dir = dir
	}
	if file := os.Getenv("STATUSPAGE_DATA_FILE"); file != "" {
		cfg.Data.File = file
	}
	if file := os.Getenv("STATUSPAGE_AUDIT_FILE"); file != "" {
		cfg.Data.AuditFile = file
	}
	if mode := os.Getenv("STATUSPAGE_SYNC_MODE"); mode != "" {
		cfg.Sync.Mode = strings.ToLower(mode)
	}
	if dsn := os.Getenv("STATUSPAGE_REMOTE_DSN"); dsn != "" {
		cfg.Sync.DSN = dsn
	}
	if err := envInt("STATUSPAGE_SYNC_BATCH_SIZE", &cfg.Sync.BatchSize); err != nil {
		return Config{}, err
	}
	if err := envInt("STATUSPAGE_SYNC_QUEUE_SIZE", &cfg.Sync.QueueSize); err != nil {
		return Config{}, err
	}
	if err := envInt("STATUSPAGE_AUDIT_REPLAY_LIMIT", &cfg.Sync.AuditReplayLimit); err != nil {
		return Config{}, err
	}
	if token := os.Getenv("STATUSPAGE_ADMIN_TOKEN"); token != "" {
		cfg.Admin.Token = token
	}
	if email := os.Getenv("INITIAL_ADMIN_EMAIL"); email != "" {
		cfg.Admin.InitialEmail = email
	}
	if password := os.Getenv("INITIAL_ADMIN_PASSWORD"); password != "" {
		cfg.Admin.InitialPassword = password
	}
	if err := envInt("STATUSPAGE_BCRYPT_COST", &cfg.Admin.BcryptCost); err != nil {
		return Config{}, err
	}
	if server := os.Getenv("STATUSPAGE_DNS_SERVER"); server != "" {
		cfg.DNS.Server = server
	}
	if target := os.Getenv("CUSTOM_DOMAIN_TARGET"); target != "" {
		cfg.DNS.ExpectedTarget = target
	}
	if enabled := os.Getenv("STATUSPAGE_MCP_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STATUSPAGE_MCP_ENABLED: %w", err)
		}
		cfg.MCP.Enabled = v
	}

	cfg.Admin.BcryptCost = min(max(cfg.Admin.BcryptCost, 10), 15)

	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Sync.Mode {
	case SyncAuto, SyncOn, SyncOff:
	default:
		errs = append(errs, fmt.Errorf("sync.mode must be auto, on or off, got %q", c.Sync.Mode))
	}
	if c.Sync.BatchSize <= 0 || c.Sync.BatchSize > MaxBatchSize {
		errs = append(errs, fmt.Errorf("sync.batch_size must be between 1 and %d, got %d", MaxBatchSize, c.Sync.BatchSize))
	}
	if c.Sync.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("sync.queue_size must be positive, got %d", c.Sync.QueueSize))
	}
	if c.Sync.AuditReplayLimit <= 0 {
		errs = append(errs, fmt.Errorf("sync.audit_replay_limit must be positive, got %d", c.Sync.AuditReplayLimit))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Data.Dir == "" || c.Data.File == "" || c.Data.AuditFile == "" {
		errs = append(errs, errors.New("data.dir, data.file and data.audit_file are required"))
	}
	// The default remote path lives on the same disk as the local files, which
	// a managed context does not keep across instances.
	if c.Sync.Mode == SyncAuto && c.Sync.DSN == "" {
		if name := managedSignal(); name != "" {
			errs = append(errs, fmt.Errorf("sync enabled by %s requires STATUSPAGE_REMOTE_DSN", name))
		}
	}
	return errors.Join(errs...)
}

// SyncEnabled resolves sync.mode. In auto mode replication runs when a remote
// DSN is configured or the process runs in a managed context.
func (c Config) SyncEnabled() bool {
	switch c.Sync.Mode {
	case SyncOn:
		return true
	case SyncOff:
		return false
	}
	return c.Sync.DSN != "" || managedSignal() != ""
}

func managedSignal() string {
	for _, name := range managedSignals {
		if os.Getenv(name) != "" {
			return name
		}
	}
	return ""
}

// RemoteDSN returns the remote store DSN, defaulting to a database file in
// the data directory.
func (c Config) RemoteDSN() string {
	if c.Sync.DSN != "" {
		return c.Sync.DSN
	}
	return filepath.Join(c.Data.Dir, "remote.db")
}

func envInt(name string, dst *int) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = v
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
