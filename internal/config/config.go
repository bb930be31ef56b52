// Package config loads the sandkasten daemon's configuration from YAML with
// environment variable overrides layered on top.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults holds the resource limits applied to every managed container.
type Defaults struct {
	CPULimit       float64 `yaml:"cpu_limit"`
	MemLimitMB     int     `yaml:"mem_limit_mb"`
	PidsLimit      int     `yaml:"pids_limit"`
	NetworkMode    string  `yaml:"network_mode"`
	ReadonlyRootfs bool    `yaml:"readonly_rootfs"`
}

// Config is the daemon's resolved configuration.
type Config struct {
	Listen        string `yaml:"listen"`
	APIKey        string `yaml:"api_key"`
	Image         string `yaml:"image"`
	PrewarmCount  int    `yaml:"prewarm_count"`
	MaxContainers int    `yaml:"max_containers"`

	SessionTimeoutSeconds    int `yaml:"session_timeout_seconds"`
	MaxSessionTimeoutSeconds int `yaml:"max_session_timeout_seconds"`

	WorkDir     string `yaml:"work_dir"`
	LabelPrefix string `yaml:"label_prefix"`

	Persistence string `yaml:"persistence"` // "memory" (default) or "sqlite"
	DBPath      string `yaml:"db_path"`

	ReaperIntervalSeconds int `yaml:"reaper_interval_seconds"`

	Defaults Defaults `yaml:"defaults"`
}

// Load reads yamlPath (if it exists) over a set of defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Listen:                   "127.0.0.1:8080",
		Image:                    "sandkasten/runtime:base",
		PrewarmCount:             2,
		MaxContainers:            10,
		SessionTimeoutSeconds:    1800,
		MaxSessionTimeoutSeconds: 86400,
		WorkDir:                  "/workspace",
		LabelPrefix:              "sandkasten",
		Persistence:              "memory",
		DBPath:                   "./sandkasten.db",
		ReaperIntervalSeconds:    1,
		Defaults: Defaults{
			CPULimit:       1.0,
			MemLimitMB:     512,
			PidsLimit:      256,
			NetworkMode:    "none",
			ReadonlyRootfs: true,
		},
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SANDKASTEN_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("SANDKASTEN_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("SANDKASTEN_IMAGE"); v != "" {
		cfg.Image = v
	}
	if v := os.Getenv("SANDKASTEN_PREWARM_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PrewarmCount = n
		}
	}
	if v := os.Getenv("SANDKASTEN_MAX_CONTAINERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxContainers = n
		}
	}
	if v := os.Getenv("SANDKASTEN_SESSION_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionTimeoutSeconds = n
		}
	}
	if v := os.Getenv("SANDKASTEN_MAX_SESSION_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSessionTimeoutSeconds = n
		}
	}
	if v := os.Getenv("SANDKASTEN_WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("SANDKASTEN_LABEL_PREFIX"); v != "" {
		cfg.LabelPrefix = v
	}
	if v := os.Getenv("SANDKASTEN_PERSISTENCE"); v != "" {
		cfg.Persistence = v
	}
	if v := os.Getenv("SANDKASTEN_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SANDKASTEN_REAPER_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReaperIntervalSeconds = n
		}
	}
	if v := os.Getenv("SANDKASTEN_CPU_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Defaults.CPULimit = f
		}
	}
	if v := os.Getenv("SANDKASTEN_MEM_LIMIT_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.MemLimitMB = n
		}
	}
	if v := os.Getenv("SANDKASTEN_PIDS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.PidsLimit = n
		}
	}
	if v := os.Getenv("SANDKASTEN_NETWORK_MODE"); v != "" {
		cfg.Defaults.NetworkMode = v
	}
	if v := os.Getenv("SANDKASTEN_READONLY_ROOTFS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Defaults.ReadonlyRootfs = b
		}
	}
}

// IsLoopback reports whether listen binds only to a loopback interface.
func IsLoopback(listen string) bool {
	host := listen
	if i := strings.LastIndex(listen, ":"); i >= 0 {
		host = listen[:i]
	}
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}
