// Package config carga la configuración del servicio desde config.yaml y
// la pisa con variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/reviewflow/internal/provider"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis | none
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Auth struct {
		// JWTSecret valida el bearer token de la sesión (claim tid).
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Tokens struct {
		// MasterKey (base64, 32 bytes) sella tokens de proveedor en la DB.
		// Vacía = tokens en claro (solo dev).
		MasterKey string `yaml:"master_key"`
	} `yaml:"tokens"`

	OAuth struct {
		StateTTL string `yaml:"state_ttl"`
	} `yaml:"oauth"`

	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		FromEmail string `yaml:"from_email"`
		TLSMode   string `yaml:"tls_mode"`
	} `yaml:"smtp"`

	Reports struct {
		Interval    string `yaml:"interval"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"reports"`

	// providers se llena desde el entorno en Load(); no viene del YAML para
	// no dejar secretos en archivos de config.
	providers map[provider.Name]provider.Config
}

// Load lee el YAML (opcional: si path no existe usa defaults) y aplica
// overrides de entorno.
func Load(path string) (*Config, error) {
	c := &Config{}
	c.App.Env = "dev"
	c.App.LogLevel = "info"
	c.Server.Addr = ":8080"
	c.Server.CORSAllowedOrigins = []string{"*"}
	c.Storage.Driver = "memory"
	c.Cache.Kind = "memory"
	c.OAuth.StateTTL = "10m"
	c.SMTP.Port = 587
	c.Reports.Interval = "15m"
	c.Reports.Concurrency = 4

	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	c.loadProviders()
	return c, nil
}

// ProviderConfig implementa provider.ConfigResolver.
func (c *Config) ProviderConfig(n provider.Name) provider.Config {
	return c.providers[n]
}

// StateTTL parsea OAuth.StateTTL con fallback a 10m.
func (c *Config) StateTTL() time.Duration {
	if d, err := time.ParseDuration(c.OAuth.StateTTL); err == nil && d > 0 {
		return d
	}
	return 10 * time.Minute
}

// ReportInterval parsea Reports.Interval con fallback a 15m.
func (c *Config) ReportInterval() time.Duration {
	if d, err := time.ParseDuration(c.Reports.Interval); err == nil && d > 0 {
		return d
	}
	return 15 * time.Minute
}

// MemoryCacheTTL parsea Cache.Memory.DefaultTTL con fallback a 10m.
func (c *Config) MemoryCacheTTL() time.Duration {
	if d, err := time.ParseDuration(c.Cache.Memory.DefaultTTL); err == nil && d > 0 {
		return d
	}
	return 10 * time.Minute
}

// loadProviders lee {PROVIDER}_CLIENT_ID / {PROVIDER}_CLIENT_SECRET para
// cada proveedor soportado. Un proveedor sin credenciales queda registrado
// igual; el service lo reporta como error de configuración al usarlo.
func (c *Config) loadProviders() {
	c.providers = make(map[provider.Name]provider.Config, len(provider.All()))
	for _, n := range provider.All() {
		c.providers[n] = provider.Config{
			ClientID:     strings.TrimSpace(os.Getenv(provider.ClientIDVar(n))),
			ClientSecret: strings.TrimSpace(os.Getenv(provider.ClientSecretVar(n))),
		}
	}
}

// SetProviderConfig pisa las credenciales de un proveedor. Para tests.
func (c *Config) SetProviderConfig(n provider.Name, pc provider.Config) {
	if c.providers == nil {
		c.providers = make(map[provider.Name]provider.Config)
	}
	c.providers[n] = pc
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := getEnvStr("TOKEN_MASTER_KEY"); ok {
		c.Tokens.MasterKey = v
	}
	if v, ok := getEnvStr("OAUTH_STATE_TTL"); ok {
		c.OAuth.StateTTL = v
	}

	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM_EMAIL"); ok {
		c.SMTP.FromEmail = v
	}
	if v, ok := getEnvStr("SMTP_TLS_MODE"); ok {
		c.SMTP.TLSMode = v
	}

	if v, ok := getEnvStr("REPORTS_INTERVAL"); ok {
		c.Reports.Interval = v
	}
	if v, ok := getEnvInt("REPORTS_CONCURRENCY"); ok {
		c.Reports.Concurrency = v
	}
}
