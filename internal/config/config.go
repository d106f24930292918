package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"salondesk/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Session    SessionConfig    `yaml:"session"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port" validate:"min=0,max=65535"`

	// CORSOrigins enables CORS for the listed browser origins.
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port" validate:"min=0,max=65535"`
	Reflection bool `yaml:"reflection"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

// AuthConfig holds the static credential table. It is not a security boundary.
type AuthConfig struct {
	Users      []models.Credential `yaml:"users" validate:"required,min=1,dive"`
	LoginDelay time.Duration       `yaml:"login_delay" validate:"gte=0"`
}

type DashboardConfig struct {
	ToastTTL    time.Duration `yaml:"toast_ttl" validate:"gte=0"`
	MaxToasts   int           `yaml:"max_toasts" validate:"gte=0"`
	ReloadDelay time.Duration `yaml:"reload_delay" validate:"gte=0"`
	Barbers     []string      `yaml:"barbers"`
	Seed        []SeedBooking `yaml:"seed"`
}

// SeedBooking is a demo booking inserted into every new session.
type SeedBooking struct {
	models.BookingFields `yaml:",inline"`
	Status               models.Status `yaml:"status"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gte=0"`
}

type RedisConfig struct {
	Address    string        `yaml:"address"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	PoolSize   int           `yaml:"pool_size" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0"`
	RetryDelay time.Duration `yaml:"retry_delay" validate:"gte=0"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port" validate:"min=0,max=65535"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	SheetName string `yaml:"sheet_name"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := ValidateUsers(c.Auth.Users); err != nil {
		return err
	}
	return ValidateSeed(c.Dashboard.Seed)
}

func ValidateUsers(users []models.Credential) error {
	seen := make(map[string]bool)
	for _, u := range users {
		name := strings.ToLower(strings.TrimSpace(u.Username))
		if name == "" {
			return errors.New("auth user with empty username")
		}
		if seen[name] {
			return fmt.Errorf("duplicate auth user: %s", name)
		}
		seen[name] = true
		if _, err := models.ParseRole(u.Role); err != nil {
			return fmt.Errorf("auth user %s: %w", name, err)
		}
	}
	return nil
}

func ValidateSeed(seed []SeedBooking) error {
	for i, b := range seed {
		if _, ok := models.ParseService(string(b.Service)); !ok {
			return fmt.Errorf("seed booking %d has unknown service %q", i+1, b.Service)
		}
		switch b.Status {
		case "", models.StatusWaiting, models.StatusApproved:
		default:
			return fmt.Errorf("seed booking %d has unknown status %q", i+1, b.Status)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "salondesk"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Dashboard.ToastTTL == 0 {
		c.Dashboard.ToastTTL = models.DefaultToastTTL * time.Millisecond
	}
	if c.Dashboard.MaxToasts == 0 {
		c.Dashboard.MaxToasts = models.DefaultMaxToasts
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = models.DefaultSessionTTL * time.Second
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Exports.SheetName == "" {
		c.Exports.SheetName = "Bookings"
	}

	if len(c.Dashboard.Barbers) == 0 {
		for _, u := range c.Auth.Users {
			c.Dashboard.Barbers = append(c.Dashboard.Barbers, displayName(u.Username))
		}
	}
}

func displayName(username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return ""
	}
	return strings.ToUpper(username[:1]) + strings.ToLower(username[1:])
}
