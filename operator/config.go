// Package operator describes the bus operators the service aggregates
// and loads their configuration from a YAML file. Access tokens are
// normally referenced as ${ENV_VAR} in the file and expanded at load
// time.
package operator

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config describes one bus operator's feeds.
type Config struct {
	Name                string `yaml:"name" validate:"required"`
	StaticURL           string `yaml:"staticURL" validate:"required,url"`
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"required,url"`
	TripUpdatesURL      string `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	AccessToken         string `yaml:"accessToken"`
	Timezone            string `yaml:"timezone"`
	Language            string `yaml:"language"`
	CongestionTable     string `yaml:"congestionTable"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// CongestionConfig selects the accumulator backend. Driver is one of
// "memory", "sqlite" or "postgres".
type CongestionConfig struct {
	Driver    string `yaml:"driver" validate:"omitempty,oneof=memory sqlite postgres"`
	DSN       string `yaml:"dsn"`
	Directory string `yaml:"directory"`
}

type ScheduleConfig struct {
	InitHour         int    `yaml:"initHour" validate:"gte=0,lt=24"`
	InitMinute       int    `yaml:"initMinute" validate:"gte=0,lt=60"`
	RealtimeSeconds  int    `yaml:"realtimeSeconds" validate:"gte=0"`
	RealtimeTimeoutS int    `yaml:"realtimeTimeoutSeconds" validate:"gte=0"`
	DailyTimeoutS    int    `yaml:"dailyTimeoutSeconds" validate:"gte=0"`
	CacheDirectory   string `yaml:"cacheDirectory"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Congestion CongestionConfig `yaml:"congestion"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Operators  []Config         `yaml:"operators" validate:"required,min=1,dive"`
}

// Load reads, expands and validates the configuration at path.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Congestion.Driver == "" {
		cfg.Congestion.Driver = "memory"
	}
	if cfg.Schedule.InitHour == 0 && cfg.Schedule.InitMinute == 0 {
		cfg.Schedule.InitHour, cfg.Schedule.InitMinute = 4, 30
	}
	if cfg.Schedule.RealtimeSeconds == 0 {
		cfg.Schedule.RealtimeSeconds = 15
	}
	if cfg.Schedule.RealtimeTimeoutS == 0 {
		cfg.Schedule.RealtimeTimeoutS = 25
	}
	if cfg.Schedule.DailyTimeoutS == 0 {
		cfg.Schedule.DailyTimeoutS = 300
	}

	for i := range cfg.Operators {
		op := &cfg.Operators[i]
		if op.Timezone == "" {
			op.Timezone = "Asia/Tokyo"
		}
		if op.Language == "" {
			op.Language = "ja-Hrkt"
		}
		if op.CongestionTable == "" {
			op.CongestionTable = "congestion_" + op.Name
		}
	}
}
