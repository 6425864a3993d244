package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App    `json:"app"    toml:"app"`
		HTTP   `json:"http"   toml:"http"`
		DB     `json:"db"     toml:"db"`
		Log    `json:"logger" toml:"logger"`
		Worker `json:"worker" toml:"worker"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
	}

	HTTP struct {
		Port string `json:"port" toml:"port" env:"HTTP_PORT" env-default:"8080"`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX"          env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK"  env-default:"60"`
	}

	Log struct {
		Level slog.Level `json:"level" toml:"level" env:"LOG_LEVEL"`
	}

	Worker struct {
		// Payout dispatcher poll interval in seconds and claim batch size.
		PayoutInterval  int  `json:"payout_interval"   toml:"payout_interval"   env:"PAYOUT_INTERVAL"   env-default:"10"`
		PayoutBatchSize int  `json:"payout_batch_size" toml:"payout_batch_size" env:"PAYOUT_BATCH_SIZE" env-default:"20"`
		PayoutDryRun    bool `json:"payout_dry_run"    toml:"payout_dry_run"    env:"PAYOUT_DRY_RUN"    env-default:"true"`

		// Settled-order retention and cleanup cadence in minutes.
		OrderRetention  int `json:"order_retention"  toml:"order_retention"  env:"ORDER_RETENTION"  env-default:"1440"`
		CleanupInterval int `json:"cleanup_interval" toml:"cleanup_interval" env:"CLEANUP_INTERVAL" env-default:"60"`
	}
)

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
