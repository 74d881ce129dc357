package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	// NamingPolicy: "shared-by-name" or "always-prefixed".
	NamingPolicy string `mapstructure:"naming_policy"`
	// MutePolicy: "any" or "all".
	MutePolicy string `mapstructure:"mute_policy"`

	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// Store backend: "memory" or "redis".
	Store         string   `mapstructure:"store"`
	RedisAddrs    []string `mapstructure:"redis_addrs"`
	RedisPassword string   `mapstructure:"redis_password"`

	GroupName    string   `mapstructure:"group_name"`
	GroupMembers []string `mapstructure:"group_members"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("naming_policy", "shared-by-name")
	v.SetDefault("mute_policy", "any")
	v.SetDefault("fetch_timeout", "5s")
	v.SetDefault("refresh_interval", "30s")
	v.SetDefault("store", "memory")
	v.SetDefault("group_name", "Media Group")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Store: %s\n", cfg.Mode, cfg.Port, cfg.Store)
	return &cfg, nil
}
