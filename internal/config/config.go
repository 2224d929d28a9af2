package config

import (
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config regroupe les réglages du processus. La table "config" persistée
// (adresse d'écoute, concurrence) vit à part dans DataDir.
type Config struct {
	DataDir  string `yaml:"data_dir" env:"PAGEBROKER_DATA_DIR" env-default:"."`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	// Addr, si non vide, remplace bind_addr de config.json.
	Addr string `yaml:"addr" env:"PAGEBROKER_ADDR"`

	GraphQLEndpoint string  `yaml:"graphql_endpoint" env:"PAGEBROKER_GRAPHQL_ENDPOINT" env-default:"https://page.kakao.com/graphql"`
	SiteURL         string  `yaml:"site_url" env:"PAGEBROKER_SITE_URL" env-default:"https://page.kakao.com"`
	ResourceHost    string  `yaml:"resource_host" env:"PAGEBROKER_RESOURCE_HOST" env-default:"https://dn-img-page.kakao.com"`
	OutboundRPS     float64 `yaml:"outbound_rps" env:"PAGEBROKER_OUTBOUND_RPS" env-default:"5"`

	TokenRefreshInterval time.Duration `yaml:"token_refresh_interval" env:"PAGEBROKER_TOKEN_REFRESH_INTERVAL" env-default:"1h"`
	RewardInterval       time.Duration `yaml:"reward_interval" env:"PAGEBROKER_REWARD_INTERVAL" env-default:"40m"`
	GiftInterval         time.Duration `yaml:"gift_interval" env:"PAGEBROKER_GIFT_INTERVAL" env-default:"160m"`
	SnapshotInterval     time.Duration `yaml:"snapshot_interval" env:"PAGEBROKER_SNAPSHOT_INTERVAL" env-default:"1h"`

	FinderCooldownInterval time.Duration `yaml:"finder_cooldown_interval" env:"PAGEBROKER_FINDER_COOLDOWN_INTERVAL" env-default:"100ms"`
	FinderCooldownTicks    int           `yaml:"finder_cooldown_ticks" env:"PAGEBROKER_FINDER_COOLDOWN_TICKS" env-default:"3600"`

	// RedisAddr vide => statistiques en mémoire.
	RedisAddr string `yaml:"redis_addr" env:"PAGEBROKER_REDIS_ADDR"`
	RedisKey  string `yaml:"redis_key" env:"PAGEBROKER_REDIS_KEY" env-default:"pagebroker:stats"`
}

// Load lit le fichier YAML optionnel puis l'environnement.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if strings.TrimSpace(path) != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
