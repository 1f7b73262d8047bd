package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string `yaml:"log-level" env-default:"info"`
	HTTPPort          string `yaml:"http-port" env-default:"9090"`
	SocketPort        string `yaml:"socket-port" env-default:"8080"`
	Redis             Redis  `yaml:"redis"`
	SQLiteStoragePath string `yaml:"sqlite-storage-path" env-default:"./users.db"`
	JWTSecretKey      string `yaml:"jwt-secret-key"`
	Game              Game   `yaml:"game"`

	// recognized for configs shared with clients; certificate checks
	// are a client-side concern and the server ignores it.
	AllowInsecureTransport bool `yaml:"allow-insecure-transport" env-default:"false"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

type Game struct {
	IdleTimeoutSeconds   int `yaml:"idle-timeout-seconds" env-default:"300"`
	MaxGameSeconds       int `yaml:"max-game-seconds" env-default:"900"`
	BoardRows            int `yaml:"board-rows" env-default:"5"`
	BoardCols            int `yaml:"board-cols" env-default:"5"`
	EvictionGraceSeconds int `yaml:"eviction-grace-seconds" env-default:"30"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *Game) IdleTimeout() time.Duration {
	return time.Duration(that.IdleTimeoutSeconds) * time.Second
}

func (that *Game) MaxGameTime() time.Duration {
	return time.Duration(that.MaxGameSeconds) * time.Second
}

func (that *Game) EvictionGrace() time.Duration {
	return time.Duration(that.EvictionGraceSeconds) * time.Second
}
