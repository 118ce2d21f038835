// Application configuration loaded from config/config.yaml and CAMPUSRES_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CAMPUSRES"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	AirQuality AirQualityConfig `mapstructure:"air_quality"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	Pass       PassConfig       `mapstructure:"pass"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type ServerConfig struct {
	AppVersion     string        `mapstructure:"app_version"`
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	Timeout        time.Duration `mapstructure:"timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Env            string        `mapstructure:"environment"`
	Mode           string        `mapstructure:"mode"`
}

// StorageConfig selects the backend: postgres, mongo or memory.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`

	ChangesChannel string `mapstructure:"changes_channel"`
}

type QueueConfig struct {
	Name       string        `mapstructure:"name"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
	Issuer     string        `mapstructure:"issuer"`
}

type AuthConfig struct {
	AdminEmails []string `mapstructure:"admin_emails"`
}

type IdentityConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	RequestURI string        `mapstructure:"request_uri"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type AirQualityConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Places  []PlaceConfig `mapstructure:"places"`
}

type PlaceConfig struct {
	Name string  `mapstructure:"name"`
	Lat  float64 `mapstructure:"lat"`
	Lon  float64 `mapstructure:"lon"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type CloudinaryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Folder     string `mapstructure:"folder"`
	ThumbWidth int    `mapstructure:"thumb_width"`
}

type PassConfig struct {
	Secret string `mapstructure:"secret"`
	Size   int    `mapstructure:"size"`
}

type WorkerConfig struct {
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

func LoadConfig() (*viper.Viper, error) {
	// .env is optional
	_ = godotenv.Load()

	viperInstance := viper.New()
	setDefaults(viperInstance)

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	viperInstance.SetEnvPrefix(envPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	if err := viperInstance.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	switch c.Storage.Driver {
	case "postgres", "mongo", "memory":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" {
		return nil, errors.New("jwt.secret must be set")
	}

	return &c, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "campusres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "campusres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "campusres")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.changes_channel", "campusres:changes")

	v.SetDefault("queue.name", "campusres_tasks")
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.base_delay", 2*time.Second)
	v.SetDefault("queue.max_delay", 5*time.Minute)

	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("jwt.issuer", "campusres")

	v.SetDefault("auth.admin_emails", []string{"admin@campus.com"})

	v.SetDefault("identity.base_url", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("identity.request_uri", "http://localhost")
	v.SetDefault("identity.timeout", 10*time.Second)

	v.SetDefault("air_quality.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("air_quality.timeout", 10*time.Second)

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "campusres.changes")

	v.SetDefault("cloudinary.enabled", false)
	v.SetDefault("cloudinary.folder", "campusres/resources")
	v.SetDefault("cloudinary.thumb_width", 800)

	v.SetDefault("pass.size", 256)

	v.SetDefault("worker.sweep_schedule", "@every 10m")

	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}
