package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Push      PushConfig
	Upload    UploadConfig
	Log       logging.Config
}

type ServerConfig struct {
	Port         string
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type MongoConfig struct {
	URI      string
	Database string
}

type WebSocketConfig struct {
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RedisConfig selects the presence store backend. With an empty Address the
// server keeps presence in memory, which is correct for a single instance.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type PushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string
}

type UploadConfig struct {
	CloudinaryURL string `mapstructure:"cloudinary_url"`
	Folder        string
	MaxFileSize   int64 `mapstructure:"max_file_size"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("mongo.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongo.database", "doussiya")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.handshake_timeout", "10s")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("push.subscriber", "mailto:admin@doussiya.tn")
	v.SetDefault("upload.folder", "doussiya/chat")
	v.SetDefault("upload.max_file_size", 10<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.BindEnv("server.port", "PORT")
	v.BindEnv("mongo.uri", "MONGODB_URI")
	v.BindEnv("mongo.database", "MONGODB_DATABASE")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("push.vapid_public_key", "VAPID_PUBLIC_KEY")
	v.BindEnv("push.vapid_private_key", "VAPID_PRIVATE_KEY")
	v.BindEnv("push.subscriber", "VAPID_SUBSCRIBER")
	v.BindEnv("upload.cloudinary_url", "CLOUDINARY_URL")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.WebSocket.HandshakeTimeout = parseDuration(v, "websocket.handshake_timeout", 10*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
