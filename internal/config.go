package internal

import "time"

// Config is the server configuration, loaded from the environment.
type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	SendBufferSize    int   `env:"SEND_BUFFER_SIZE,default=64"`
	InboundBufferSize int   `env:"INBOUND_BUFFER_SIZE,default=1024"`
	ReadLimit         int64 `env:"READ_LIMIT,default=1048576"`

	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout  time.Duration `env:"PONG_TIMEOUT,default=60s"`
	PingInterval time.Duration `env:"PING_INTERVAL,default=54s"`

	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=30s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}
