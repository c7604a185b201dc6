package httpserver

import "time"

type Config struct {
	Addr            string        `env:"OPS_ADDR" envDefault:":9090"`          // Addr is the listen address; empty keeps the default.
	ReadTimeout     time.Duration `env:"OPS_READ_TIMEOUT" envDefault:"10s"`    // ReadTimeout bounds reading a whole request.
	WriteTimeout    time.Duration `env:"OPS_WRITE_TIMEOUT" envDefault:"30s"`   // WriteTimeout bounds writing a response.
	ShutdownTimeout time.Duration `env:"OPS_SHUTDOWN_TIMEOUT" envDefault:"5s"` // ShutdownTimeout is the grace period on shutdown.
}

// NewFromConfig creates a Server from cfg. Only non-zero values are applied.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 4+len(opts))

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	return New(append(configOpts, opts...)...)
}
