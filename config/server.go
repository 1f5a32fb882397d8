package config

type ServerConfig struct {
	// Addr is the listen address of the HTTP server.
	// Default: :8080
	Addr string `yaml:"addr" json:"addr"`

	// RateLimit is the sustained requests per second allowed per user. Zero disables limiting.
	// Default: 5
	RateLimit float64 `yaml:"rateLimit" json:"rateLimit"`

	// RateBurst is the per-user burst size.
	// Default: 10
	RateBurst int `yaml:"rateBurst" json:"rateBurst"`
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:      ":8080",
		RateLimit: 5,
		RateBurst: 10,
	}
}
