package config

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Enabled     bool   `yaml:"auth_enabled"`
	BearerToken string `yaml:"bearer_token,omitempty"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// DefaultServerConfig returns the server settings used when none are configured
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:        8501,
		MaxUploadMB: 50,
	}
}
