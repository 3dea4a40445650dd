package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	LLMAPIKey      string  `env:"DEEPSEEK_API_KEY"`
	LLMBaseURL     string  `env:"DEEPSEEK_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	LLMModel       string  `env:"DEEPSEEK_MODEL" envDefault:"deepseek-chat"`
	LLMTemperature float64 `env:"DEEPSEEK_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens   int     `env:"DEEPSEEK_MAX_TOKENS" envDefault:"2048"`
	// Presupuesto de tokens para el historial enviado al proveedor.
	LLMContextBudget int `env:"DEEPSEEK_CONTEXT_BUDGET" envDefault:"4000"`

	JWTSecret            string `env:"JWT_SECRET,required"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
