package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	ClientURL  string `yaml:"client_url" env:"CLIENT_URL" env-default:"http://localhost:3000"`
	Secrets    `yaml:"secrets"`
	Tokens     `yaml:"tokens"`
	Password   `yaml:"password"`
	RateLimits `yaml:"rate_limits"`
	PageGuard  `yaml:"page_guard"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	HTTPServer `yaml:"http_server"`
}

// Secrets holds one independent signing secret per token kind, so that a
// leaked secret for one kind cannot forge tokens of another.
type Secrets struct {
	Access  string `yaml:"access" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	Refresh string `yaml:"refresh" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	Reset   string `yaml:"reset" env:"RESET_PASSWORD_SECRET" env-required:"true"`
	Verify  string `yaml:"verify" env:"VERIFY_EMAIL_SECRET" env-required:"true"`
}

type Tokens struct {
	AccessTokenTTL       time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL      time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
	ResetTokenTTL        time.Duration `yaml:"reset_token_ttl" env-default:"30m"`
	VerificationTokenTTL time.Duration `yaml:"verification_token_ttl" env-default:"24h"`
}

type Password struct {
	BcryptCost int `yaml:"bcrypt_cost" env-default:"10"`
}

type RatePolicy struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type RateLimits struct {
	Login    RatePolicy `yaml:"login"`
	Register RatePolicy `yaml:"register"`
	Refresh  RatePolicy `yaml:"refresh"`
	Forgot   RatePolicy `yaml:"forgot"`
	Verify   RatePolicy `yaml:"verify"`
	Resend   RatePolicy `yaml:"resend"`
}

type PageGuard struct {
	PublicPages []string `yaml:"public_pages" env-default:"login.html,register.html,forgot.html,reset.html"`
	LoginPage   string   `yaml:"login_page" env-default:"login.html"`
	HomePage    string   `yaml:"home_page" env-default:"index.html"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disabled"`
}

type Redis struct {
	Addr     string `yaml:"addr" env-default:"redis:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env-required:"true"`
	QueueName string `yaml:"queue_name" env-required:"true"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
