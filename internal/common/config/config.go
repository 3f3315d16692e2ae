package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Gateway struct {
		Port int
		// RelayFromMQ attaches the RabbitMQ consumers so events from
		// other processes reach the hub. Leave off in a single-binary
		// deployment: the in-process bus already delivers everything
		// and consuming the exchanges too would double every frame.
		RelayFromMQ bool
	}
	Services struct {
		OrderServicePort    int
		DispatchServicePort int
		TrackingServicePort int
	}
	JWTSecret string
	Geofence  struct {
		// Arrival-detection radius in meters used when an order has no
		// explicit geofence row.
		DefaultRadiusM float64
	}
	Notification struct {
		Workers int
	}
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return def
}

func LoadConfig() (*Config, error) {
	// .env is optional; deployments usually set real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "chakula_user")
	cfg.Database.Password = getEnv("DB_PASSWORD", "chakula_pass")
	cfg.Database.Name = getEnv("DB_NAME", "chakula_db")

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", 5672)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")

	cfg.Gateway.Port = getEnvInt("GATEWAY_PORT", 8080)
	cfg.Gateway.RelayFromMQ = getEnvBool("GATEWAY_RELAY_FROM_MQ", false)

	cfg.Services.OrderServicePort = getEnvInt("ORDER_SERVICE_PORT", 3000)
	cfg.Services.DispatchServicePort = getEnvInt("DISPATCH_SERVICE_PORT", 3001)
	cfg.Services.TrackingServicePort = getEnvInt("TRACKING_SERVICE_PORT", 3002)

	cfg.JWTSecret = getEnv("JWT_SECRET", "super-secret-key")

	cfg.Geofence.DefaultRadiusM = getEnvFloat("GEOFENCE_DEFAULT_RADIUS_M", 100)

	cfg.Notification.Workers = getEnvInt("NOTIFICATION_WORKERS", 4)

	return cfg, nil
}

func (c *Config) Print() {
	fmt.Printf("Database: %s@%s:%d/%s\n", c.Database.User, c.Database.Host, c.Database.Port, c.Database.Name)
	fmt.Printf("RabbitMQ: amqp://%s@%s:%d\n", c.RabbitMQ.User, c.RabbitMQ.Host, c.RabbitMQ.Port)
	fmt.Printf("Gateway port: %d (relay from MQ: %v)\n", c.Gateway.Port, c.Gateway.RelayFromMQ)
	fmt.Printf("Services -> order:%d | dispatch:%d | tracking:%d\n",
		c.Services.OrderServicePort, c.Services.DispatchServicePort, c.Services.TrackingServicePort)
}
