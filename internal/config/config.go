package config

import (
	"os"
	"strconv"
	"time"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/common/config"
	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// Config is the device client service configuration.
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	DeviceClient struct {
		GenericPoolSize   int
		CommandPoolSize   int
		PwdRstPoolSize    int
		LoginTimeout      time.Duration
		DefaultTimeout    time.Duration
		LocalStartupDelay time.Duration
		LiveEventCapacity int
		PollInterval      time.Duration
		EventInterval     time.Duration
		DialTimeout       time.Duration
		AutoLoginInterval time.Duration
	}

	// LocalDevice is the NVR this service runs next to.
	LocalDevice models.DeviceConfig

	Topics struct {
		Request     string // e.g. "nvr/+/request"
		EventPrefix string // live events go to <prefix><device>
	}

	Streams struct {
		Responses string
		Events    string
		MaxLen    int64
	}

	Cache struct {
		HealthPrefix string
		HealthTTL    time.Duration
	}

	Push struct {
		GatewayURL string
		Timeout    time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "nvr")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 2

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "nvr-deviceclient")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	dc := &cfg.DeviceClient
	dc.GenericPoolSize = getEnvInt("DC_GENERIC_POOL", 5)
	dc.CommandPoolSize = getEnvInt("DC_COMMAND_POOL", 10)
	dc.PwdRstPoolSize = getEnvInt("DC_PWD_RST_POOL", 3)
	dc.LoginTimeout = time.Duration(getEnvInt("DC_LOGIN_TIMEOUT_SEC", 10)) * time.Second
	dc.DefaultTimeout = time.Duration(getEnvInt("DC_DEFAULT_TIMEOUT_SEC", 30)) * time.Second
	dc.LocalStartupDelay = time.Duration(getEnvInt("DC_LOCAL_STARTUP_DELAY_MS", 3000)) * time.Millisecond
	dc.LiveEventCapacity = getEnvInt("DC_LIVE_EVENT_CAPACITY", 100)
	dc.PollInterval = time.Duration(getEnvInt("DC_POLL_INTERVAL_SEC", 5)) * time.Second
	dc.EventInterval = time.Duration(getEnvInt("DC_EVENT_INTERVAL_SEC", 1)) * time.Second
	dc.DialTimeout = time.Duration(getEnvInt("DC_DIAL_TIMEOUT_SEC", 5)) * time.Second
	dc.AutoLoginInterval = time.Duration(getEnvInt("DC_AUTO_LOGIN_INTERVAL_SEC", 30)) * time.Second

	cfg.LocalDevice = models.DeviceConfig{
		Name:      models.LocalDeviceName,
		IPAddress: getEnv("LOCAL_DEVICE_IP", "127.0.0.1"),
		Port:      uint16(getEnvInt("LOCAL_DEVICE_PORT", 8000)),
		Username:  getEnv("LOCAL_DEVICE_USER", "local"),
		Password:  getEnv("LOCAL_DEVICE_PASSWORD", ""),
		AutoLogin: true,
	}

	cfg.Topics.Request = getEnv("MQTT_REQUEST_TOPIC", "nvr/+/request")
	cfg.Topics.EventPrefix = getEnv("MQTT_EVENT_TOPIC_PREFIX", "nvr/events/")

	cfg.Streams.Responses = getEnv("STREAM_RESPONSES", "nvr:device:responses")
	cfg.Streams.Events = getEnv("STREAM_EVENTS", "nvr:device:events")
	cfg.Streams.MaxLen = int64(getEnvInt("STREAM_MAX_LEN", 10000))

	cfg.Cache.HealthPrefix = getEnv("HEALTH_CACHE_PREFIX", "nvr:health:")
	cfg.Cache.HealthTTL = time.Duration(getEnvInt("HEALTH_CACHE_TTL_SEC", 300)) * time.Second

	cfg.Push.GatewayURL = getEnv("PUSH_GATEWAY_URL", "")
	cfg.Push.Timeout = 5 * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
