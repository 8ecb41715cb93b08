package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.nvr")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "nvrx")

	c := DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable"}
	c.LoadFromEnv("DB")

	assert.Equal(t, "db.nvr", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, "nvrx", c.Database)
	assert.Contains(t, c.GetDSN(), "host=db.nvr port=6543")
	assert.Contains(t, c.GetDSN(), "sslmode=disable")
}

func TestMQTTConfig_LoadFromEnv_QoS(t *testing.T) {
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	c := MQTTConfig{QoS: 1}
	c.LoadFromEnv("MQTT")
	assert.Equal(t, byte(2), c.QoS)
	assert.Equal(t, "tcp://broker:1883", c.Broker)

	t.Setenv("MQTT_QOS", "7")
	c.LoadFromEnv("MQTT")
	assert.Equal(t, byte(2), c.QoS)
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "3")

	c := RedisConfig{}
	c.LoadFromEnv("REDIS")
	assert.Equal(t, "cache:6380", c.Addr)
	assert.Equal(t, 3, c.DB)
}
