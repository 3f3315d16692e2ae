package config

import "testing"

func TestLoadConfig_MQRelayDefaultsOff(t *testing.T) {
	t.Setenv("GATEWAY_RELAY_FROM_MQ", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Gateway.RelayFromMQ {
		t.Error("MQ relay should be off by default; the bus already feeds the hub in-process")
	}
}

func TestLoadConfig_MQRelayEnabled(t *testing.T) {
	for _, val := range []string{"true", "1"} {
		t.Setenv("GATEWAY_RELAY_FROM_MQ", val)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("load config with %q: %v", val, err)
		}
		if !cfg.Gateway.RelayFromMQ {
			t.Errorf("GATEWAY_RELAY_FROM_MQ=%q should enable the MQ relay", val)
		}
	}
}
