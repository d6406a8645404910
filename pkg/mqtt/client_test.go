package mqtt

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("tcp://localhost:1883", "fleet-test")
	if !cfg.AutoReconnect || !cfg.CleanSession || cfg.KeepAlive != 30 {
		t.Errorf("defaults = %+v", cfg)
	}

	c := NewClient(cfg)
	if c.IsConnected() {
		t.Error("new client reports connected")
	}
	if c.timeout() != 10*time.Second {
		t.Errorf("timeout = %v", c.timeout())
	}
}

func TestConnectUnreachableBroker(t *testing.T) {
	cfg := DefaultConfig("tcp://127.0.0.1:1", "fleet-test")
	cfg.AutoReconnect = false
	cfg.ConnectTimeout = 1

	if err := NewClient(cfg).Connect(); err == nil {
		t.Error("expected connect error")
	}
}
