package main

import (
	"testing"
	"time"
)

func TestLoadFlags(t *testing.T) {
	v, err := loadFlags([]string{"--target=mqtt", "--interval=500ms", "--qos=0"})
	if err != nil {
		t.Fatal(err)
	}
	if v.GetString("target") != "mqtt" || v.GetDuration("interval") != 500*time.Millisecond || v.GetUint("qos") != 0 {
		t.Errorf("flags not applied: target=%s interval=%s qos=%d", v.GetString("target"), v.GetDuration("interval"), v.GetUint("qos"))
	}
	if v.GetString("api-url") != "http://localhost:8080/api/v1" {
		t.Errorf("api-url default = %q", v.GetString("api-url"))
	}
}

func TestLoadFlagsFromEnv(t *testing.T) {
	t.Setenv("SIM_API_URL", "http://fleet:9000/api/v1")
	v, err := loadFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.GetString("api-url"); got != "http://fleet:9000/api/v1" {
		t.Errorf("api-url = %q", got)
	}
}

func TestNewSinkRejectsUnknownTarget(t *testing.T) {
	v, err := loadFlags([]string{"--target=carrier-pigeon"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := newSink(v); err == nil {
		t.Error("expected error for unknown target")
	}
}
