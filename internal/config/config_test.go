package config

import "testing"

func TestValidateRejectsJSRendering(t *testing.T) {
	c := Default()
	c.UserAgent = "test"
	c.EnableJSRendering = true
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for enable_js_rendering")
	}
}

func TestValidateDefaultsAreValid(t *testing.T) {
	c := Default()
	c.UserAgent = "test"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	c := Default()
	c.UserAgent = "test"
	c.MaxWorkers = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for zero workers")
	}
}

func TestRedisAddr(t *testing.T) {
	c := Default()
	c.RedisHost = "redis.internal"
	c.RedisPort = 6380
	if got := c.RedisAddr(); got != "redis.internal:6380" {
		t.Fatalf("unexpected redis addr: %s", got)
	}
}
