package main

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails when HAMH_CONFIG_FILE names a
// path that does not exist.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("HAMH_CONFIG_FILE")
	defer os.Setenv("HAMH_CONFIG_FILE", originalEnv)

	os.Setenv("HAMH_CONFIG_FILE", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingHomeAssistantURL verifies run fails before starting any
// server when no upstream is configured.
func TestRun_MissingHomeAssistantURL(t *testing.T) {
	originalEnv := os.Getenv("HAMH_CONFIG_FILE")
	defer os.Setenv("HAMH_CONFIG_FILE", originalEnv)
	os.Unsetenv("HAMH_CONFIG_FILE")
	os.Unsetenv("HAMH_HOME_ASSISTANT_URL")
	os.Unsetenv("HAMH_HOME_ASSISTANT_ACCESS_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when home assistant is unreachable")
	}
}

// TestGetConfigPath_Default verifies the default config path is empty
// (no base YAML layer) when HAMH_CONFIG_FILE is unset.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("HAMH_CONFIG_FILE")
	defer os.Setenv("HAMH_CONFIG_FILE", originalEnv)

	os.Unsetenv("HAMH_CONFIG_FILE")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("HAMH_CONFIG_FILE")
	defer os.Setenv("HAMH_CONFIG_FILE", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("HAMH_CONFIG_FILE", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
