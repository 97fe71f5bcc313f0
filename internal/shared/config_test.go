package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "haven.db" {
			t.Errorf("expected database path haven.db, got %s", config.Database.Path)
		}

		if config.API.BaseURL != "http://localhost:3000/api" {
			t.Errorf("expected api base URL http://localhost:3000/api, got %s", config.API.BaseURL)
		}

		if config.API.SocketURL != "ws://localhost:3000" {
			t.Errorf("expected socket URL ws://localhost:3000, got %s", config.API.SocketURL)
		}

		if config.Images.UploadURL != "https://api.imgbb.com/1/upload" {
			t.Errorf("expected image upload URL https://api.imgbb.com/1/upload, got %s", config.Images.UploadURL)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "https://haven.example/api"
socket_url = "wss://haven.example"

[identity]
base_url = "https://id.example/v1"
token_url = "https://token.example/v1"
api_key = "test_api_key"
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:8080/callback"

[images]
upload_url = "https://img.example/upload"
api_key = "test_image_key"

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.API.SocketURL != "wss://haven.example" {
			t.Errorf("expected socket URL wss://haven.example, got %s", config.API.SocketURL)
		}

		if config.Identity.ClientID != "test_client_id" {
			t.Errorf("expected identity client_id test_client_id, got %s", config.Identity.ClientID)
		}
	})
}
