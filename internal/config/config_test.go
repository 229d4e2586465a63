package config

import (
	"testing"
	"time"
)

func TestLoadClient(t *testing.T) {
	t.Setenv("SPLITSYNC_API_URL", "http://example.test/api")
	t.Setenv("SPLITSYNC_CHANNEL_URL", "")
	t.Setenv("SPLITSYNC_TOKEN_FILE", "/tmp/token")
	t.Setenv("SPLITSYNC_POLL_INTERVAL", "1m")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient failed: %v", err)
	}
	if cfg.APIURL != "http://example.test/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.ChannelURL != "ws://localhost:8080/ws" {
		t.Errorf("ChannelURL = %q, want default", cfg.ChannelURL)
	}
	if cfg.TokenFile != "/tmp/token" {
		t.Errorf("TokenFile = %q", cfg.TokenFile)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("PollInterval = %s", cfg.PollInterval)
	}
}

func TestLoadServer(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Server)
	}{
		{
			name: "defaults",
			env:  map[string]string{"PORT": "", "TOKEN_TTL": "", "REDIS_URL": ""},
			check: func(t *testing.T, cfg Server) {
				if cfg.Port != 8080 || cfg.TokenTTL != 24*time.Hour || cfg.RedisURL != "" {
					t.Errorf("unexpected defaults: %+v", cfg)
				}
			},
		},
		{
			name: "overrides",
			env:  map[string]string{"PORT": "3000", "TOKEN_TTL": "2h", "REDIS_URL": "redis://localhost:6379/0"},
			check: func(t *testing.T, cfg Server) {
				if cfg.Port != 3000 || cfg.TokenTTL != 2*time.Hour || cfg.RedisURL == "" {
					t.Errorf("unexpected config: %+v", cfg)
				}
			},
		},
		{name: "bad port", env: map[string]string{"PORT": "http"}, wantErr: true},
		{name: "bad ttl", env: map[string]string{"PORT": "", "TOKEN_TTL": "-1h"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadServer()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadServer failed: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}
