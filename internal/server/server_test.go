package server

import (
	"testing"
	"time"

	"github.com/onnwee/tripletree/internal/config"
)

func TestNewServerWiresComponents(t *testing.T) {
	cfg := &config.Config{
		CacheMaxSizeMB: 16,
		CacheMaxItems:  100,
		CacheTTL:       time.Minute,
		JobInterval:    time.Second,
	}

	s, err := NewServer(nil, cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.Store == nil {
		t.Error("store not wired")
	}
	if s.Cache == nil {
		t.Error("cache not wired")
	}
	if s.Hub == nil {
		t.Error("hub not wired")
	}
	if s.Service == nil {
		t.Error("service not wired")
	}
	if s.job == nil {
		t.Error("run job not wired")
	}
}
