// Copyright 2025 Certen Labs

package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
	}
	if cfg.StorageKind != "durable" {
		t.Errorf("StorageKind = %q, want durable", cfg.StorageKind)
	}
	if cfg.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("ListenAddr = %q, want 127.0.0.1:8080", cfg.ListenAddr)
	}
	if cfg.IngestChunkSize != 256 {
		t.Errorf("IngestChunkSize = %d, want 256", cfg.IngestChunkSize)
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("CURVETREE_DATA_DIR", "/tmp/curvetree-test")
	t.Setenv("CURVETREE_STORAGE_KIND", "memory")
	t.Setenv("CURVETREE_INGEST_CHUNK", "16")

	cfg := Load()
	if cfg.DataDir != "/tmp/curvetree-test" {
		t.Errorf("DataDir = %q, want override", cfg.DataDir)
	}
	if cfg.StorageKind != "memory" {
		t.Errorf("StorageKind = %q, want memory", cfg.StorageKind)
	}
	if cfg.IngestChunkSize != 16 {
		t.Errorf("IngestChunkSize = %d, want 16", cfg.IngestChunkSize)
	}
}
