package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/qlayout/pkg/airbridge"
	"github.com/matzehuels/qlayout/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	b, err := cfg.AirBridge()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(airbridge.DefaultConfig(), b); diff != "" {
		t.Errorf("bridge defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[bridges]
spacing = 200
clearance = 5.5

[store]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"

[server]
addr = "127.0.0.1:9000"
read_timeout = "5s"
`)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bridges.Spacing != 200 || cfg.Bridges.Clearance != 5.5 {
		t.Errorf("bridges = %+v", cfg.Bridges)
	}
	if cfg.Bridges.Type != "AirBridge" {
		t.Errorf("unset bridge type lost its default: %q", cfg.Bridges.Type)
	}
	if cfg.Store.Backend != BackendMongo || cfg.Store.MongoCollection != "designs" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		code errors.Code
	}{
		{"syntax", `[bridges`, errors.ErrCodeInvalidFormat},
		{"unknown key", "[bridges]\nspaceing = 3", errors.ErrCodeInvalidFormat},
		{"zero spacing", "[bridges]\nspacing = 0", errors.ErrCodeInvalidInput},
		{"negative clearance", "[bridges]\nclearance = -1", errors.ErrCodeInvalidInput},
		{"bad store", "[store]\nbackend = \"s3\"", errors.ErrCodeInvalidInput},
		{"redis without url", "[store]\nbackend = \"redis\"", errors.ErrCodeInvalidInput},
		{"bad cache", "[cache]\nbackend = \"memcached\"", errors.ErrCodeInvalidInput},
		{"zero topology spacing", "[topology]\nspacing = 0", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a file: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("missing default file should give defaults (-want +got):\n%s", diff)
	}

	path := filepath.Join(dir, AppName, "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[topology]\nspacing = 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Topology.Spacing != 250 {
		t.Errorf("topology spacing = %g", cfg.Topology.Spacing)
	}

	if _, err := Load(filepath.Join(dir, "nope.toml")); errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("explicit missing file error = %v", err)
	}
}

func TestDirs(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/x/cache")
	t.Setenv("XDG_DATA_HOME", "/x/data")
	cfg := Default()

	if got, _ := cfg.CacheDir(); got != filepath.Join("/x/cache", AppName) {
		t.Errorf("CacheDir() = %q", got)
	}
	if got, _ := cfg.StoreDir(); got != filepath.Join("/x/data", AppName, "designs") {
		t.Errorf("StoreDir() = %q", got)
	}
	cfg.Cache.Dir = "/explicit"
	if got, _ := cfg.CacheDir(); got != "/explicit" {
		t.Errorf("CacheDir() with cache.dir = %q", got)
	}
}
