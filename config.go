// Package blog is the automation toolchain for the ddnio.github.io Hugo
// blog: a Flomo-to-posts sync engine, an image pipeline that mirrors note
// attachments into OSS, a content checker, and the configuration shared
// with the preview server and the Giscus diagnostic.
package blog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is where LoadConfig looks when no path is given.
const DefaultConfigFile = ".blogkit.yaml"

// Config holds all toolchain configuration. Credentials never live here;
// they come from the environment (FLOMO_TOKEN, OSS_ACCESS_KEY_ID,
// OSS_ACCESS_KEY_SECRET).
type Config struct {
	Tags     []string       `yaml:"tags"`
	Sync     SyncConfig     `yaml:"sync"`
	OSS      OSSConfig      `yaml:"oss"`
	Diagnose DiagnoseConfig `yaml:"diagnose"`
	Preview  PreviewConfig  `yaml:"preview"`
}

// SyncConfig controls the Flomo sync run.
type SyncConfig struct {
	PostsDir   string `yaml:"posts_dir"`   // default "content/posts"
	DaysToSync int    `yaml:"days_to_sync"` // default 30
}

// OSSConfig locates the object-storage bucket for note images.
type OSSConfig struct {
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"` // default "flomo/"
}

// DiagnoseConfig controls the Giscus widget diagnostic.
type DiagnoseConfig struct {
	URL            string `yaml:"url"`             // default the local preview address
	WaitSeconds    int    `yaml:"wait_seconds"`    // observation window, default 15
	Headful        bool   `yaml:"headful"`         // set true to watch the browser
	ReportPath     string `yaml:"report_path"`     // default "tmp/giscus-report.json"
	ScreenshotPath string `yaml:"screenshot_path"` // default "tmp/giscus.png"
}

// PreviewConfig controls the local static server.
type PreviewConfig struct {
	Addr string `yaml:"addr"` // default ":1313"
	Dir  string `yaml:"dir"`  // default "public"
}

func (c *Config) setDefaults() {
	if c.Sync.PostsDir == "" {
		c.Sync.PostsDir = "content/posts"
	}
	if c.Sync.DaysToSync == 0 {
		c.Sync.DaysToSync = 30
	}
	if c.OSS.Prefix == "" {
		c.OSS.Prefix = "flomo/"
	}
	if c.Preview.Addr == "" {
		c.Preview.Addr = ":1313"
	}
	if c.Preview.Dir == "" {
		c.Preview.Dir = "public"
	}
	if c.Diagnose.URL == "" {
		c.Diagnose.URL = "http://localhost:1313/"
	}
	if c.Diagnose.WaitSeconds == 0 {
		c.Diagnose.WaitSeconds = 15
	}
	if c.Diagnose.ReportPath == "" {
		c.Diagnose.ReportPath = "tmp/giscus-report.json"
	}
	if c.Diagnose.ScreenshotPath == "" {
		c.Diagnose.ScreenshotPath = "tmp/giscus.png"
	}
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(cfg.Tags) == 0 {
		return Config{}, fmt.Errorf("config: tags must not be empty")
	}
	cfg.setDefaults()
	return cfg, nil
}

// ValidateOSS checks the fields a sync run with image uploads needs.
func (c Config) ValidateOSS() error {
	if c.OSS.Endpoint == "" {
		return fmt.Errorf("config: oss.endpoint is required")
	}
	if c.OSS.Bucket == "" {
		return fmt.Errorf("config: oss.bucket is required")
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// FlomoToken reads the Flomo bearer token from the environment.
func FlomoToken() (string, error) {
	v := os.Getenv("FLOMO_TOKEN")
	if v == "" {
		return "", fmt.Errorf("config: environment variable FLOMO_TOKEN is not set")
	}
	return v, nil
}

// OSSCredentials reads the OSS key pair from the environment.
func OSSCredentials() (id, secret string, err error) {
	id = os.Getenv("OSS_ACCESS_KEY_ID")
	secret = os.Getenv("OSS_ACCESS_KEY_SECRET")
	if id == "" || secret == "" {
		return "", "", fmt.Errorf("config: OSS_ACCESS_KEY_ID or OSS_ACCESS_KEY_SECRET is not set")
	}
	return id, secret, nil
}
