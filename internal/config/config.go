package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vanilla-extract.json"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"
)

// Config represents the complete vanilla-extract.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Identifiers selects the class naming policy: "short" or "debug".
	// Empty means mode-dependent (short in production, debug otherwise).
	Identifiers string `json:"identifiers,omitempty"`

	// Extensions are the style file suffixes handled by the pipeline.
	Extensions []string `json:"extensions,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty"`

	// Deploy contains artifact upload configuration.
	Deploy DeployConfig `json:"deploy,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// HotReload enables pushing style updates to connected browsers.
	HotReload *bool `json:"hotReload,omitempty"`

	// Watch contains directories to watch for changes.
	Watch []string `json:"watch,omitempty"`

	// Ignore contains patterns to skip during watch.
	Ignore []string `json:"ignore,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Output is the output directory for builds.
	Output string `json:"output,omitempty"`

	// Minify enables CSS and JS minification.
	Minify *bool `json:"minify,omitempty"`

	// Fingerprint appends a content hash to output file names.
	Fingerprint *bool `json:"fingerprint,omitempty"`
}

// DeployConfig contains artifact upload settings.
type DeployConfig struct {
	// Bucket is the S3 bucket receiving build artifacts.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the key prefix inside the bucket.
	Prefix string `json:"prefix,omitempty"`

	// Region overrides the SDK's resolved AWS region.
	Region string `json:"region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	enabled := true
	return &Config{
		Version:    "0.1.0",
		Extensions: []string{".css.ts"},
		Dev: DevConfig{
			Port:      DefaultPort,
			Host:      DefaultHost,
			HotReload: &enabled,
			Watch:     []string{"src"},
		},
		Build: BuildConfig{
			Output:      DefaultOutput,
			Minify:      &enabled,
			Fingerprint: &enabled,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vanilla-extract.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " in the project root")
		}
		return nil, errors.New("E102").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E102").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E102").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Watch == nil {
		c.Dev.Watch = []string{"src"}
	}
	if c.Dev.HotReload == nil {
		enabled := true
		c.Dev.HotReload = &enabled
	}

	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Build.Minify == nil {
		enabled := true
		c.Build.Minify = &enabled
	}
	if c.Build.Fingerprint == nil {
		enabled := true
		c.Build.Fingerprint = &enabled
	}

	if len(c.Extensions) == 0 {
		c.Extensions = []string{".css.ts"}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E102").
			WithDetail("dev.port must be between 0 and 65535")
	}
	switch c.Identifiers {
	case "", "short", "debug":
	default:
		return errors.New("E103").
			WithDetail("identifiers is " + strconv.Quote(c.Identifiers)).
			WithSuggestion(`Use "short" or "debug", or omit the option`)
	}
	return nil
}

// HotReload reports whether style updates are pushed to browsers.
func (c *Config) HotReload() bool {
	return c.Dev.HotReload == nil || *c.Dev.HotReload
}

// Minify reports whether build output is minified.
func (c *Config) Minify() bool {
	return c.Build.Minify == nil || *c.Build.Minify
}

// Fingerprint reports whether output file names carry a content hash.
func (c *Config) Fingerprint() bool {
	return c.Build.Fingerprint == nil || *c.Build.Fingerprint
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.Build.Output) {
		return c.Build.Output
	}
	return filepath.Join(c.Dir(), c.Build.Output)
}

// WatchPaths returns the absolute paths of the watched directories.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.Dir(), p)
		}
		paths = append(paths, p)
	}
	return paths
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing vanilla-extract.json, or an error
// if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E101").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
