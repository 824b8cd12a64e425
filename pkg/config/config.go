// Package config loads the enhancer service configuration from an optional
// YAML file layered with environment variable overrides. Validation is
// fail-fast: a service with a bad mode, a missing API key or an empty script
// path refuses to start rather than failing on the first request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddress        = ":8080"
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultScriptPath     = "enhance_prompt.sh"
	defaultTemplateName   = "default"
	defaultMode           = "gemini"
	defaultBrowserTimeout = 120 * time.Second
)

// Server holds the HTTP listener settings.
type Server struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Security holds authentication settings.
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Command configures the script-invocation backend.
type Command struct {
	ScriptPath string `yaml:"script_path"`
}

// Gemini configures the browser-automation backend.
type Gemini struct {
	BrowserPath string        `yaml:"browser_path"`
	ProfileDir  string        `yaml:"profile_dir"`
	Timeout     time.Duration `yaml:"timeout"`
	AutoInstall bool          `yaml:"auto_install"`
	ShowUI      bool          `yaml:"show_ui"`
}

// Enhancer groups the backend settings shared by the mode coordinator.
type Enhancer struct {
	AutoCleanupTempFiles bool    `yaml:"auto_cleanup_temp_files"`
	TemplateName         string  `yaml:"template_name"`
	Mode                 string  `yaml:"mode"`
	Command              Command `yaml:"command"`
	Gemini               Gemini  `yaml:"gemini"`
}

// Config is the full service configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Security Security `yaml:"security"`
	Enhancer Enhancer `yaml:"enhancer"`
}

// rawConfig mirrors Config with durations as strings so that YAML values like
// "5s" and bare integers (seconds) both parse.
type rawConfig struct {
	Server struct {
		Address      string `yaml:"address"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Security struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"security"`
	Enhancer struct {
		AutoCleanupTempFiles *bool  `yaml:"auto_cleanup_temp_files"`
		TemplateName         string `yaml:"template_name"`
		Mode                 string `yaml:"mode"`
		Command              struct {
			ScriptPath string `yaml:"script_path"`
		} `yaml:"command"`
		Gemini struct {
			BrowserPath string `yaml:"browser_path"`
			ProfileDir  string `yaml:"profile_dir"`
			Timeout     string `yaml:"timeout"`
			AutoInstall *bool  `yaml:"auto_install"`
			ShowUI      *bool  `yaml:"show_ui"`
		} `yaml:"gemini"`
	} `yaml:"enhancer"`
}

// Load reads configuration from the optional YAML file at path, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var raw rawConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&raw)

	cfg := &Config{
		Server: Server{
			Address:      strings.TrimSpace(raw.Server.Address),
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Security: Security{APIKey: strings.TrimSpace(raw.Security.APIKey)},
		Enhancer: Enhancer{
			TemplateName: strings.TrimSpace(raw.Enhancer.TemplateName),
			Mode:         strings.ToLower(strings.TrimSpace(raw.Enhancer.Mode)),
			Command: Command{
				ScriptPath: strings.TrimSpace(raw.Enhancer.Command.ScriptPath),
			},
			Gemini: Gemini{
				BrowserPath: strings.TrimSpace(raw.Enhancer.Gemini.BrowserPath),
				ProfileDir:  strings.TrimSpace(raw.Enhancer.Gemini.ProfileDir),
				Timeout:     defaultBrowserTimeout,
			},
		},
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Enhancer.TemplateName == "" {
		cfg.Enhancer.TemplateName = defaultTemplateName
	}
	if cfg.Enhancer.Mode == "" {
		cfg.Enhancer.Mode = defaultMode
	}
	if cfg.Enhancer.Command.ScriptPath == "" {
		cfg.Enhancer.Command.ScriptPath = defaultScriptPath
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDuration(raw.Server.ReadTimeout, defaultReadTimeout); err != nil {
		return nil, fmt.Errorf("server.read_timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDuration(raw.Server.WriteTimeout, defaultWriteTimeout); err != nil {
		return nil, fmt.Errorf("server.write_timeout: %w", err)
	}
	if cfg.Enhancer.Gemini.Timeout, err = parseDuration(raw.Enhancer.Gemini.Timeout, defaultBrowserTimeout); err != nil {
		return nil, fmt.Errorf("enhancer.gemini.timeout: %w", err)
	}

	if raw.Enhancer.AutoCleanupTempFiles != nil {
		cfg.Enhancer.AutoCleanupTempFiles = *raw.Enhancer.AutoCleanupTempFiles
	}
	if raw.Enhancer.Gemini.AutoInstall != nil {
		cfg.Enhancer.Gemini.AutoInstall = *raw.Enhancer.Gemini.AutoInstall
	}
	if raw.Enhancer.Gemini.ShowUI != nil {
		cfg.Enhancer.Gemini.ShowUI = *raw.Enhancer.Gemini.ShowUI
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Security.APIKey == "" {
		return fmt.Errorf("security.api_key must be provided via config file or API_KEY environment variable")
	}
	if c.Enhancer.Mode != "command" && c.Enhancer.Mode != "gemini" {
		return fmt.Errorf("enhancer.mode must be either 'command' or 'gemini', got %q", c.Enhancer.Mode)
	}
	return nil
}

func applyEnv(raw *rawConfig) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(dst **bool, key string) {
		if v := os.Getenv(key); v != "" {
			b := parseBool(v)
			*dst = &b
		}
	}

	setString(&raw.Server.Address, "SERVER_ADDRESS")
	setString(&raw.Server.ReadTimeout, "READ_TIMEOUT")
	setString(&raw.Server.WriteTimeout, "WRITE_TIMEOUT")
	setString(&raw.Security.APIKey, "API_KEY")
	setString(&raw.Enhancer.TemplateName, "ENHANCER_TEMPLATE_NAME")
	setString(&raw.Enhancer.Mode, "ENHANCER_MODE")
	setString(&raw.Enhancer.Command.ScriptPath, "ENHANCE_SCRIPT_PATH")
	setBool(&raw.Enhancer.AutoCleanupTempFiles, "AUTO_CLEANUP_TEMP_FILES")
	setString(&raw.Enhancer.Gemini.BrowserPath, "GEMINI_BROWSER_PATH")
	setString(&raw.Enhancer.Gemini.ProfileDir, "GEMINI_PROFILE_DIR")
	setString(&raw.Enhancer.Gemini.Timeout, "GEMINI_TIMEOUT")
	setBool(&raw.Enhancer.Gemini.AutoInstall, "GEMINI_AUTO_INSTALL")
	setBool(&raw.Enhancer.Gemini.ShowUI, "GEMINI_SHOW_UI")
}

// parseDuration accepts Go duration strings ("5s", "100ms") and bare integers,
// which are treated as seconds.
func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
