package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all provisioner configuration.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Target  TargetConfig  `mapstructure:"target"`
	State   StateConfig   `mapstructure:"state"`
	Service ServiceConfig `mapstructure:"service"`
	Migrate MigrateConfig `mapstructure:"migrate"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig holds the location of the application payload.
type SourceConfig struct {
	// Dir contains the application files and the deploy manifest.
	Dir string `mapstructure:"dir"`
}

// TargetConfig holds the installation target layout.
type TargetConfig struct {
	// VenvDir is the virtual environment root. Must live under the
	// invoking user's home directory.
	VenvDir string `mapstructure:"venv_dir"`
	// InstallDir receives the application files. Empty means VenvDir.
	InstallDir string `mapstructure:"install_dir"`
	// BinDir receives the launcher and its symlinks.
	BinDir string `mapstructure:"bin_dir"`
	// Executable is the launcher name published into BinDir.
	Executable string `mapstructure:"executable"`
	// Symlinks are alternate names pointing at Executable.
	Symlinks []string `mapstructure:"symlinks"`
}

// StateConfig holds the provisioner's own state location.
type StateConfig struct {
	// Dir receives provision.log and journal.db.
	Dir string `mapstructure:"dir"`
}

// ServiceConfig holds systemd service settings.
type ServiceConfig struct {
	// Unit is the service name without the .service suffix.
	Unit string `mapstructure:"unit"`
	// User runs the daemon. Empty triggers an interactive prompt.
	User string `mapstructure:"user"`
	// Port is the TCP port the daemon listens on.
	Port int `mapstructure:"port"`
	// LogPath and ErrPath receive the daemon's stdout and stderr.
	LogPath string `mapstructure:"log_path"`
	ErrPath string `mapstructure:"err_path"`
}

// MigrateConfig holds Flask database migration settings.
type MigrateConfig struct {
	// App is the FLASK_APP entry point inside the install dir.
	App string `mapstructure:"app"`
	// Message labels the generated migration revision.
	Message string `mapstructure:"message"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Dir: ".",
		},
		Target: TargetConfig{
			VenvDir:    "~/.pulsemon",
			InstallDir: "",
			BinDir:     "/usr/local/bin",
			Executable: "pulsemon-web",
			Symlinks:   []string{"pulsemonweb", "pmweb"},
		},
		State: StateConfig{
			Dir: "~/.local/state/pulsemon",
		},
		Service: ServiceConfig{
			Unit:    "pulsemon",
			User:    "",
			Port:    65432,
			LogPath: "/var/log/pulsemon.log",
			ErrPath: "/var/log/pulsemon.err",
		},
		Migrate: MigrateConfig{
			App:     "main.py",
			Message: "pulsemon schema update",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   false,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pulsemon-provision")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.pulsemon")
	}

	// Environment variable settings
	v.SetEnvPrefix("PULSEMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	// Unmarshal into struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.dir", ".")

	// Target defaults
	v.SetDefault("target.venv_dir", "~/.pulsemon")
	v.SetDefault("target.install_dir", "")
	v.SetDefault("target.bin_dir", "/usr/local/bin")
	v.SetDefault("target.executable", "pulsemon-web")
	v.SetDefault("target.symlinks", []string{"pulsemonweb", "pmweb"})

	// State defaults
	v.SetDefault("state.dir", "~/.local/state/pulsemon")

	// Service defaults
	v.SetDefault("service.unit", "pulsemon")
	v.SetDefault("service.user", "")
	v.SetDefault("service.port", 65432)
	v.SetDefault("service.log_path", "/var/log/pulsemon.log")
	v.SetDefault("service.err_path", "/var/log/pulsemon.err")

	// Migrate defaults
	v.SetDefault("migrate.app", "main.py")
	v.SetDefault("migrate.message", "pulsemon schema update")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", false)
}

// ExpandPaths resolves "~" prefixes against the current user's home.
func (c *Config) ExpandPaths() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}
	c.Target.VenvDir = expandHome(c.Target.VenvDir, home)
	c.Target.InstallDir = expandHome(c.Target.InstallDir, home)
	c.State.Dir = expandHome(c.State.Dir, home)
	if c.Target.InstallDir == "" {
		c.Target.InstallDir = c.Target.VenvDir
	}
	abs, err := filepath.Abs(c.Source.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve source dir: %w", err)
	}
	c.Source.Dir = abs
	return nil
}

// Validate rejects layouts the installer refuses to operate on.
func (c *Config) Validate() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}
	if !isUnder(c.Target.VenvDir, home) {
		return fmt.Errorf("venv dir %s is outside the home directory %s", c.Target.VenvDir, home)
	}
	if !filepath.IsAbs(c.Target.BinDir) {
		return fmt.Errorf("bin dir %s is not an absolute path", c.Target.BinDir)
	}
	if c.Target.Executable == "" {
		return fmt.Errorf("executable name is empty")
	}
	for _, name := range c.Target.Symlinks {
		if name == c.Target.Executable {
			return fmt.Errorf("symlink %s collides with the executable name", name)
		}
	}
	if c.Service.Unit == "" {
		return fmt.Errorf("service unit name is empty")
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("service port %d is out of range", c.Service.Port)
	}
	return nil
}

// VenvBin returns the path of a tool inside the venv's bin directory.
func (c *TargetConfig) VenvBin(name string) string {
	return filepath.Join(c.VenvDir, "bin", name)
}

// UnitFile returns the systemd unit file name.
func (c *ServiceConfig) UnitFile() string {
	return c.Unit + ".service"
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
