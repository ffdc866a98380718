package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/fs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the settings of the dope command.
type Config struct {
	File         string        `mapstructure:"file" yaml:"file"`
	Capacity     uint32        `mapstructure:"capacity" yaml:"capacity"`
	Compression  string        `mapstructure:"compression" yaml:"compression"`
	PasswordFile string        `mapstructure:"password-file" yaml:"password-file,omitempty"`
	LockTimeout  time.Duration `mapstructure:"lock-timeout" yaml:"lock-timeout"`
	Debug        bool          `mapstructure:"debug" yaml:"debug"`
}

// PasswordEnv names the environment variable holding the table password.
const PasswordEnv = "DOPE_PASSWORD"

// Defaults returns the built-in default settings.
func Defaults() map[string]any {
	return map[string]any{
		"file":          "dope.csv",
		"capacity":      13,
		"compression":   "off",
		"password-file": "",
		"lock-timeout":  10 * time.Second,
		"debug":         false,
	}
}

// configDir returns the directory searched for dope.yaml.
func configDir(system bool) (string, error) {
	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			return filepath.Join(os.Getenv("ProgramData"), "dope"), nil
		default:
			return "/etc/dope", nil
		}
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "could not get user config directory")
	}
	return filepath.Join(dir, "dope"), nil
}

// Load builds the configuration from, in increasing order of precedence,
// the defaults, the config file, DOPE_* environment variables and the flags
// of cmd that were set on the command line. If configFile is empty, dope.yaml
// is searched in the current directory, the user config directory and the
// system config directory; a missing file is not an error.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("dope")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := configDir(false); err == nil {
			v.AddConfigPath(dir)
		}
		if dir, err := configDir(true); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, errors.Wrap(err, "read config")
		}
	}

	v.SetEnvPrefix("dope")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, errors.Wrap(err, "bind flags")
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, errors.Wrap(err, "parse config")
	}

	return c, nil
}

// Marshal returns c encoded as YAML.
func Marshal(c Config) ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "yaml.Marshal")
}

// WriteFile stores c as YAML at path, creating the parent directory.
func WriteFile(c Config, path string) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "could not create config directory for %v", path)
	}

	// the file may name a password file, keep it private
	return errors.WithStack(fs.WriteFile(path, data, 0600))
}

// Password returns the table password from $DOPE_PASSWORD or, if that is
// unset, from the first line of the configured password file. An empty
// password means the table is not encrypted.
func (c Config) Password() (string, error) {
	if pw, ok := os.LookupEnv(PasswordEnv); ok {
		return pw, nil
	}

	if c.PasswordFile == "" {
		return "", nil
	}

	buf, err := os.ReadFile(c.PasswordFile)
	if err != nil {
		return "", errors.Wrap(err, "read password file")
	}

	pw, _, _ := strings.Cut(string(buf), "\n")
	return strings.TrimSuffix(pw, "\r"), nil
}
