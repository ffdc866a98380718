package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// isolate points the config search paths at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	// registers the restore, then clears the variable for the test
	t.Setenv(PasswordEnv, "")
	os.Unsetenv(PasswordEnv)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return dir
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.String("file", "dope.csv", "")
	f.Uint32("capacity", 13, "")
	f.Duration("lock-timeout", 10*time.Second, "")
	return cmd
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	c, err := Load(newCommand(), "")
	if err != nil {
		t.Fatal(err)
	}

	want := Config{
		File:        "dope.csv",
		Capacity:    13,
		Compression: "off",
		LockTimeout: 10 * time.Second,
	}
	if c != want {
		t.Fatalf("Load() = %+v, want %+v", c, want)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	cfgFile := filepath.Join(dir, "custom.yaml")
	data := "file: from-file.csv\ncapacity: 31\ncompression: max\nlock-timeout: 3s\n"
	if err := os.WriteFile(cfgFile, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOPE_CAPACITY", "64")
	t.Setenv("DOPE_LOCK_TIMEOUT", "1m")

	cmd := newCommand()
	if err := cmd.Flags().Set("lock-timeout", "2s"); err != nil {
		t.Fatal(err)
	}

	c, err := Load(cmd, cfgFile)
	if err != nil {
		t.Fatal(err)
	}

	if c.File != "from-file.csv" {
		t.Errorf("File = %q, want value from config file", c.File)
	}
	if c.Compression != "max" {
		t.Errorf("Compression = %q, want value from config file", c.Compression)
	}
	if c.Capacity != 64 {
		t.Errorf("Capacity = %d, want value from environment", c.Capacity)
	}
	if c.LockTimeout != 2*time.Second {
		t.Errorf("LockTimeout = %v, want value from flag", c.LockTimeout)
	}
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "dope.yaml"), []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if !c.Debug {
		t.Fatalf("dope.yaml in the working directory was not read")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(nil, filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("missing explicit config file was accepted")
	}
}

func TestWriteFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "sub", "dope.yaml")

	want := Config{
		File:        "/var/lib/dope/table.csv",
		Capacity:    101,
		Compression: "auto",
		LockTimeout: 5 * time.Second,
		Debug:       true,
	}
	if err := WriteFile(want, path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(nil, path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("read back %+v, want %+v", got, want)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm() != 0600 {
		t.Fatalf("config file has mode %v, want 0600", fi.Mode().Perm())
	}
}

func TestPassword(t *testing.T) {
	dir := isolate(t)

	pwFile := filepath.Join(dir, "pw")
	if err := os.WriteFile(pwFile, []byte("from-file\r\nignored\n"), 0600); err != nil {
		t.Fatal(err)
	}

	c := Config{}
	if pw, err := c.Password(); err != nil || pw != "" {
		t.Fatalf("Password() = %q, %v without any source", pw, err)
	}

	c.PasswordFile = pwFile
	if pw, err := c.Password(); err != nil || pw != "from-file" {
		t.Fatalf("Password() = %q, %v, want password from file", pw, err)
	}

	t.Setenv(PasswordEnv, "from-env")
	if pw, err := c.Password(); err != nil || pw != "from-env" {
		t.Fatalf("Password() = %q, %v, want password from environment", pw, err)
	}

	c.PasswordFile = filepath.Join(dir, "missing")
	os.Unsetenv(PasswordEnv)
	if _, err := c.Password(); err == nil {
		t.Fatal("missing password file was accepted")
	}
}
