package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/backend/local"
	"github.com/skyline93/dope/internal/config"
	"github.com/skyline93/dope/internal/crypto"
	"github.com/skyline93/dope/internal/hashtable"
	"github.com/skyline93/dope/internal/repository"
)

func TestMain(m *testing.M) {
	repository.Params = &crypto.Params{N: 1024, R: 1, P: 1}
	os.Exit(m.Run())
}

// testOptions returns global options operating on a table in a fresh
// temporary directory. Output is collected in the returned buffer.
func testOptions(t testing.TB) (GlobalOptions, *bytes.Buffer) {
	t.Helper()

	t.Setenv(config.PasswordEnv, "")
	os.Unsetenv(config.PasswordEnv)

	buf := &bytes.Buffer{}
	gopts := GlobalOptions{
		Config: config.Config{
			File:        filepath.Join(t.TempDir(), "table.csv"),
			Capacity:    repository.DefaultCapacity,
			Compression: "off",
			LockTimeout: 0,
		},
		stdout: buf,
	}
	return gopts, buf
}

func testRunInsert(t testing.TB, gopts GlobalOptions, key, value string) {
	t.Helper()
	if err := runInsert(context.TODO(), gopts, key, value); err != nil {
		t.Fatalf("insert %q: %v", key, err)
	}
}

func testRunGet(t testing.TB, gopts GlobalOptions, out *bytes.Buffer, key string) string {
	t.Helper()
	out.Reset()
	if err := runGet(context.TODO(), gopts, key); err != nil {
		t.Fatalf("get %q: %v", key, err)
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func TestInsertGetDelete(t *testing.T) {
	gopts, out := testOptions(t)

	testRunInsert(t, gopts, "apple", "red")
	testRunInsert(t, gopts, "banana", "yellow")
	testRunInsert(t, gopts, "apple", "green")

	if v := testRunGet(t, gopts, out, "apple"); v != "green" {
		t.Fatalf("get apple = %q, want green", v)
	}
	if v := testRunGet(t, gopts, out, "banana"); v != "yellow" {
		t.Fatalf("get banana = %q, want yellow", v)
	}

	if err := runDelete(context.TODO(), gopts, "apple"); err != nil {
		t.Fatal(err)
	}

	err := runGet(context.TODO(), gopts, "apple")
	if !errors.Is(err, hashtable.ErrKeyNotFound) {
		t.Fatalf("get after delete returned %v, want ErrKeyNotFound", err)
	}

	err = runDelete(context.TODO(), gopts, "apple")
	if !errors.Is(err, hashtable.ErrKeyNotFound) {
		t.Fatalf("second delete returned %v, want ErrKeyNotFound", err)
	}
}

func TestTableFileIsPlainCSV(t *testing.T) {
	gopts, _ := testOptions(t)

	testRunInsert(t, gopts, "a", "1")

	buf, err := os.ReadFile(gopts.Config.File)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "key,value\na,1\n" {
		t.Fatalf("unexpected table file content %q", buf)
	}
}

func TestReadOnlyCommandsDoNotCreateTable(t *testing.T) {
	gopts, _ := testOptions(t)

	if err := runPrint(context.TODO(), gopts); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(gopts.Config.File); !os.IsNotExist(err) {
		t.Fatalf("print created the table file: %v", err)
	}
}

func TestPrint(t *testing.T) {
	gopts, out := testOptions(t)

	testRunInsert(t, gopts, "a", "1")

	out.Reset()
	if err := runPrint(context.TODO(), gopts); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	// header, one line per bucket and the summary
	if len(lines) != 1+repository.DefaultCapacity+1 {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), repository.DefaultCapacity+2, out.String())
	}
	if lines[0] != "========== Table ==========" {
		t.Fatalf("unexpected header %q", lines[0])
	}

	// "a" hashes to 97, which lands in bucket 97 % 13 = 6
	for i, line := range lines[1 : len(lines)-1] {
		want := "-----"
		if i == 6 {
			want = `Key: "a", Value: "1", `
		}
		if line != want {
			t.Errorf("bucket %d: got %q, want %q", i, line, want)
		}
	}

	if !strings.HasPrefix(lines[len(lines)-1], "1 entries in 13 buckets") {
		t.Errorf("unexpected summary %q", lines[len(lines)-1])
	}
}

func TestEncryptedTable(t *testing.T) {
	gopts, out := testOptions(t)

	t.Setenv(config.PasswordEnv, "secret")
	testRunInsert(t, gopts, "k", "v")

	if v := testRunGet(t, gopts, out, "k"); v != "v" {
		t.Fatalf("get k = %q, want v", v)
	}

	buf, err := os.ReadFile(gopts.Config.File)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf, []byte("key,value")) {
		t.Fatal("table file contains plaintext")
	}

	t.Setenv(config.PasswordEnv, "wrong")
	err = runGet(context.TODO(), gopts, "k")
	if !errors.Is(err, repository.ErrWrongPassword) {
		t.Fatalf("get with wrong password returned %v", err)
	}

	os.Unsetenv(config.PasswordEnv)
	if err := runGet(context.TODO(), gopts, "k"); err == nil {
		t.Fatal("get without password succeeded")
	}
}

func TestCompressedTable(t *testing.T) {
	gopts, out := testOptions(t)
	gopts.Config.Compression = "max"

	testRunInsert(t, gopts, "k", "v")

	// the compressed file is detected when loading, whatever the mode
	gopts.Config.Compression = "off"
	if v := testRunGet(t, gopts, out, "k"); v != "v" {
		t.Fatalf("get k = %q, want v", v)
	}

	gopts.Config.Compression = "fast"
	if err := runGet(context.TODO(), gopts, "k"); err == nil {
		t.Fatal("invalid compression mode accepted")
	}
}

func writeCSV(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImport(t *testing.T) {
	gopts, out := testOptions(t)
	dir := t.TempDir()

	first := writeCSV(t, dir, "first.csv", "key,value\na,1\nb,2\n")
	second := writeCSV(t, dir, "second.csv", "key,value\nb,3\nc,\"x, y\"\n")

	err := runImport(context.TODO(), ImportOptions{ReadConcurrency: 2}, gopts, []string{first, second})
	if err != nil {
		t.Fatal(err)
	}

	for key, want := range map[string]string{"a": "1", "b": "3", "c": "x, y"} {
		if v := testRunGet(t, gopts, out, key); v != want {
			t.Errorf("get %q = %q, want %q", key, v, want)
		}
	}
}

func TestImportMalformed(t *testing.T) {
	gopts, _ := testOptions(t)
	dir := t.TempDir()

	good := writeCSV(t, dir, "good.csv", "key,value\na,1\n")
	bad := writeCSV(t, dir, "bad.csv", "key,value\nb,2\nc\n")

	err := runImport(context.TODO(), ImportOptions{}, gopts, []string{good, bad})

	var perr *repository.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("import returned %v, want a ParseError", err)
	}
	if perr.Line != 3 {
		t.Errorf("error reported for line %d, want 3", perr.Line)
	}

	if _, err := os.Stat(gopts.Config.File); !os.IsNotExist(err) {
		t.Fatalf("failed import wrote the table: %v", err)
	}
}

func TestLockedTable(t *testing.T) {
	gopts, _ := testOptions(t)

	held, err := open(context.TODO(), gopts)
	if err != nil {
		t.Fatal(err)
	}

	err = runInsert(context.TODO(), gopts, "a", "1")
	if !errors.Is(err, local.ErrLocked) {
		t.Fatalf("insert on locked table returned %v, want ErrLocked", err)
	}

	held.Close()

	gopts.Config.LockTimeout = time.Second
	testRunInsert(t, gopts, "a", "1")
}

func TestConfigOutput(t *testing.T) {
	gopts, out := testOptions(t)

	if err := runConfig(context.TODO(), ConfigOptions{}, gopts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "capacity: 13") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}

	path := filepath.Join(t.TempDir(), "dope.yaml")
	if err := runConfig(context.TODO(), ConfigOptions{Output: path}, gopts); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(nil, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.File != gopts.Config.File || cfg.Capacity != gopts.Config.Capacity {
		t.Fatalf("config read back as %+v, want %+v", cfg, gopts.Config)
	}
}
