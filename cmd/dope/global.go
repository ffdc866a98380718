package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/skyline93/dope/internal/backend/local"
	"github.com/skyline93/dope/internal/config"
	"github.com/skyline93/dope/internal/repository"
)

// GlobalOptions hold all global options for dope.
type GlobalOptions struct {
	Config     config.Config
	ConfigFile string

	stdout io.Writer
}

var globalOptions = GlobalOptions{
	Config: config.Config{LockTimeout: 10 * time.Second},
	stdout: os.Stdout,
}

// openTable is a table file opened for the duration of one command. The
// lock is held until Close is called.
type openTable struct {
	repo     *repository.Repository
	lock     *local.Lock
	password string

	*repository.Table
}

// open locks the table file named in gopts and loads its content. The key
// file is opened if the table is encrypted.
func open(ctx context.Context, gopts GlobalOptions) (*openTable, error) {
	cfg, err := local.ParseConfig(gopts.Config.File)
	if err != nil {
		return nil, err
	}
	cfg.LockTimeout = gopts.Config.LockTimeout

	be, err := local.Open(ctx, *cfg)
	if err != nil {
		return nil, err
	}

	var opts repository.Options
	if err := opts.Compression.Set(gopts.Config.Compression); err != nil {
		return nil, err
	}
	opts.Capacity = gopts.Config.Capacity

	repo, err := repository.New(be, opts)
	if err != nil {
		return nil, err
	}

	password, err := gopts.Config.Password()
	if err != nil {
		return nil, err
	}

	lock, err := be.Lock(ctx)
	if err != nil {
		return nil, err
	}

	t := &openTable{repo: repo, lock: lock, password: password}
	if err := t.load(ctx); err != nil {
		t.Close()
		return nil, err
	}

	return t, nil
}

func (t *openTable) load(ctx context.Context) error {
	encrypted, err := t.repo.KeyExists(ctx)
	if err != nil {
		return err
	}

	if encrypted {
		if t.password == "" {
			return errors.Errorf("table %v is encrypted, set $%v or --password-file", t.repo.Backend().Location(), config.PasswordEnv)
		}
		if err := t.repo.SearchKey(ctx, t.password); err != nil {
			return err
		}
		log.Debugf("opened key %v", t.repo.KeyID().Str())
	}

	tab, err := t.repo.LoadTable(ctx)
	if err != nil {
		return err
	}
	t.Table = tab
	return nil
}

// Save writes the table back to its file. A table that is saved with a
// password for the first time gets a new key file.
func (t *openTable) Save(ctx context.Context) error {
	if t.password != "" && t.repo.Key() == nil {
		log.Infof("encrypting table %v", t.repo.Backend().Location())
		_, err := t.repo.Encrypt(ctx, t.password, t.Table)
		return err
	}

	_, err := t.repo.SaveTable(ctx, t.Table)
	return err
}

// Close releases the lock on the table file.
func (t *openTable) Close() {
	if err := t.lock.Unlock(); err != nil {
		log.Warnf("unable to release lock: %v", err)
	}
}
