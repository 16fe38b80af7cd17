package main

import (
	"fmt"
	"log"
	"os"

	"relay/pkg/mailbox"
	"relay/pkg/registry"
	"relay/pkg/statefile"
)

// app bundles the pieces most subcommands need.
type app struct {
	paths  *Paths
	cfg    FileConfig
	reg    *registry.Registry
	logger *log.Logger
}

// loadApp resolves paths, tuning config, and the context registry.
func loadApp() (*app, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, err
	}
	cfg, err := loadFileConfig(paths.ConfigPath)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(paths.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	debugf("root=%s store=%s contexts=%d", paths.Root, cfg.Store, len(reg.IDs()))
	return &app{
		paths:  paths,
		cfg:    cfg,
		reg:    reg,
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}, nil
}

// openStore opens the configured message store. The caller must Close it.
func (a *app) openStore() (mailbox.Store, error) {
	if a.cfg.Store == "sqlite" {
		store, err := mailbox.OpenSQLiteStore(a.paths.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open message store: %w", err)
		}
		return store, nil
	}
	store, err := mailbox.NewFileStore(a.paths.MessagesPath, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}
	return store, nil
}

// openMailbox opens the store and wraps it with the registry's rules.
func (a *app) openMailbox() (*mailbox.Mailbox, mailbox.Store, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	return mailbox.New(a.reg, store), store, nil
}

func newStatusStore(a *app) (*statefile.Store, error) {
	return statefile.NewStore(a.paths.StatusPath, a.logger)
}
