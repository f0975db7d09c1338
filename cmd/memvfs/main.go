package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/marmos91/memvfs/internal/logger"
	"github.com/marmos91/memvfs/pkg/config"
	"github.com/marmos91/memvfs/pkg/vfs"
)

// memvfs is a small demonstration driver for the in-memory filesystem
// engine. The engine is meant to be embedded behind a host filesystem
// adapter; this binary just builds a store from configuration and runs a
// scripted session against it so the wiring can be exercised end to end.
func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memvfs: %v\n", err)
		os.Exit(1)
	}

	cleanup, err := config.SetupLogging(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memvfs: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	store, err := config.CreateStore(&cfg.Store)
	if err != nil {
		logger.Error("failed to create store: %v", err)
		os.Exit(1)
	}

	if err := run(store); err != nil {
		logger.Error("demo session failed: %v", err)
		os.Exit(1)
	}
}

// run drives a scripted create/write/read/list/move session.
func run(store *vfs.Store) error {
	logger.Info("starting demo session")

	if err := store.CreateDirectory("/projects"); err != nil {
		return err
	}
	if err := store.WriteFile("/projects/readme.txt", []byte("An in-memory filesystem engine.\n"), vfs.WriteFileOptions{}); err != nil {
		return err
	}
	if err := store.CreateSymlink("/readme", "/projects/readme.txt"); err != nil {
		return err
	}

	data, err := store.ReadFile("/readme")
	if err != nil {
		return err
	}
	logger.Info("read %d bytes through symlink", len(data))

	listing, err := store.List("/projects")
	if err != nil {
		return err
	}
	for {
		entry, ok := listing.Next()
		if !ok {
			break
		}
		attrs, err := store.Stat(entry, false)
		if err != nil {
			return err
		}
		logger.Info("  %-30s %8d bytes  %s", entry, attrs.Size, attrs.Kind)
	}

	if err := store.CreateDirectory("/archive"); err != nil {
		return err
	}
	if err := store.Move("/projects", "/archive/projects", vfs.MoveOptions{}); err != nil {
		return err
	}
	logger.Info("moved /projects to /archive/projects")

	data, err = store.ReadFile("/archive/projects/readme.txt")
	if err != nil {
		return err
	}
	logger.Info("content still intact after move (%d bytes)", len(data))

	store.Clear()
	logger.Info("store reset, demo session complete")
	return nil
}
