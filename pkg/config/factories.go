package config

import (
	"fmt"
	"os"

	"github.com/marmos91/memvfs/internal/logger"
	"github.com/marmos91/memvfs/pkg/vfs"
	"github.com/mitchellh/mapstructure"
)

// CreateStore creates a store based on configuration.
//
// The factory uses the Type field to pick the implementation, then
// decodes the type-specific option map into the implementation's own
// configuration struct.
//
// Supported types:
//   - "memory": the in-memory engine (the only backend; persistence is
//     out of scope for this project)
func CreateStore(cfg *StoreConfig) (*vfs.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryStore(cfg.Memory)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// createMemoryStore creates the in-memory store from its option map.
func createMemoryStore(options map[string]any) (*vfs.Store, error) {
	type MemoryStoreConfig struct {
		MaxLinkDepth       int `mapstructure:"max_link_depth"`
		TransferBufferSize int `mapstructure:"transfer_buffer_size"`
	}

	var storeCfg MemoryStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory store config: %w", err)
	}

	if storeCfg.MaxLinkDepth < 0 {
		return nil, fmt.Errorf("memory store: max_link_depth must be positive")
	}
	if storeCfg.TransferBufferSize < 0 {
		return nil, fmt.Errorf("memory store: transfer_buffer_size must be positive")
	}

	return vfs.NewWithConfig(vfs.StoreConfig{
		MaxLinkDepth:       storeCfg.MaxLinkDepth,
		TransferBufferSize: storeCfg.TransferBufferSize,
	}), nil
}

// SetupLogging applies the logging configuration to the process logger.
//
// The returned cleanup function closes the log file when Output named
// one; it is a no-op for stdout/stderr.
func SetupLogging(cfg *LoggingConfig) (func(), error) {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)

	switch cfg.Output {
	case "stdout", "":
		logger.SetOutput(os.Stdout)
		return func() {}, nil
	case "stderr":
		logger.SetOutput(os.Stderr)
		return func() {}, nil
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(file)
		return func() { _ = file.Close() }, nil
	}
}
