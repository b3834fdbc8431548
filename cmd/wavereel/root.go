// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ik5/wavereel/audio"
	"github.com/ik5/wavereel/cache"
	"github.com/ik5/wavereel/config"
	"github.com/ik5/wavereel/formats"
	"github.com/ik5/wavereel/internal/build"
	"github.com/ik5/wavereel/logger"
)

// app carries what every subcommand needs once the configuration is loaded.
type app struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
	reg *audio.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	info := build.Get()

	root := &cobra.Command{
		Use:           info.Name,
		Short:         "Render narration audio into waveform videos",
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Configuration file (default: wavereel.yaml or config.yaml in the working directory)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Log at debug level")

	root.AddCommand(
		newRenderCmd(a),
		newFrameCmd(a),
		newCacheCmd(a),
		newVersionCmd(),
	)

	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.reg = formats.DefaultRegistry()

	return nil
}

// openCaches builds the cache provider selected by cache.backend. The
// returned function releases backend connections.
func openCaches(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Provider, func() error, error) {
	schema := cfg.Waveform.SchemaVersion
	nop := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		return cache.Static(cache.NewMemoryCache(schema, log)), nop, nil

	case config.CacheRedis:
		client, err := cache.NewRedisClient(ctx, cfg.RedisOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return cache.Static(cache.NewRedisCache(client, cfg.Cache.RedisTTL, schema, log)), client.Close, nil
	}

	if cfg.Cache.Dir == "" {
		return cache.BesideSource(schema, log), nop, nil
	}

	return cache.Static(cache.NewFileCache(cfg.Cache.Dir, schema, log)), nop, nil
}
