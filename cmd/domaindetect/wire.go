package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aretw0/domaindetect"
	"github.com/aretw0/domaindetect/internal/config"
	"github.com/aretw0/domaindetect/internal/hits"
	"github.com/aretw0/domaindetect/pkg/adapters/file"
	"github.com/aretw0/domaindetect/pkg/adapters/memory"
	"github.com/aretw0/domaindetect/pkg/adapters/process"
	"github.com/aretw0/domaindetect/pkg/adapters/redis"
	"github.com/aretw0/domaindetect/pkg/adapters/sqlite"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
)

// backend is an opened hit cache and, for shared backends, its locker.
type backend struct {
	cache  ports.HitCache
	locker ports.DistributedLocker
}

// buildDetector wires the adapters selected by cfg into a Detector.
func buildDetector(cfg config.File, logger *slog.Logger, hooks domain.LifecycleHooks) (*domaindetect.Detector, error) {
	if cfg.Library.Path == "" {
		return nil, fmt.Errorf("no domain library: set library.path or pass --library")
	}
	loader, err := domaindetect.OpenLibrary(cfg.Library.Path, cfg.Library.Version)
	if err != nil {
		return nil, err
	}

	aligner, err := buildAligner(cfg.Aligner, logger)
	if err != nil {
		return nil, err
	}

	opts := []domaindetect.Option{
		domaindetect.WithConfig(cfg.Resolution),
		domaindetect.WithLoader(loader),
		domaindetect.WithAligner(aligner),
		domaindetect.WithLogger(logger),
		domaindetect.WithLifecycleHooks(hooks),
		domaindetect.WithConcurrency(cfg.Concurrency),
	}

	b, err := openCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		opts = append(opts, domaindetect.WithHitCache(b.cache), domaindetect.WithLocker(b.locker))
	}

	return domaindetect.New(cfg.Library.Path, opts...)
}

// buildAligner returns the configured tool aligner or a replay of a hits file.
func buildAligner(cfg config.AlignerSettings, logger *slog.Logger) (ports.Aligner, error) {
	switch {
	case cfg.Tool != "":
		if cfg.ToolsFile == "" {
			cfg.ToolsFile = "tools.yaml"
		}
		tools, err := process.LoadTools(cfg.ToolsFile)
		if err != nil {
			return nil, err
		}
		tool, ok := tools[cfg.Tool]
		if !ok {
			return nil, fmt.Errorf("tool %q is not defined in %s", cfg.Tool, cfg.ToolsFile)
		}
		return process.NewAligner(tool,
			process.WithBaseDir(filepath.Dir(cfg.ToolsFile)),
			process.WithLogger(logger),
		)
	case cfg.HitsFile != "":
		format := hits.DetectFormat(cfg.HitsFile)
		if cfg.HitsFormat != "" {
			var err error
			if format, err = hits.ParseFormat(cfg.HitsFormat); err != nil {
				return nil, err
			}
		}
		return hitsFileAligner(cfg.HitsFile, format, cfg.JSONPath), nil
	default:
		return nil, fmt.Errorf("no aligner: set aligner.hits_file or aligner.tool")
	}
}

// hitsFileAligner reads the hits file on the first search, once the library is known,
// so tabular rows without a coverage column can use canonical domain lengths.
func hitsFileAligner(path string, format hits.Format, jsonPath string) ports.Aligner {
	var (
		once    sync.Once
		replay  *memory.Aligner
		readErr error
	)
	return ports.AlignerFunc(func(ctx context.Context, chain domain.Chain, lib *domain.Library) ([]domain.CandidateHit, error) {
		once.Do(func() {
			found, err := file.ReadHits(path, format, hits.Options{JSONPath: jsonPath, Library: lib})
			if err != nil {
				readErr = err
				return
			}
			replay = memory.NewAlignerFromHits(found)
		})
		if readErr != nil {
			return nil, readErr
		}
		return replay.Search(ctx, chain, lib)
	})
}

// openCache opens the selected hit cache backend. The none backend returns a zero backend.
func openCache(cfg config.CacheSettings) (backend, error) {
	switch cfg.Backend {
	case config.CacheMemory:
		return backend{cache: memory.NewCache()}, nil
	case config.CacheFile:
		return backend{cache: file.NewCache(cfg.Path)}, nil
	case config.CacheSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(".domaindetect", "hits.db")
		}
		c, err := sqlite.Open(path)
		if err != nil {
			return backend{}, err
		}
		return backend{cache: c}, nil
	case config.CacheRedis:
		c := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix+"hits:"),
			redis.WithTTL(cfg.Redis.TTL),
		)
		return backend{
			cache:  c,
			locker: redis.NewLocker(c.Client(), cfg.Redis.Prefix),
		}, nil
	default:
		return backend{}, nil
	}
}
