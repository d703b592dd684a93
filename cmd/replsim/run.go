package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/emissary/timing/cache"
	"github.com/sarchlab/emissary/timing/cache/evictlog"
)

// accessSize is the width of every trace access in bytes.
const accessSize = 8

type runOptions struct {
	policy     string
	configPath string
	level      string
	evictDB    string
	logLevel   string
	cpuProfile string
	memProfile string
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run TRACE",
		Short: "Replay a trace and print cache statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.policy, "policy", envOr(envPolicy, ""),
		"replacement policy (overrides the config file)")
	flags.StringVar(&opts.configPath, "config", envOr(envConfig, ""),
		"path to a cache configuration JSON file")
	flags.StringVar(&opts.level, "level", "l1d",
		"default cache configuration: l1i, l1d, l2 or l2-core")
	flags.StringVar(&opts.evictDB, "evict-db", "",
		"record every eviction in this SQLite database")
	flags.StringVar(&opts.logLevel, "log-level", envOr(envLogLevel, "info"),
		"log level")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "", "write cpu profile to file")
	flags.StringVar(&opts.memProfile, "memprofile", "", "write memory profile to file")

	return cmd
}

func runTrace(cmd *cobra.Command, tracePath string, opts runOptions) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}

	config, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	f, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	records, err := ParseTrace(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	runID := xid.New().String()
	log := logger.WithField("run", runID)

	cacheOpts := []cache.Option{cache.WithLogger(log)}
	var evictions *evictlog.Log
	if opts.evictDB != "" {
		evictions, err = evictlog.Open(opts.evictDB, runID)
		if err != nil {
			return err
		}
		log.WithField("db", opts.evictDB).
			Infof("recording evictions as run %s", evictions.RunID())
		atexit.Register(func() {
			if err := evictions.Close(); err != nil {
				log.WithError(err).Error("failed to close eviction log")
			}
		})
		cacheOpts = append(cacheOpts, cache.WithEvictionRecorder(evictions))
	}

	c, err := cache.New(config, cache.NewSparseMemory(), cacheOpts...)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"trace":    tracePath,
		"policy":   config.Policy,
		"sets":     config.NumSets(),
		"ways":     config.Associativity,
		"cpus":     config.NumCPUs,
		"accesses": len(records),
	}).Info("starting replay")

	stopProfile, err := startCPUProfile(opts.cpuProfile)
	if err != nil {
		return err
	}
	err = replay(c, records)
	stopProfile()
	if err != nil {
		return err
	}

	if err := writeMemProfile(opts.memProfile); err != nil {
		return err
	}

	if evictions != nil {
		if err := evictions.Close(); err != nil {
			return err
		}
	}

	report := newReport(runID, config, c.Stats(), c.SetMisses())
	report.Print(cmd.OutOrStdout())

	return nil
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logger, nil
}

// resolveConfig builds the cache configuration from the level default, the
// optional config file and the policy flag, in that order.
func resolveConfig(opts runOptions) (cache.Config, error) {
	var config cache.Config
	switch strings.ToLower(opts.level) {
	case "l1i":
		config = cache.DefaultL1IConfig()
	case "l1d":
		config = cache.DefaultL1DConfig()
	case "l2":
		config = cache.DefaultL2Config()
	case "l2-core":
		config = cache.DefaultL2PerCoreConfig()
	default:
		return cache.Config{}, fmt.Errorf("unknown cache level %q", opts.level)
	}

	if opts.configPath != "" {
		loaded, err := cache.LoadConfig(opts.configPath, config)
		if err != nil {
			return cache.Config{}, err
		}
		config = loaded
	}

	if opts.policy != "" {
		config.Policy = opts.policy
	}

	if err := config.Validate(); err != nil {
		return cache.Config{}, err
	}

	return config, nil
}

// replay sends every record of the trace to the cache.
func replay(c *cache.Cache, records []TraceRecord) error {
	for _, r := range records {
		var err error
		if r.Write {
			_, err = c.WriteFrom(r.CPU, r.Addr, accessSize, r.Addr)
		} else {
			_, err = c.ReadFrom(r.CPU, r.Addr, accessSize)
		}
		if err != nil {
			return fmt.Errorf("trace line %d: %w", r.Line, err)
		}
	}
	return nil
}

func startCPUProfile(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create cpu profile: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start cpu profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

func writeMemProfile(path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}

	return nil
}
