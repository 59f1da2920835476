// Package cli provides the fastpool command line interface, built on
// Cobra, mirroring the teacher's internal/cli/cli.go command layout (a root
// command with a persistent --config flag, plus run/submit/status
// subcommands) but driven by a pkg/pool.Pool instead of a Raft-backed job
// queue controller.
package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlvaroMS25/fast-pool/internal/config"
	"github.com/AlvaroMS25/fast-pool/internal/logging"
	"github.com/AlvaroMS25/fast-pool/internal/metrics"
	"github.com/AlvaroMS25/fast-pool/internal/task"
	"github.com/AlvaroMS25/fast-pool/pkg/pool"
)

var (
	configFile string

	// globalHandle is set by `run` so `status` can report live counters when
	// invoked from the same process; like the teacher's globalCtrl, it has
	// no visibility across separate CLI invocations.
	globalHandle *pool.Handle
)

// BuildCLI assembles the root fastpool command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fastpool",
		Short: "fastpool: a FIFO worker pool for sync, async, and periodic tasks",
		Long: `fastpool runs one-shot closures, poll-driven asynchronous state
machines, and periodic fallible closures over a single shared FIFO queue,
with structured logging, Prometheus metrics, and YAML configuration.`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildSubmitCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a pool, run the demo workload, and serve metrics until signaled",
		Long:  "Build a pool from the config file, spawn a sync/async/periodic demo workload, serve /metrics if enabled, then wait for SIGINT/SIGTERM and shut down cleanly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem()
		},
	}
	return cmd
}

func runSystem() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting fastpool", zap.Int("threads", cfg.Worker.Threads))

	b := pool.NewBuilder().WithThreads(cfg.Worker.Threads).WithLogger(logger)
	if cfg.Worker.StackSize > 0 {
		b = b.WithStackSize(cfg.Worker.StackSize)
	}
	if cfg.Worker.Name != "" {
		b = b.WithName(cfg.Worker.Name)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		b = b.WithMetrics(collector)
	}

	p, err := b.Build()
	if err != nil {
		return fmt.Errorf("failed to build pool: %w", err)
	}
	h := p.Handle()
	globalHandle = &h
	pool.SetCurrent(h)
	defer pool.ClearCurrent()

	runDemoWorkload(h, cfg, logger)

	if collector != nil {
		go collectStatsLoop(h, collector)
		go func() {
			logger.Info("starting metrics server", zap.Int("port", cfg.Metrics.Port))
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("fastpool started; waiting for shutdown signal")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("received shutdown signal, stopping gracefully")
	h.Shutdown()
	logger.Info("fastpool stopped")
	return nil
}

// runDemoWorkload spawns one each of the three task kinds the pool
// supports, exercising the sync/async/periodic paths the way the teacher's
// runControllerNode exercised its WAL/snapshot/dispatch paths at startup.
func runDemoWorkload(h pool.Handle, cfg *config.Config, logger *zap.Logger) {
	jh := pool.Spawn(h, func() string { return "hello from fastpool" })
	go func() {
		v, err := jh.Wait()
		if err != nil {
			logger.Warn("demo sync task failed", zap.Error(err))
			return
		}
		logger.Info("demo sync task completed", zap.String("value", v))
	}()

	ajh := pool.SpawnAsync[string](h, task.FutureFunc[string](func() string { return "hello from an async task" }))
	go func() {
		v, err := ajh.Wait()
		if err != nil {
			logger.Warn("demo async task failed", zap.Error(err))
			return
		}
		logger.Info("demo async task completed", zap.String("value", v))
	}()

	h.Periodic(func() error {
		logger.Debug("demo periodic tick")
		return nil
	}, cfg.Demo.PeriodicInterval, 0)
}

func collectStatsLoop(h pool.Handle, collector *metrics.Collector) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s := h.Stats()
		collector.UpdateQueueStats(int(s.Pending), int(s.InFlight))
	}
}

// submitJob is one entry of a submit file: a trivial, JSON-describable unit
// of work (an optional artificial delay, then a message echoed back),
// standing in for the teacher's job-with-payload JSON format.
type submitJob struct {
	Name    string `json:"name"`
	DelayMs int64  `json:"delay_ms"`
	Message string `json:"message"`
}

func buildSubmitCommand() *cobra.Command {
	var jobFile string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit echo/delay jobs from a JSON file to a freshly built local pool",
		Long:  "Read job definitions from a JSON file, spawn one closure per job against a freshly built local pool, wait for all of them, and report how many succeeded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobFile == "" {
				return fmt.Errorf("job file is required (use --file or -f)")
			}
			return submitJobs(jobFile)
		},
	}

	cmd.Flags().StringVarP(&jobFile, "file", "f", "", "JSON file containing job definitions")
	cmd.MarkFlagRequired("file")

	return cmd
}

func submitJobs(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read job file: %w", err)
	}

	var jobs []submitJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return fmt.Errorf("failed to parse job file: %w", err)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		cfg = config.Default()
	}

	p, err := pool.NewBuilder().WithThreads(cfg.Worker.Threads).Build()
	if err != nil {
		return fmt.Errorf("failed to build pool: %w", err)
	}
	h := p.Handle()
	defer h.Shutdown()

	handles := make([]*pool.JoinHandle[string], len(jobs))
	for i, j := range jobs {
		j := j
		handles[i] = pool.Spawn(h, func() string {
			if j.DelayMs > 0 {
				time.Sleep(time.Duration(j.DelayMs) * time.Millisecond)
			}
			return j.Message
		})
	}

	var succeeded atomic.Int64
	for i, jh := range handles {
		if _, err := jh.Wait(); err != nil {
			fmt.Printf("job %q failed: %v\n", jobs[i].Name, err)
			continue
		}
		succeeded.Add(1)
	}

	fmt.Printf("submitted %d jobs, %d succeeded\n", len(jobs), succeeded.Load())
	return nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pool status and configuration",
		Long:  "Display the active config file, worker count, and (when run in the same process as `run`) live task counters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("fastpool status")
	fmt.Printf("  config file:   %s\n", configFile)
	fmt.Printf("  worker count:  %d\n", cfg.Worker.Threads)
	fmt.Printf("  log level:     %s\n", cfg.Log.Level)

	if globalHandle != nil {
		s := globalHandle.Stats()
		fmt.Println("  task counters:")
		fmt.Printf("    scheduled:   %d\n", s.Scheduled)
		fmt.Printf("    dispatched:  %d\n", s.Dispatched)
		fmt.Printf("    in flight:   %d\n", s.InFlight)
		fmt.Printf("    pending:     %d\n", s.Pending)
	} else {
		fmt.Println("  task counters: pool not running in this process (run 'fastpool run' to start)")
	}

	if cfg.Metrics.Enabled {
		fmt.Printf("  metrics:       enabled on http://localhost:%d/metrics\n", cfg.Metrics.Port)
	} else {
		fmt.Println("  metrics:       disabled")
	}

	return nil
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
