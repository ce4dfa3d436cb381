package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"expandd/internal/config"
	"expandd/internal/engine"
	"expandd/internal/health"
	"expandd/internal/hook"
	"expandd/internal/inject"
	"expandd/internal/ipc"
	"expandd/internal/journal"
	"expandd/internal/logging"
	"expandd/internal/metrics"
	"expandd/internal/resolver"
	"expandd/internal/snippets"
	"expandd/internal/trigger"
)

// daemon bundles the running pieces so IPC handlers and reload
// callbacks can reach them.
type daemon struct {
	cfg    *config.Config
	log    *logging.Logger
	store  *snippets.Store
	engine *engine.Engine
	jrnl   *journal.Journal

	mu        sync.Mutex
	loaded    []trigger.Snippet
	problems  []string
	ambiguous int
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	if err := runDaemon(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cfgPath string) error {
	if cfgPath == "" {
		cfgPath = config.FindConfigFile()
	}
	cfg, created, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logging.SetDefault(log)
	if created {
		log.Info("wrote default configuration", "path", cfgPath)
	}

	crash := logging.DefaultCrashHandler()
	crash.SetVersion(Version)
	defer crash.RecoverGoroutine()

	met := metrics.GetMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Journal
	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(cfg.Journal.Path, time.Duration(cfg.Journal.BusyTimeoutMs)*time.Millisecond)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jrnl.Close()

		retention := time.Duration(cfg.Journal.RetentionDays) * 24 * time.Hour
		if removed, err := jrnl.Purge(ctx, retention); err != nil {
			log.Warn("journal purge failed", "error", err)
		} else if removed > 0 {
			log.Info("journal purged", "removed", removed)
		}
	}

	// Expansion pipeline
	policy := injectionPolicy(cfg)
	hk := hook.New(hook.Options{QueueSize: cfg.Engine.QueueSize})
	if ok, reason := hk.Available(); !ok {
		return fmt.Errorf("keyboard capture unavailable: %s", reason)
	}
	injector := inject.New(policy)
	if ok, reason := injector.Available(); !ok {
		return fmt.Errorf("input injection unavailable: %s", reason)
	}

	res := resolver.New(nil, resolver.Env{Clipboard: inject.NewPlatformClipboard()})

	engCfg := engine.Config{
		Hook:         hk,
		Injector:     injector,
		Resolver:     res,
		Metrics:      met,
		Logger:       log,
		ApplyTimeout: time.Duration(cfg.Engine.ApplyTimeoutMs) * time.Millisecond,
	}
	if jrnl != nil {
		engCfg.Journal = jrnl
	}
	eng, err := engine.New(engCfg)
	if err != nil {
		return err
	}
	eng.SetEnabled(cfg.Engine.Enabled)

	d := &daemon{
		cfg:    cfg,
		log:    log,
		store:  snippets.New(cfg.Snippets.Paths, cfg.Snippets.IncludeDefaults, log),
		engine: eng,
		jrnl:   jrnl,
	}

	if _, err := d.reload(ctx); err != nil {
		return err
	}

	// Config hot reload. Live settings (the enable toggle, matching
	// options) re-apply on edit; anything bound to an already-open OS
	// resource (journal path, socket, metrics listener, hook queue)
	// waits for a restart.
	ldr := config.NewLoader(cfgPath)
	ldr.OnChange(func(next *config.Config) { d.applyConfig(ctx, next) })
	if err := ldr.Watch(); err != nil {
		log.Warn("config watcher unavailable", "error", err)
	} else {
		defer ldr.Close()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case werr := <-ldr.Errors():
					log.Warn("config change rejected", "error", werr)
				}
			}
		}()
	}

	// Snippet library watcher
	if cfg.Snippets.Watch {
		watcher, err := snippets.NewWatcher(d.store, log)
		if err != nil {
			log.Warn("snippet watcher unavailable", "error", err)
		} else {
			watcher.Start(ctx, func() {
				if _, err := d.reload(ctx); err != nil {
					log.Error("snippet reload failed", "error", err)
				}
			})
			defer watcher.Close()
		}
	}

	// IPC server
	var ipcServer *ipc.Server
	if cfg.IPC.Enabled {
		handler := ipc.NewDaemonHandler(ipc.DaemonHandlerConfig{
			Version:  Version,
			Engine:   eng,
			Journal:  journalReader(jrnl),
			Reload:   d.reload,
			Snippets: d.snippets,
			Problems: d.loadProblems,
			Shutdown: cancel,
		})
		ipcServer = ipc.NewServer(ipc.DefaultServerConfig(cfg.IPC.SocketPath), handler, log)
		if err := ipcServer.Start(); err != nil {
			return fmt.Errorf("start ipc server: %w", err)
		}
		defer ipcServer.Stop()
	}

	// Health checks
	checker := health.NewChecker()
	checker.RegisterFunc("hook", true, health.AvailabilityCheck(hk.Available))
	checker.RegisterFunc("injector", true, health.AvailabilityCheck(injector.Available))
	checker.RegisterFunc("snippets", false, health.SnippetCheck(d.loadProblems))
	checker.RegisterFunc("queue", false, health.DropCheck(hk.Dropped))
	if jrnl != nil {
		checker.RegisterFunc("journal", false, health.DatabaseCheck(jrnl.Ping))
	}
	checker.SetReady(true)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics.ListenAddr, checker, log)
	}
	go uptimeLoop(ctx, met)

	// The pipeline blocks until shutdown.
	log.Info("expandd started", "version", Version, "config", cfgPath)
	err = eng.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("expandd stopped")
	return nil
}

// reload loads snippet libraries and publishes the new trigger set.
func (d *daemon) reload(ctx context.Context) (*ipc.ReloadResponse, error) {
	d.mu.Lock()
	opts := triggerOptions(d.cfg)
	d.mu.Unlock()

	loaded, problems := d.store.Load()
	warnings := d.engine.Publish(loaded, opts)

	resp := &ipc.ReloadResponse{
		Snippets:  d.engine.Snapshot().Len(),
		Ambiguous: len(warnings),
	}
	for _, p := range problems {
		resp.Problems = append(resp.Problems, p.String())
	}

	d.mu.Lock()
	d.loaded = loaded
	d.problems = resp.Problems
	d.ambiguous = resp.Ambiguous
	d.mu.Unlock()

	return resp, nil
}

// applyConfig absorbs an edited configuration file: the enable toggle
// flips and the trigger set is republished under the new matching
// options.
func (d *daemon) applyConfig(ctx context.Context, cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.engine.SetEnabled(cfg.Engine.Enabled)
	if _, err := d.reload(ctx); err != nil {
		d.log.Error("snippet reload failed", "error", err)
		return
	}
	d.log.Info("configuration reloaded",
		"enabled", cfg.Engine.Enabled,
		"case_sensitive", cfg.Matching.CaseSensitive)
}

func (d *daemon) snippets() []trigger.Snippet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

func (d *daemon) loadProblems() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.problems
}

// journalReader adapts a possibly-nil journal; a typed nil in the
// interface would dodge the handler's nil check.
func journalReader(j *journal.Journal) ipc.JournalReader {
	if j == nil {
		return nil
	}
	return j
}

func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	format := logging.FormatText
	if cfg.Logging.Format == "json" {
		format = logging.FormatJSON
	}

	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    int64(cfg.Logging.MaxSizeMB),
		MaxAge:     cfg.Logging.MaxAgeDays,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
		Component:  "expandd",
	})
}

func triggerOptions(cfg *config.Config) trigger.Options {
	return trigger.Options{
		CaseSensitive:    cfg.Matching.CaseSensitive,
		RequireDelimiter: cfg.Matching.RequireDelimiter,
		NormalizeSymbols: cfg.Matching.NormalizeSymbols,
	}
}

func injectionPolicy(cfg *config.Config) inject.Policy {
	return inject.Policy{
		MaxDirectRunes: cfg.Injection.MaxDirectRunes,
		PasteNonBMP:    cfg.Injection.PasteNonBMP,
		InterKeyDelay:  time.Duration(cfg.Injection.InterKeyDelayMs) * time.Millisecond,
		PasteSettle:    time.Duration(cfg.Injection.PasteSettleMs) * time.Millisecond,
	}
}

func startMetricsServer(ctx context.Context, addr string, checker *health.Checker, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default().HTTPHandler())
	mux.Handle("/livez", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
	mux.Handle("/healthz", checker.HealthHandler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func uptimeLoop(ctx context.Context, met *metrics.ExpanddMetrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			met.UpdateUptime()
		}
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Parse(args)

	path := *cfgPath
	if path == "" {
		path = config.FindConfigFile()
	}

	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration: INVALID\n  %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration: OK")

	hk := hook.New(hook.Options{QueueSize: cfg.Engine.QueueSize})
	if ok, reason := hk.Available(); ok {
		fmt.Println("Keyboard capture: OK")
	} else {
		fmt.Printf("Keyboard capture: UNAVAILABLE (%s)\n", reason)
	}

	injector := inject.New(injectionPolicy(cfg))
	if ok, reason := injector.Available(); ok {
		fmt.Println("Input injection: OK")
	} else {
		fmt.Printf("Input injection: UNAVAILABLE (%s)\n", reason)
	}

	store := snippets.New(cfg.Snippets.Paths, cfg.Snippets.IncludeDefaults, nil)
	loaded, problems := store.Load()
	fmt.Printf("Snippets: %d loaded\n", len(loaded))
	for _, p := range problems {
		fmt.Printf("  Problem: %s\n", p)
	}
}
