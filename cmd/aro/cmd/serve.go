package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/arolang/aro/internal/action"
	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
	"github.com/arolang/aro/internal/config"
	"github.com/arolang/aro/internal/daemon"
	"github.com/arolang/aro/internal/event"
	"github.com/arolang/aro/internal/eventstore"
	"github.com/arolang/aro/internal/logging"
	"github.com/arolang/aro/internal/openapi"
	"github.com/arolang/aro/internal/output"
	"github.com/arolang/aro/internal/watcher"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OpenAPI-backed HTTP runtime",
		Long: `serve loads an OpenAPI document, compiles it into a route table, and
runs an HTTP server in front of the action registry and event bus. A
control-plane Unix socket answers status/reload/stop requests from
'aro serve stop' and 'aro serve status' without interrupting in-flight
HTTP requests.

Commands:
  start   Start the serving process (runs in background by default)
  stop    Stop the running serving process
  status  Show serving process status
  reload  Ask a running process to recompile its route table`,
	}

	cmd.AddCommand(newServeStartCmd())
	cmd.AddCommand(newServeStopCmd())
	cmd.AddCommand(newServeStatusCmd())
	cmd.AddCommand(newServeReloadCmd())

	return cmd
}

func newServeStartCmd() *cobra.Command {
	var (
		foreground bool
		address    string
		openapiDoc string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the serving process",
		Long: `Start the HTTP runtime in the background by default. Use --foreground
to run in the current terminal, with logs streamed to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeStart(cmd.Context(), cmd, foreground, address, openapiDoc)
		},
	}

	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (don't daemonize)")
	cmd.Flags().StringVar(&address, "address", "", "HTTP bind address (overrides config)")
	cmd.Flags().StringVar(&openapiDoc, "openapi", "", "OpenAPI document path (overrides config)")

	return cmd
}

func newServeStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running serving process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeStop(cmd)
		},
	}
}

func newServeStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show serving process status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newServeReloadCmd() *cobra.Command {
	var openapiDoc string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask the serving process to recompile its route table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeReload(cmd.Context(), cmd, openapiDoc)
		},
	}

	cmd.Flags().StringVar(&openapiDoc, "openapi", "", "OpenAPI document path to reload from (defaults to whatever is already in effect)")
	return cmd
}

func runServeStart(ctx context.Context, cmd *cobra.Command, foreground bool, address, openapiDoc string) error {
	out := output.New(cmd.OutOrStdout())
	cfg, root, err := loadProjectConfig()
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Server.Address = address
	}
	if openapiDoc != "" {
		cfg.Paths.OpenAPIPath = openapiDoc
	}

	dcfg := daemon.DefaultConfig()
	dcfg.SocketPath = cfg.Server.SocketPath
	dcfg.PIDPath = cfg.Server.PIDPath
	dcfg.LockPath = cfg.Server.LockPath

	client := daemon.NewClient(dcfg)
	if client.IsRunning() {
		out.Status("", "Serving process is already running")
		return nil
	}

	if foreground {
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.Logging.Level
		logCfg.WriteToStderr = true
		if logger, cleanup, err := logging.Setup(logCfg); err == nil {
			slog.SetDefault(logger)
			defer cleanup()
		}

		out.Status("", "Starting serve in foreground...")
		out.Status("", fmt.Sprintf("Address: %s", cfg.Server.Address))
		out.Status("", fmt.Sprintf("Socket:  %s", dcfg.SocketPath))
		out.Status("", fmt.Sprintf("OpenAPI: %s", cfg.Paths.OpenAPIPath))
		out.Status("", "Press Ctrl+C to stop")
		out.Newline()

		return runForeground(ctx, cfg, dcfg, root)
	}

	out.Status("", "Starting serve in background...")

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"serve", "start", "--foreground"}
	if address != "" {
		args = append(args, "--address", address)
	}
	if openapiDoc != "" {
		args = append(args, "--openapi", openapiDoc)
	}

	bgCmd := exec.Command(execPath, args...)
	bgCmd.Dir = root
	bgCmd.Stdout = nil
	bgCmd.Stderr = nil
	bgCmd.Stdin = nil
	bgCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := bgCmd.Start(); err != nil {
		return fmt.Errorf("failed to start serve process: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- bgCmd.Wait() }()

	for i := 0; i < 50; i++ {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("serve process exited unexpectedly: %w", err)
			}
			return fmt.Errorf("serve process exited unexpectedly with code 0")
		default:
		}

		time.Sleep(100 * time.Millisecond)
		if client.IsRunning() {
			out.Success(fmt.Sprintf("Serving (pid: %d)", bgCmd.Process.Pid))
			return nil
		}
	}

	return fmt.Errorf("serve process failed to start within timeout")
}

func runServeStop(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())
	cfg, _, err := loadProjectConfig()
	if err != nil {
		return err
	}
	dcfg := daemon.DefaultConfig()
	dcfg.SocketPath = cfg.Server.SocketPath
	dcfg.PIDPath = cfg.Server.PIDPath

	pidFile := daemon.NewPIDFile(dcfg.PIDPath)
	if !pidFile.IsRunning() {
		out.Status("", "Serving process is not running")
		return nil
	}

	pid, err := pidFile.Read()
	if err != nil {
		return fmt.Errorf("failed to read PID: %w", err)
	}

	if err := pidFile.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop serving process: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !pidFile.IsRunning() {
			out.Success(fmt.Sprintf("Stopped (was pid: %d)", pid))
			return nil
		}
	}

	out.Status("", "Not responding, sending SIGKILL...")
	if err := pidFile.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill serving process: %w", err)
	}
	out.Success("Killed")
	return nil
}

func runServeStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())
	cfg, _, err := loadProjectConfig()
	if err != nil {
		return err
	}
	dcfg := daemon.DefaultConfig()
	dcfg.SocketPath = cfg.Server.SocketPath

	client := daemon.NewClient(dcfg)
	if !client.IsRunning() {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(daemon.StatusResult{Running: false})
		}
		out.Status("", "Serving process is not running")
		out.Status("", "Run 'aro serve start' to start it")
		return nil
	}

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	out.Status("", "Serving process is running")
	out.Status("", fmt.Sprintf("  PID:              %d", status.PID))
	out.Status("", fmt.Sprintf("  Uptime:           %s", status.Uptime))
	out.Status("", fmt.Sprintf("  OpenAPI document: %s", status.OpenAPIPath))
	out.Status("", fmt.Sprintf("  Routes loaded:    %d", status.RoutesLoaded))
	out.Status("", fmt.Sprintf("  Actions loaded:   %d", status.ActionsLoaded))
	out.Status("", fmt.Sprintf("  Events processed: %d", status.EventsProcessed))
	return nil
}

func runServeReload(ctx context.Context, cmd *cobra.Command, openapiDoc string) error {
	out := output.New(cmd.OutOrStdout())
	cfg, _, err := loadProjectConfig()
	if err != nil {
		return err
	}
	dcfg := daemon.DefaultConfig()
	dcfg.SocketPath = cfg.Server.SocketPath

	client := daemon.NewClient(dcfg)
	if !client.IsRunning() {
		return fmt.Errorf("serving process is not running")
	}

	result, err := client.Reload(ctx, daemon.ReloadParams{OpenAPIPath: openapiDoc})
	if err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}

	out.Success(fmt.Sprintf("Reloaded: %d route(s)", result.RoutesLoaded))
	for _, w := range result.Warnings {
		out.Warning(w)
	}
	return nil
}

// runForeground wires the control plane, the HTTP runtime, and an
// optional spec-change watcher together and blocks until ctx is
// cancelled or a termination signal arrives.
func runForeground(ctx context.Context, cfg *config.Config, dcfg daemon.Config, root string) error {
	if err := dcfg.EnsureDir(); err != nil {
		return fmt.Errorf("prepare serve directories: %w", err)
	}

	lock := flock.New(cfg.Server.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire single-instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another serve process already holds %s", cfg.Server.LockPath)
	}
	defer lock.Unlock()

	pidFile := daemon.NewPIDFile(dcfg.PIDPath)
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	defer pidFile.Remove()

	rs := newRuntimeServer(cfg, root)
	if err := rs.loadOpenAPI(); err != nil {
		return fmt.Errorf("load openapi document: %w", err)
	}

	if cfg.Event.StoreEnabled {
		store, err := eventstore.Open(cfg.Event.StoreDriver, cfg.Event.StorePath)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer store.Close()
		rs.bus.Subscribe("*", store.Subscriber(func(err error) {
			slog.Error("event store append failed", slog.String("error", err.Error()))
		}))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	server, err := daemon.NewServer(dcfg.SocketPath)
	if err != nil {
		return fmt.Errorf("create control plane server: %w", err)
	}
	server.SetHandler(rs)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(ctx); err != nil {
			slog.Error("control plane stopped", slog.String("error", err.Error()))
		}
	}()

	if cfg.Server.WatchSpec {
		wg.Add(1)
		rs.bus.AddEventSource()
		go func() {
			defer wg.Done()
			defer rs.bus.RemoveEventSource()
			rs.watchSpec(ctx)
		}()
	}

	httpServer := &http.Server{Addr: cfg.Server.Address, Handler: rs}
	rs.mu.Lock()
	rs.httpServer = httpServer
	rs.mu.Unlock()

	wg.Add(1)
	rs.bus.AddEventSource()
	go func() {
		defer wg.Done()
		defer rs.bus.RemoveEventSource()
		slog.Info("http runtime listening", slog.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http runtime stopped", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), dcfg.ShutdownGracePeriod)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	rs.bus.AwaitPendingEvents(dcfg.ShutdownGracePeriod)
	wg.Wait()
	return nil
}

// runtimeServer fronts the action registry, event bus, and OpenAPI
// router that actually handle routed requests, and answers the control
// plane's status/reload/stop RPCs.
type runtimeServer struct {
	cfg  *config.Config
	root string

	registry *action.Registry
	runner   *action.Runner
	pool     *action.Pool
	bus      *event.Bus

	mu              sync.RWMutex
	doc             *openapi.Document
	router          *openapi.CachedRouter
	httpServer      *http.Server
	lastReload      time.Time
	eventsProcessed atomic.Int64
}

func newRuntimeServer(cfg *config.Config, root string) *runtimeServer {
	registry := action.NewRegistry()
	return &runtimeServer{
		cfg:      cfg,
		root:     root,
		registry: registry,
		runner:   action.NewRunner(registry),
		pool:     action.NewPool(),
		bus:      event.NewBus(),
	}
}

func (rs *runtimeServer) loadOpenAPI() error {
	raw, err := os.ReadFile(rs.cfg.Paths.OpenAPIPath)
	if err != nil {
		return err
	}
	doc, err := openapi.ParseDocument(raw)
	if err != nil {
		return err
	}

	router := openapi.NewRouter(doc.Routes)
	cached := openapi.NewCachedRouter(router, 1024)

	rs.mu.Lock()
	rs.doc = doc
	rs.router = cached
	rs.lastReload = time.Now()
	rs.mu.Unlock()
	return nil
}

// watchSpec reloads the route table whenever the configured OpenAPI
// document changes on disk.
func (rs *runtimeServer) watchSpec(ctx context.Context) {
	opts := watcher.DefaultOptions()
	opts.SpecPath = rs.cfg.Paths.OpenAPIPath
	w, err := watcher.NewHybridWatcher(opts)
	if err != nil {
		slog.Error("spec watcher unavailable", slog.String("error", err.Error()))
		return
	}
	defer w.Stop()

	if err := w.Start(ctx, rs.root); err != nil && ctx.Err() == nil {
		slog.Error("spec watcher stopped", slog.String("error", err.Error()))
		return
	}

	events := w.Events()
	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			rs.handleSpecEvents(batch)
		case err, ok := <-errs:
			if !ok {
				continue
			}
			slog.Error("spec watcher error", slog.String("error", err.Error()))
		}
	}
}

func (rs *runtimeServer) handleSpecEvents(batch []watcher.FileEvent) {
	for _, e := range batch {
		if e.Operation != watcher.OpSpecChange {
			continue
		}
		if err := rs.loadOpenAPI(); err != nil {
			slog.Error("spec reload failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			return
		}
		rs.mu.RLock()
		routes := len(rs.doc.Routes)
		rs.mu.RUnlock()
		slog.Info("spec reloaded", slog.String("path", e.Path), slog.Int("routes", routes))
		return
	}
}

// GetStatus implements daemon.RequestHandler.
func (rs *runtimeServer) GetStatus() daemon.StatusResult {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	routes := 0
	if rs.doc != nil {
		routes = len(rs.doc.Routes)
	}
	var lastReload string
	if !rs.lastReload.IsZero() {
		lastReload = rs.lastReload.Format(time.RFC3339)
	}

	return daemon.StatusResult{
		Running:         true,
		OpenAPIPath:     rs.cfg.Paths.OpenAPIPath,
		RoutesLoaded:    routes,
		ActionsLoaded:   rs.registry.Count(),
		EventsProcessed: rs.eventsProcessed.Load(),
		LastReload:      lastReload,
	}
}

// Reload implements daemon.RequestHandler.
func (rs *runtimeServer) Reload(_ context.Context, params daemon.ReloadParams) (daemon.ReloadResult, error) {
	if params.OpenAPIPath != "" {
		rs.mu.Lock()
		rs.cfg.Paths.OpenAPIPath = params.OpenAPIPath
		rs.mu.Unlock()
	}
	if err := rs.loadOpenAPI(); err != nil {
		return daemon.ReloadResult{}, err
	}
	rs.mu.RLock()
	routes := len(rs.doc.Routes)
	rs.mu.RUnlock()
	return daemon.ReloadResult{RoutesLoaded: routes}, nil
}

// Stop implements daemon.RequestHandler.
func (rs *runtimeServer) Stop(ctx context.Context, _ daemon.StopParams) error {
	rs.mu.RLock()
	httpServer := rs.httpServer
	rs.mu.RUnlock()
	if httpServer == nil {
		return nil
	}
	go func() {
		_ = httpServer.Shutdown(ctx)
		_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
	}()
	return nil
}

// ServeHTTP routes an incoming request to its operation's action
// handler, publishing a routing event and an unmatched-action response
// when no handler is bound.
func (rs *runtimeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	rs.mu.RLock()
	router := rs.router
	rs.mu.RUnlock()

	routed, notFound := openapi.Route(router, r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
	if notFound != nil {
		writeJSON(w, http.StatusNotFound, notFound)
		return
	}

	rs.eventsProcessed.Add(1)
	rs.bus.Publish(event.Event{Type: "http.request.routed", Payload: routed, PublishedAt: time.Now()})

	rctx := action.NewRuntimeContext(r.Context())
	rctx.Bind("request", routed)

	result := action.NewResultDescriptor(ast.NewQualifiedNoun("response"))
	object := action.NewObjectDescriptor(ast.ObjectRef{
		Preposition: ast.PrepNone,
		Noun:        ast.NewQualifiedNoun("request"),
	})

	slot, err := rs.pool.AcquireSlot(r.Context())
	if err != nil {
		writeActionError(w, aroerr.Wrap(aroerr.KindTimeout, err))
		return
	}
	defer slot.Release()

	value, err := rs.runner.ExecuteSync(r.Context(), slot, rctx, routed.OperationID, result, object)
	if err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeActionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	title := "Internal Server Error"
	switch aroerr.KindOf(err) {
	case aroerr.KindUnknownAction:
		status, title = http.StatusNotImplemented, "Not Implemented"
	case aroerr.KindInvalidPreposition, aroerr.KindValidationFailed, aroerr.KindComparisonFailed:
		status, title = http.StatusBadRequest, "Bad Request"
	case aroerr.KindTimeout:
		status, title = http.StatusGatewayTimeout, "Gateway Timeout"
	}
	writeJSON(w, status, map[string]string{
		"error":   title,
		"message": err.Error(),
	})
}
