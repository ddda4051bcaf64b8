package di

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KOMKZ/go-yogan-cache/config"
	"go.uber.org/zap"
)

// AppState is the host lifecycle state.
type AppState int

const (
	StateInit AppState = iota
	StateSetup
	StateRunning
	StateStopping
	StateStopped
)

func (s AppState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateSetup:
		return "Setup"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Application hosts a Stack: it loads settings, starts the stack and
// shuts it down on SIGINT/SIGTERM.
type Application struct {
	configFile    string
	dotEnvFile    string
	requireRemote bool
	stopTimeout   time.Duration
	stackOpts     []StackOption

	stack *Stack
	state AppState
	mu    sync.RWMutex

	onReady    func(*Application) error
	onShutdown func(context.Context) error
}

// AppOption configures an Application.
type AppOption func(*Application)

// WithConfigFile sets the YAML/JSON/TOML settings file. Missing files are ignored.
func WithConfigFile(path string) AppOption {
	return func(app *Application) {
		app.configFile = path
	}
}

// WithDotEnvFile sets the .env file. Missing files are ignored.
func WithDotEnvFile(path string) AppOption {
	return func(app *Application) {
		app.dotEnvFile = path
	}
}

// WithRequireRemote makes Start fail when redis is unreachable.
func WithRequireRemote(require bool) AppOption {
	return func(app *Application) {
		app.requireRemote = require
	}
}

// WithStopTimeout bounds the shutdown triggered by a signal (default 30s).
func WithStopTimeout(d time.Duration) AppOption {
	return func(app *Application) {
		app.stopTimeout = d
	}
}

// WithStackOptions forwards options to NewStack.
func WithStackOptions(opts ...StackOption) AppOption {
	return func(app *Application) {
		app.stackOpts = append(app.stackOpts, opts...)
	}
}

// WithOnReady runs fn after the stack has started.
func WithOnReady(fn func(*Application) error) AppOption {
	return func(app *Application) {
		app.onReady = fn
	}
}

// WithOnShutdown runs fn before the stack is torn down.
func WithOnShutdown(fn func(context.Context) error) AppOption {
	return func(app *Application) {
		app.onShutdown = fn
	}
}

func NewApplication(opts ...AppOption) *Application {
	app := &Application{
		configFile:  "configs/cache.yaml",
		dotEnvFile:  ".env",
		stopTimeout: 30 * time.Second,
		state:       StateInit,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Stack is nil before Setup.
func (app *Application) Stack() *Stack {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.stack
}

func (app *Application) State() AppState {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.state
}

func (app *Application) setState(state AppState) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.state = state
}

// Setup loads settings and resolves the stack.
func (app *Application) Setup() error {
	settings, err := config.Load(app.configFile, app.dotEnvFile)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	stack, err := NewStack(settings, app.stackOpts...)
	if err != nil {
		return fmt.Errorf("build cache stack: %w", err)
	}

	app.mu.Lock()
	app.stack = stack
	app.state = StateSetup
	app.mu.Unlock()

	stack.logger.Info("cache stack configured",
		zap.String("mode", settings.Mode),
		zap.String("config_file", app.configFile))
	return nil
}

// Start connects and starts background work.
func (app *Application) Start(ctx context.Context) error {
	stack := app.Stack()
	if stack == nil {
		return errors.New("start before setup")
	}
	if err := stack.Start(ctx, app.requireRemote); err != nil {
		return fmt.Errorf("start cache stack: %w", err)
	}
	app.setState(StateRunning)
	stack.logger.InfoCtx(ctx, "cache stack started")

	if app.onReady != nil {
		if err := app.onReady(app); err != nil {
			return fmt.Errorf("ready callback: %w", err)
		}
	}
	return nil
}

// Run sets up, starts and blocks until SIGINT/SIGTERM or ctx is done.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Setup(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.stopTimeout)
		defer cancel()
		_ = app.Shutdown(stopCtx)
		return err
	}

	<-ctx.Done()
	app.Stack().logger.Info("shutdown requested", zap.Error(context.Cause(ctx)))

	stopCtx, cancel := context.WithTimeout(context.Background(), app.stopTimeout)
	defer cancel()
	return app.Shutdown(stopCtx)
}

// Shutdown runs the shutdown callback, then tears the stack down.
func (app *Application) Shutdown(ctx context.Context) error {
	stack := app.Stack()
	if stack == nil {
		return nil
	}
	app.setState(StateStopping)

	if app.onShutdown != nil {
		if err := app.onShutdown(ctx); err != nil {
			stack.logger.Warn("shutdown callback failed", zap.Error(err))
		}
	}
	err := stack.Shutdown(ctx)
	app.setState(StateStopped)
	return err
}

// HealthCheck runs the stack's aggregated checks.
func (app *Application) HealthCheck(ctx context.Context) bool {
	stack := app.Stack()
	if stack == nil {
		return false
	}
	return stack.Health().Check(ctx).IsHealthy()
}
