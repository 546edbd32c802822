package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ShutdownManager drains the console's HTTP servers and then runs the
// registered cleanup functions when the supplied context is cancelled
// (typically by signal.NotifyContext). Servers are drained before cleanup
// runs so in-flight requests still have their telemetry exported.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu      sync.Mutex
	servers []shutdownTask
	cleanup []shutdownTask
}

type shutdownTask struct {
	name string
	fn   func(context.Context) error
}

// NewShutdownManager creates a shutdown manager with the given drain timeout
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// RegisterServer adds an HTTP server to drain on shutdown
func (m *ShutdownManager) RegisterServer(name string, srv *http.Server) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, shutdownTask{name: name, fn: srv.Shutdown})
}

// RegisterCleanup adds a function to run after the servers have drained
func (m *ShutdownManager) RegisterCleanup(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanup = append(m.cleanup, shutdownTask{name: name, fn: fn})
}

// Wait blocks until ctx is done, then performs the shutdown sequence.
// It returns the first error encountered; remaining tasks still run.
func (m *ShutdownManager) Wait(ctx context.Context) error {
	<-ctx.Done()
	m.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	servers := append([]shutdownTask(nil), m.servers...)
	cleanup := append([]shutdownTask(nil), m.cleanup...)
	m.mu.Unlock()

	var firstErr error
	if err := m.runParallel(shutdownCtx, servers); err != nil {
		firstErr = err
	}
	if err := m.runParallel(shutdownCtx, cleanup); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr != nil {
		return fmt.Errorf("shutdown incomplete: %w", firstErr)
	}
	m.logger.Info("Shutdown complete")
	return nil
}

func (m *ShutdownManager) runParallel(ctx context.Context, tasks []shutdownTask) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(tasks))

	for _, task := range tasks {
		wg.Add(1)
		go func(task shutdownTask) {
			defer wg.Done()
			if err := task.fn(ctx); err != nil {
				m.logger.WithError(err).WithField("task", task.name).Error("Shutdown task failed")
				errCh <- fmt.Errorf("%s: %w", task.name, err)
				return
			}
			m.logger.WithField("task", task.name).Info("Shutdown task complete")
		}(task)
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}
