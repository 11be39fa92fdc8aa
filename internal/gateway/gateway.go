// ABOUTME: Gateway orchestrator wiring Redis, the assistant client, the worker pool and HTTP
// ABOUTME: Owns component lifecycle: explicit construction at startup, graceful shutdown

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bubble/bubble-relay/internal/assistant"
	"github.com/bubble/bubble-relay/internal/config"
	"github.com/bubble/bubble-relay/internal/relay"
	"github.com/bubble/bubble-relay/internal/session"
	"github.com/bubble/bubble-relay/internal/worker"
)

// Enqueuer defines what the websocket handler needs from the job queue.
type Enqueuer interface {
	Enqueue(job worker.Job) error
}

// ThreadSubscriber defines what the websocket handler needs from the relay.
type ThreadSubscriber interface {
	Subscribe(ctx context.Context, threadID string) (<-chan string, error)
}

// Gateway orchestrates the relay server components: the shared Redis
// client, the conversation worker pool, and the HTTP server carrying the
// websocket endpoint.
type Gateway struct {
	config     *config.Config
	rdb        *redis.Client
	pool       *worker.Pool
	subscriber ThreadSubscriber
	httpServer *http.Server
	logger     *slog.Logger
}

// New constructs a gateway from config. All clients and pools are built
// here and injected into the components that use them; nothing holds
// process-global state.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opt.PoolSize = cfg.Redis.PoolSize
	opt.PoolTimeout = cfg.Redis.PoolTimeout
	rdb := redis.NewClient(opt)

	var clientOpts []assistant.Option
	if cfg.Assistant.BaseURL != "" {
		clientOpts = append(clientOpts, assistant.WithBaseURL(cfg.Assistant.BaseURL))
	}
	client := assistant.NewClient(cfg.Assistant.APIKey, logger, clientOpts...)
	poller := assistant.NewPoller(client, cfg.Assistant.PollInterval, logger)

	sessions := session.NewStore(rdb, cfg.Session.MaxMessages, logger)
	publisher := relay.NewPublisher(rdb, logger)
	subscriber := relay.NewSubscriber(rdb, logger)

	processor := worker.NewChatProcessor(
		client,
		poller,
		sessions,
		publisher,
		cfg.Assistant.AssistantID,
		cfg.Assistant.RunTimeout,
		logger,
	)
	pool := worker.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize, processor, logger)

	gw := &Gateway{
		config:     cfg,
		rdb:        rdb,
		pool:       pool,
		subscriber: subscriber,
		logger:     logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/ws", gw.handleWebSocket)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the worker pool and HTTP server and blocks until ctx is
// cancelled or the server fails, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	g.pool.Start()

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops accepting connections, drains the worker pool, and closes
// the Redis client.
func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.httpServer.Shutdown(ctx)

	// Queued and in-flight jobs run to completion on the pool's own
	// context; disconnected clients just miss the published response.
	g.pool.Shutdown()

	if closeErr := g.rdb.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	g.logger.Info("gateway stopped")
	return err
}

// handleHealth returns 200 OK if the broker connection is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := g.rdb.Ping(r.Context()).Err(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("redis unavailable"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
