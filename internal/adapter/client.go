package adapter

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/danmuck/nerve-search-adapter/internal/observability"
	"github.com/rs/zerolog"
)

var (
	ErrSocketPathRequired = errors.New("adapter: core socket path required")
	ErrBackendRequired    = errors.New("adapter: search backend required")
)

// Client is the adapter's single connection to the core.
type Client struct {
	socketPath string
	backend    Searcher
	cfg        Config
	logger     zerolog.Logger
	rng        *rand.Rand
}

func NewClient(socketPath string, backend Searcher, cfg Config, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(socketPath) == "" {
		return nil, ErrSocketPathRequired
	}
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &Client{
		socketPath: socketPath,
		backend:    backend,
		cfg:        cfg.WithDefaults(),
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run connects to the core and serves one session until it ends.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	observability.SetSessionActive(true)
	defer observability.SetSessionActive(false)

	c.logger.Info().Str("socket", c.socketPath).Msg("adapter.Client.Run connected to core")
	return NewSession(conn, c.backend, c.cfg, c.logger).Serve(ctx)
}

// Connect dials the core socket, retrying with backoff up to MaxConnectAttempts.
func (c *Client) Connect(ctx context.Context) (net.Conn, error) {
	var attempt int
	for {
		attempt++
		conn, err := c.dial(ctx)
		if err == nil {
			return conn, nil
		}
		c.logger.Warn().Int("attempt", attempt).Str("socket", c.socketPath).Err(err).Msg("adapter.Client.Connect dial failed")
		if !c.cfg.Session.ShouldRetry(attempt) {
			return nil, err
		}
		if err := c.sleepBackoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.cfg.Session.ConnectTimeout}
	return dialer.DialContext(ctx, "unix", c.socketPath)
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := c.cfg.Session.Backoff.Delay(attempt, c.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
