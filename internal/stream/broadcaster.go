package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tony-42069/sol-liquidity-monitor/internal/condition"
	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
	"github.com/tony-42069/sol-liquidity-monitor/internal/telemetry"
)

const (
	DefaultListen   = ":3001"
	DefaultInterval = 5 * time.Second

	writeTimeout = 3 * time.Second
)

// Source supplies fresh pool metrics.
type Source interface {
	GetPoolState(ctx context.Context) (model.Metrics, error)
	Evaluate(metrics model.Metrics) condition.Result
}

// Config configures the broadcaster.
type Config struct {
	Listen   string
	Interval time.Duration
}

type subscriber struct {
	id   uuid.UUID
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcaster pushes pool snapshots to websocket subscribers on a fixed schedule.
type Broadcaster struct {
	cfg      Config
	source   Source
	logger   *zap.Logger
	recorder *telemetry.Recorder
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	clients map[uuid.UUID]*subscriber

	cron   *cron.Cron
	server *http.Server
}

// New builds a Broadcaster. Start must be called to serve and schedule updates.
func New(cfg Config, source Source, logger *zap.Logger, recorder *telemetry.Recorder) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Broadcaster{
		cfg:      cfg,
		source:   source,
		logger:   logger.Named("stream"),
		recorder: recorder,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now:     time.Now,
		clients: make(map[uuid.UUID]*subscriber),
	}
}

// Handler serves the push channel on / and metrics on /metrics.
func (b *Broadcaster) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", b.recorder.Handler())
	mux.HandleFunc("/", b.serveWS)
	return mux
}

// Start listens on the configured address and schedules updates. It returns
// once the listener is bound.
func (b *Broadcaster) Start(ctx context.Context) error {
	if b.source == nil {
		return fmt.Errorf("stream source is nil")
	}

	ln, err := net.Listen("tcp", b.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", b.cfg.Listen, err)
	}

	b.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := b.cron.AddFunc(fmt.Sprintf("@every %s", b.cfg.Interval), func() { b.tick(ctx) }); err != nil {
		ln.Close()
		return fmt.Errorf("schedule updates: %w", err)
	}

	b.server = &http.Server{Handler: b.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("stream server failed", zap.Error(err))
		}
	}()
	b.cron.Start()

	b.logger.Info("stream server started", zap.String("listen", ln.Addr().String()), zap.Duration("interval", b.cfg.Interval))
	return nil
}

// Stop halts the update schedule, closes every subscriber and shuts the server down.
func (b *Broadcaster) Stop(ctx context.Context) error {
	if b.cron != nil {
		select {
		case <-b.cron.Stop().Done():
		case <-ctx.Done():
		}
	}

	b.mu.Lock()
	for id, c := range b.clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		_ = c.conn.Close()
		c.mu.Unlock()
		delete(b.clients, id)
		b.recorder.SubscriberRemoved()
	}
	b.mu.Unlock()

	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown stream server: %w", err)
		}
	}
	b.logger.Info("stream server stopped")
	return nil
}

// Subscribers returns the number of open connections.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcaster) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &subscriber{id: uuid.New(), conn: conn}
	b.mu.Lock()
	b.clients[c.id] = c
	b.mu.Unlock()
	b.recorder.SubscriberAdded()
	b.logger.Info("client connected", zap.Stringer("client", c.id), zap.String("remote", r.RemoteAddr))

	if data, err := Encode(StatusData{Connected: true}); err == nil {
		if err := c.write(data); err != nil {
			b.remove(c.id, err)
			return
		}
	}

	// Reads only drain control frames and detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.remove(c.id, err)
				return
			}
		}
	}()
}

func (b *Broadcaster) remove(id uuid.UUID, cause error) {
	b.mu.Lock()
	c, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	_ = c.conn.Close()
	b.recorder.SubscriberRemoved()
	b.logger.Info("client disconnected", zap.Stringer("client", id), zap.NamedError("cause", cause))
}

func (b *Broadcaster) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	metrics, err := b.source.GetPoolState(ctx)
	if err != nil {
		b.logger.Warn("update price/liquidity failed", zap.Error(err))
		b.broadcast(ErrorData{
			Message:   "Failed to update price/liquidity data",
			Timestamp: b.now().UnixMilli(),
		})
		return
	}

	b.broadcast(PriceData{
		Price:     metrics.Price,
		Liquidity: metrics.LiquidityUSD,
		Timestamp: b.now().UnixMilli(),
	})

	if res := b.source.Evaluate(metrics); res.Met {
		b.broadcast(StatusData{Connected: true, ConditionsMet: true, Message: "Trading conditions met!"})
	}
}

func (b *Broadcaster) broadcast(p Payload) {
	data, err := Encode(p)
	if err != nil {
		b.logger.Error("encode message failed", zap.Error(err))
		return
	}

	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.Unlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			b.remove(c.id, err)
		}
	}
}
