package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phayes/freeport"
	"go.uber.org/zap"
)

const (
	// IPCPath is the bridge endpoint the front-end connects to
	IPCPath = "/ipc"

	shutdownTimeout = 5 * time.Second
	writeTimeout    = 10 * time.Second
)

// Runtime dispatches invocations to registered commands and serves the bridge
type Runtime struct {
	opts     options
	commands map[string]Handler
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*conn]struct{}
}

func newRuntime(opts options, commands map[string]Handler) *Runtime {
	r := &Runtime{
		opts:     opts,
		commands: commands,
		conns:    make(map[*conn]struct{}),
	}
	r.upgrader = websocket.Upgrader{CheckOrigin: r.checkOrigin}
	return r
}

// Commands returns the registered command names in sorted order
func (r *Runtime) Commands() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a command in process. args may be json.RawMessage or any JSON-encodable value.
func (r *Runtime) Invoke(ctx context.Context, cmd string, args any, emit EmitFunc) (any, error) {
	return r.invoke(ctx, "", cmd, args, emit)
}

func (r *Runtime) invoke(ctx context.Context, id, cmd string, args any, emit EmitFunc) (payload any, err error) {
	h, ok := r.commands[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, cmd)
	}

	raw, err := encodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidArgs, cmd, err)
	}

	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("command panicked", zap.String("cmd", cmd), zap.Any("panic", p))
			payload, err = nil, fmt.Errorf("command %s failed unexpectedly", cmd)
		}
	}()

	return h(ctx, &Invocation{ID: id, Cmd: cmd, Args: raw, emit: emit})
}

func encodeArgs(args any) (json.RawMessage, error) {
	switch a := args.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return a, nil
	case []byte:
		return json.RawMessage(a), nil
	default:
		return json.Marshal(a)
	}
}

// Run listens on the configured address and serves the bridge until ctx is cancelled
func (r *Runtime) Run(ctx context.Context) error {
	port := r.opts.port
	if port == 0 {
		p, err := freeport.GetFreePort()
		if err != nil {
			return fmt.Errorf("could not determine free port: %w", err)
		}
		port = p
	}

	addr := net.JoinHostPort(r.opts.address, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(IPCPath, r.serveWS(ctx))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	bridgeURL := "ws://" + ln.Addr().String() + IPCPath
	zap.L().Info("bridge listening", zap.String("url", bridgeURL), zap.Int("commands", len(r.commands)))
	if r.opts.onReady != nil {
		r.opts.onReady(bridgeURL)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	r.closeConns()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge shutdown failed: %w", err)
	}
	zap.L().Info("bridge stopped")
	return nil
}

func (r *Runtime) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(r.opts.allowedOrigins) > 0 {
		return slices.Contains(r.opts.allowedOrigins, origin)
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (r *Runtime) serveWS(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ws, err := r.upgrader.Upgrade(w, req, nil)
		if err != nil {
			zap.L().Warn("bridge upgrade failed", zap.String("remote", req.RemoteAddr), zap.Error(err))
			return
		}

		c := &conn{
			ws:  ws,
			rt:  r,
			log: zap.L().Named("conn." + NewID()),
		}
		r.track(c, true)
		defer r.track(c, false)

		c.serve(ctx)
	}
}

func (r *Runtime) track(c *conn, add bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if add {
		r.conns[c] = struct{}{}
	} else {
		delete(r.conns, c)
	}
}

func (r *Runtime) closeConns() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.conns {
		c.close()
	}
}

// conn serves one front-end connection
type conn struct {
	ws  *websocket.Conn
	rt  *Runtime
	log *zap.Logger

	writeMu sync.Mutex
}

func (c *conn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		_ = c.ws.Close()
	}()

	c.log.Debug("connection opened", zap.String("remote", c.ws.RemoteAddr().String()))

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("connection closed unexpectedly", zap.Error(err))
			} else {
				c.log.Debug("connection closed")
			}
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			c.send(Reply{Kind: KindReply, Error: "malformed frame: " + err.Error()})
			continue
		}
		if req.ID == "" {
			req.ID = NewID()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.send(c.dispatch(ctx, req))
		}()
	}
}

func (c *conn) dispatch(ctx context.Context, req request) Reply {
	start := time.Now()
	emit := func(channel string, payload any) error {
		return c.send(Event{Kind: KindEvent, Channel: channel, Payload: payload})
	}

	payload, err := c.rt.invoke(ctx, req.ID, req.Cmd, req.Args, emit)
	c.log.Debug("invocation finished",
		zap.String("id", req.ID), zap.String("cmd", req.Cmd),
		zap.Bool("ok", err == nil), zap.Duration("elapsed", time.Since(start)))

	if err != nil {
		return Reply{Kind: KindReply, ID: req.ID, Error: err.Error()}
	}
	return Reply{Kind: KindReply, ID: req.ID, OK: true, Payload: payload}
}

func (c *conn) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(v); err != nil {
		c.log.Debug("write failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *conn) close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.ws.Close()
}
