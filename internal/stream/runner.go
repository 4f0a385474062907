package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazuki-dev/vrcwatch/internal/adapters/render/feed"
	"github.com/hazuki-dev/vrcwatch/internal/domain"
	"github.com/hazuki-dev/vrcwatch/internal/ports"
	"github.com/hazuki-dev/vrcwatch/internal/vrchat"
)

const (
	DefaultPipelineURL = "wss://pipeline.vrchat.cloud/"

	notifyTitle = "VRChat"

	defaultHeartbeatInterval = 55 * time.Second
	defaultHeartbeatTimeout  = 20 * time.Second
	loginRetryWait           = 5 * time.Second
	maxBackoffSeconds        = 30
)

type Config struct {
	Session   *vrchat.Session
	Directory *vrchat.Directory
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Targets   domain.TargetSet
	UserAgent string

	PipelineURL       string
	Out               io.Writer
	Dialer            *websocket.Dialer
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

// Runner keeps one streaming connection alive for the process lifetime,
// re-authenticating when the token is confirmed invalid and backing off
// between reconnect attempts. It owns the connection exclusively; events
// are dispatched serially from the read loop.
type Runner struct {
	session   *vrchat.Session
	directory *vrchat.Directory
	notifier  ports.Notifier
	logger    *slog.Logger
	targets   domain.TargetSet
	userAgent string

	pipelineURL       string
	out               io.Writer
	dialer            *websocket.Dialer
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

func NewRunner(cfg Config) *Runner {
	r := &Runner{
		session:           cfg.Session,
		directory:         cfg.Directory,
		notifier:          cfg.Notifier,
		logger:            cfg.Logger,
		targets:           cfg.Targets,
		userAgent:         cfg.UserAgent,
		pipelineURL:       cfg.PipelineURL,
		out:               cfg.Out,
		dialer:            cfg.Dialer,
		heartbeatInterval: cfg.HeartbeatInterval,
		heartbeatTimeout:  cfg.HeartbeatTimeout,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "stream")
	if r.pipelineURL == "" {
		r.pipelineURL = DefaultPipelineURL
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.dialer == nil {
		r.dialer = websocket.DefaultDialer
	}
	if r.heartbeatInterval <= 0 {
		r.heartbeatInterval = defaultHeartbeatInterval
	}
	if r.heartbeatTimeout <= 0 {
		r.heartbeatTimeout = defaultHeartbeatTimeout
	}
	return r
}

// RunForever cycles Disconnected -> Connecting -> Connected until ctx is
// cancelled. Login failures and dropped connections are recoverable by
// construction; nothing escalates out of this loop.
func (r *Runner) RunForever(ctx context.Context, initialToken string) {
	backoff := 1.0
	token := initialToken

	for ctx.Err() == nil {
		if token == "" {
			fresh, name, err := r.session.EnsureLogin(ctx)
			if err != nil {
				r.logger.Error("re-login failed", "error", err)
				if !sleepCtx(ctx, loginRetryWait) {
					return
				}
				continue
			}
			r.logger.Info("logged in", "display_name", name)
			token = fresh
			backoff = 1
		}

		connected, err := r.runOnce(ctx, token)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("stream closed", "error", err)
		}
		if ctx.Err() != nil {
			return
		}

		// Toast only when an established stream dropped; a dial that never
		// succeeded would otherwise nag once per backoff cycle.
		if connected {
			_ = r.notifier.Notify(notifyTitle, "stream disconnected, reconnecting", 5*time.Second)
		}

		sleep := time.Duration((minFloat(backoff, maxBackoffSeconds) + rand.Float64()) * float64(time.Second))
		r.logger.Info("reconnecting", "wait", sleep)
		if !sleepCtx(ctx, sleep) {
			return
		}
		backoff = nextBackoff(backoff)

		// Cheap probe: only burn a full login when the token is
		// confirmed dead, not on every transient drop.
		if !r.session.Probe(ctx) {
			r.logger.Info("session token invalid, will re-authenticate")
			token = ""
		}
	}
}

// nextBackoff doubles the reconnect delay, capped at 30 seconds.
func nextBackoff(current float64) float64 {
	return minFloat(current*2, maxBackoffSeconds)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// runOnce reports whether a connection was established at all alongside the
// error that ended it.
func (r *Runner) runOnce(ctx context.Context, token string) (bool, error) {
	header := http.Header{}
	header.Set("User-Agent", r.userAgent)
	header.Set("Origin", "https://vrchat.com")

	conn, resp, err := r.dialer.DialContext(ctx, r.pipelineURL+"?authToken="+token, header)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("dial pipeline: status %d: %w", resp.StatusCode, err)
		}
		return false, fmt.Errorf("dial pipeline: %w", err)
	}
	defer func() { _ = conn.Close() }()

	r.logger.Info("stream connected")

	_ = conn.SetReadDeadline(time.Now().Add(r.heartbeatInterval + r.heartbeatTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(r.heartbeatInterval + r.heartbeatTimeout))
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go r.heartbeat(ctx, conn, pingDone)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(r.heartbeatInterval + r.heartbeatTimeout))
		r.handleMessage(ctx, raw)
	}
}

// heartbeat pings on the configured interval; a peer that stops answering
// trips the read deadline and tears the connection down.
func (r *Runner) heartbeat(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(r.heartbeatTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (r *Runner) handleMessage(ctx context.Context, raw []byte) {
	ev, err := Classify(raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrIgnoredKind):
		case errors.Is(err, ErrNoSubject):
			r.logger.Debug("dropped event without subject")
		default:
			r.logger.Debug("dropped malformed message", "error", err)
		}
		return
	}

	if !r.targets.Wants(ev.UserID) {
		r.logger.Debug("dropped event outside target set", "user", ev.UserID)
		return
	}

	name := r.directory.DisplayName(ctx, ev.UserID)
	if name == "" {
		name = ev.UserID
	}

	switch ev.Kind {
	case KindFriendOnline:
		_ = r.notifier.Notify(notifyTitle, name+" is now online", 5*time.Second)
		r.logger.Info("friend online", "user", ev.UserID, "location", ev.Location)
		fmt.Fprintln(r.out, feed.OnlineLine(name, ev.UserID))

	case KindFriendOffline:
		_ = r.notifier.Notify(notifyTitle, name+" is now offline", 5*time.Second)
		r.logger.Info("friend offline", "user", ev.UserID)
		fmt.Fprintln(r.out, feed.OfflineLine(name, ev.UserID))

	case KindFriendLocation:
		world := r.directory.ResolveLocation(ctx, ev.Location)
		_ = r.notifier.Notify(notifyTitle, name+" moved to: "+world, 5*time.Second)
		r.logger.Info("friend moved", "user", ev.UserID, "world", world)
		fmt.Fprintln(r.out, feed.MoveLine(name, ev.UserID, world))

	case KindFriendUpdate:
		status := ev.Status
		if status == "" {
			status = string(domain.StatusUnknown)
		}
		_ = r.notifier.Notify(notifyTitle, name+"'s status changed: "+status, 5*time.Second)
		r.logger.Info("friend status changed", "user", ev.UserID, "status", status)
		fmt.Fprintln(r.out, feed.UpdateLine(name, ev.UserID, ev.Status, ev.StatusDescription))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
