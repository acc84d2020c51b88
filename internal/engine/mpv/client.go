// Package mpv drives an mpv process through its JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/engine"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

const (
	observeEOF   = 1
	observePause = 2

	eventBuffer = 16
)

const errPropertyUnavailable = "property unavailable"

type request struct {
	Command   any   `json:"command"`
	RequestID int64 `json:"request_id"`
}

type message struct {
	// replies
	RequestID *int64          `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	// events
	Event string `json:"event"`
	ID    int    `json:"id"`
	Name  string `json:"name"`
}

type reply struct {
	data json.RawMessage
	err  error
}

// Client speaks the mpv IPC protocol over one connection.
type Client struct {
	conn    net.Conn
	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan reply
	closed  bool

	events chan engine.Event
	done   chan struct{}
	log    zerolog.Logger
}

// Dial connects to the IPC socket of a running mpv and subscribes to the
// properties the player needs.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mpv")
	}

	c := newClient(conn)

	if _, err := c.command(ctx, "observe_property", observeEOF, "eof-reached"); err != nil {
		_ = c.Close()
		return nil, err
	}

	if _, err := c.command(ctx, "observe_property", observePause, "pause"); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

func newClient(conn net.Conn) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[int64]chan reply),
		events:  make(chan engine.Event, eventBuffer),
		done:    make(chan struct{}),
		log:     log.With().Str("component", "mpv").Logger(),
	}

	go c.readLoop()

	return c
}

// Load replaces the current file with path, starting at start.
func (c *Client) Load(ctx context.Context, path string, start time.Duration) error {
	if _, err := c.command(ctx, "set_property", "start", seconds(start)); err != nil {
		return errors.Wrap(err, "setting start position")
	}

	if _, err := c.command(ctx, "loadfile", path, "replace"); err != nil {
		return errors.Wrap(err, "loading file")
	}

	return c.Play(ctx)
}

// Position returns the playback position.
func (c *Client) Position(ctx context.Context) (time.Duration, error) {
	return c.durationProperty(ctx, "time-pos")
}

// Duration returns the length of the loaded file.
func (c *Client) Duration(ctx context.Context) (time.Duration, error) {
	return c.durationProperty(ctx, "duration")
}

// Paused reports whether playback is paused.
func (c *Client) Paused(ctx context.Context) (bool, error) {
	data, err := c.command(ctx, "get_property", "pause")
	if err != nil {
		return false, err
	}

	var paused bool
	if err := json.Unmarshal(data, &paused); err != nil {
		return false, errors.Wrap(err, "decoding pause")
	}

	return paused, nil
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) error {
	_, err := c.command(ctx, "set_property", "pause", false)
	return err
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.command(ctx, "set_property", "pause", true)
	return err
}

// Seek jumps to an absolute position.
func (c *Client) Seek(ctx context.Context, pos time.Duration) error {
	_, err := c.command(ctx, "seek", seconds(pos), "absolute+exact")
	return err
}

// Events returns engine notifications. The channel is closed with the connection.
func (c *Client) Events() <-chan engine.Event {
	return c.events
}

// DrawOverlay draws r as a filled rectangle above the video.
func (c *Client) DrawOverlay(id int, r overlay.Rect, argb uint32) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.command(ctx, map[string]any{
		"name":   "osd-overlay",
		"id":     id,
		"format": "ass-events",
		"data":   overlay.ASSDrawing(r, argb),
		"res_x":  overlay.CanvasWidth,
		"res_y":  overlay.CanvasHeight,
	})

	return err
}

// ClearOverlay removes the overlay with the given id.
func (c *Client) ClearOverlay(id int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.command(ctx, map[string]any{
		"name":   "osd-overlay",
		"id":     id,
		"format": "none",
		"data":   "",
	})

	return err
}

// Close drops the connection. Pending requests fail with engine.ErrClosed.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done

	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) durationProperty(ctx context.Context, name string) (time.Duration, error) {
	data, err := c.command(ctx, "get_property", name)
	if err != nil {
		return 0, err
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return 0, errors.Wrapf(err, "decoding %s", name)
	}

	return time.Duration(secs * float64(time.Second)), nil
}

// command sends either a positional command (args...) or a single named-argument map.
func (c *Client) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := c.nextID.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, engine.ErrClosed
	}

	c.pending[id] = ch
	c.mu.Unlock()

	var cmd any = args
	if len(args) == 1 {
		if named, ok := args[0].(map[string]any); ok {
			cmd = named
		}
	}

	payload, err := json.Marshal(request{Command: cmd, RequestID: id})
	if err != nil {
		c.forget(id)
		return nil, errors.Wrap(err, "encoding command")
	}

	payload = append(payload, '\n')

	c.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}

	_, err = c.conn.Write(payload)
	c.writeMu.Unlock()

	if err != nil {
		c.forget(id)
		return nil, errors.Wrap(err, "writing command")
	}

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	defer c.shutdown()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd

	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			c.log.Debug().Err(err).Msg("undecodable ipc line")
			continue
		}

		if msg.Event != "" {
			c.dispatchEvent(msg)
			continue
		}

		if msg.RequestID != nil {
			c.dispatchReply(*msg.RequestID, msg)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Debug().Err(err).Msg("ipc connection lost")
	}
}

func (c *Client) dispatchReply(id int64, msg message) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		return
	}

	r := reply{data: msg.Data}

	switch msg.Error {
	case "success", "":
	case errPropertyUnavailable:
		r.err = engine.ErrUnavailable
	default:
		r.err = fmt.Errorf("mpv: %s", msg.Error) //nolint:err113
	}

	ch <- r
}

func (c *Client) dispatchEvent(msg message) {
	if msg.Event != "property-change" {
		return
	}

	var flag bool
	if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &flag) != nil {
		return
	}

	var ev engine.Event

	switch msg.ID {
	case observeEOF:
		if !flag {
			return
		}

		ev = engine.Event{Kind: engine.EventEnded}
	case observePause:
		ev = engine.Event{Kind: engine.EventResumed}
		if flag {
			ev.Kind = engine.EventPaused
		}
	default:
		return
	}

	select {
	case c.events <- ev:
	default:
		c.log.Warn().Stringer("event", ev.Kind).Msg("event dropped, consumer too slow")
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[int64]chan reply)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- reply{err: engine.ErrClosed}
	}

	close(c.events)
	close(c.done)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64) //nolint:mnd
}

var _ engine.Engine = (*Client)(nil)
