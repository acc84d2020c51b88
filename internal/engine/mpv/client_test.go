package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/tvplayer/internal/engine"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

// fakeMPV answers IPC requests the way mpv does and records every command.
type fakeMPV struct {
	t        *testing.T
	listener net.Listener

	mu       sync.Mutex
	conn     net.Conn
	commands []json.RawMessage
	props    map[string]any
}

func startFakeMPV(t *testing.T) (*fakeMPV, string) {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "mpv.sock")

	l, err := net.Listen("unix", socket)
	require.NoError(t, err)

	f := &fakeMPV{
		t:        t,
		listener: l,
		props: map[string]any{
			"time-pos": 12.5,
			"duration": 600.0,
			"pause":    false,
		},
	}

	go f.serve()

	t.Cleanup(func() { _ = l.Close() })

	return f, socket
}

func (f *fakeMPV) serve() {
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req struct {
			Command   json.RawMessage `json:"command"`
			RequestID int64           `json:"request_id"`
		}

		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}

		f.mu.Lock()
		f.commands = append(f.commands, req.Command)
		f.mu.Unlock()

		if resp := f.answer(req.Command, req.RequestID); resp != nil {
			f.send(resp)
		}
	}
}

func (f *fakeMPV) answer(raw json.RawMessage, id int64) map[string]any {
	resp := map[string]any{"request_id": id, "error": "success"}

	var positional []any
	if json.Unmarshal(raw, &positional) != nil || len(positional) == 0 {
		return resp
	}

	name, _ := positional[0].(string)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch name {
	case "get_property":
		prop, _ := positional[1].(string)

		v, ok := f.props[prop]
		if !ok {
			resp["error"] = "property unavailable"
			return resp
		}

		resp["data"] = v
	case "set_property":
		prop, _ := positional[1].(string)
		f.props[prop] = positional[2]
	case "fail":
		resp["error"] = "invalid parameter"
	case "hang":
		return nil
	}

	return resp
}

func (f *fakeMPV) send(v any) {
	data, err := json.Marshal(v)
	require.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()

	_, _ = f.conn.Write(append(data, '\n'))
}

func (f *fakeMPV) lastCommand() json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.commands[len(f.commands)-1]
}

func dialFake(t *testing.T) (*Client, *fakeMPV) {
	t.Helper()

	fake, socket := startFakeMPV(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, socket)
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	return c, fake
}

func TestDialObservesProperties(t *testing.T) {
	_, fake := dialFake(t)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	require.Len(t, fake.commands, 2)
	assert.JSONEq(t, `["observe_property",1,"eof-reached"]`, string(fake.commands[0]))
	assert.JSONEq(t, `["observe_property",2,"pause"]`, string(fake.commands[1]))
}

func TestProperties(t *testing.T) {
	c, fake := dialFake(t)
	ctx := context.Background()

	pos, err := c.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12500*time.Millisecond, pos)

	dur, err := c.Duration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, dur)

	require.NoError(t, c.Pause(ctx))

	paused, err := c.Paused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	fake.mu.Lock()
	delete(fake.props, "time-pos")
	fake.mu.Unlock()

	_, err = c.Position(ctx)
	require.ErrorIs(t, err, engine.ErrUnavailable)
}

func TestLoadAndSeek(t *testing.T) {
	c, fake := dialFake(t)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx, "/srv/media/a.mkv", 42*time.Second))

	fake.mu.Lock()
	cmds := fake.commands[2:]
	fake.mu.Unlock()

	require.Len(t, cmds, 3)
	assert.JSONEq(t, `["set_property","start","42.000"]`, string(cmds[0]))
	assert.JSONEq(t, `["loadfile","/srv/media/a.mkv","replace"]`, string(cmds[1]))
	assert.JSONEq(t, `["set_property","pause",false]`, string(cmds[2]))

	require.NoError(t, c.Seek(ctx, 90*time.Second))
	assert.JSONEq(t, `["seek","90.000","absolute+exact"]`, string(fake.lastCommand()))
}

func TestCommandError(t *testing.T) {
	c, _ := dialFake(t)

	_, err := c.command(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid parameter")
}

func TestOverlayCommands(t *testing.T) {
	c, fake := dialFake(t)

	require.NoError(t, c.DrawOverlay(overlay.ID, overlay.Rect{X: 1, Y: 2, W: 3, H: 4}, 0xFF000000))

	var drawn map[string]any
	require.NoError(t, json.Unmarshal(fake.lastCommand(), &drawn))
	assert.Equal(t, "osd-overlay", drawn["name"])
	assert.Equal(t, "ass-events", drawn["format"])
	assert.InDelta(t, overlay.CanvasWidth, drawn["res_x"], 0)
	assert.Contains(t, drawn["data"], `m 1 2 l 4 2 l 4 6 l 1 6`)

	require.NoError(t, c.ClearOverlay(overlay.ID))
	require.NoError(t, json.Unmarshal(fake.lastCommand(), &drawn))
	assert.Equal(t, "none", drawn["format"])
}

func TestEvents(t *testing.T) {
	c, fake := dialFake(t)

	fake.send(map[string]any{"event": "property-change", "id": 2, "name": "pause", "data": true})
	fake.send(map[string]any{"event": "property-change", "id": 1, "name": "eof-reached", "data": false})
	fake.send(map[string]any{"event": "playback-restart"})
	fake.send(map[string]any{"event": "property-change", "id": 1, "name": "eof-reached", "data": true})

	want := []engine.EventKind{engine.EventPaused, engine.EventEnded}

	for _, kind := range want {
		select {
		case ev := <-c.Events():
			assert.Equal(t, kind, ev.Kind)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestCloseFailsPending(t *testing.T) {
	c, _ := dialFake(t)

	require.NoError(t, c.Close())

	_, ok := <-c.Events()
	assert.False(t, ok, "events channel closes with the connection")

	_, err := c.Position(context.Background())
	require.ErrorIs(t, err, engine.ErrClosed)

	require.NoError(t, c.Close())
}

func TestCommandContextCancelled(t *testing.T) {
	c, _ := dialFake(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.command(ctx, "get_property", "time-pos")
	require.Error(t, err)
}

func TestCommandDeadlineOnSilentPlayer(t *testing.T) {
	c, _ := dialFake(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.command(ctx, "hang")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	c.mu.Lock()
	assert.Empty(t, c.pending, "the abandoned request is forgotten")
	c.mu.Unlock()

	pos, err := c.Position(context.Background())
	require.NoError(t, err, "the connection stays usable")
	assert.Equal(t, 12500*time.Millisecond, pos)
}

func TestSecondsFormat(t *testing.T) {
	assert.Equal(t, "0.000", seconds(0))
	assert.Equal(t, "1.250", seconds(1250*time.Millisecond))
}
