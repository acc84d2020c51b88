package mpv

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/engine"
)

const (
	socketWait    = 5 * time.Second
	socketPoll    = 50 * time.Millisecond
	quitGrace     = 3 * time.Second
	defaultBinary = "mpv"
)

// ErrSocketTimeout is returned when mpv does not open its IPC socket in time.
var ErrSocketTimeout = errors.New("mpv ipc socket did not appear")

// Process is an mpv child process plus the IPC client connected to it.
type Process struct {
	*Client

	cmd    *exec.Cmd
	socket string
	exited chan struct{}
}

// Launch starts mpv idle, waits for its IPC socket and connects to it.
func Launch(ctx context.Context, cfg config.Player) (*Process, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = defaultBinary
	}

	socket := cfg.SocketPath
	if socket == "" {
		socket = filepath.Join(os.TempDir(), "tvplayer-"+uuid.NewString()+".sock")
	}

	_ = os.Remove(socket)

	args := append([]string{
		"--idle=yes",
		"--keep-open=yes",
		"--force-window=yes",
		"--no-terminal",
		"--input-ipc-server=" + socket,
	}, cfg.Args...)

	// The process outlives the launching request, so it is not bound to ctx.
	cmd := exec.Command(binary, args...) //nolint:gosec,noctx
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting %s", binary)
	}

	p := &Process{cmd: cmd, socket: socket, exited: make(chan struct{})}

	go func() {
		err := cmd.Wait()
		log.Debug().Err(err).Int("pid", cmd.Process.Pid).Msg("mpv exited")
		close(p.exited)
	}()

	client, err := p.connect(ctx)
	if err != nil {
		p.kill()
		return nil, err
	}

	p.Client = client

	log.Info().Int("pid", cmd.Process.Pid).Str("socket", socket).Msg("mpv started")

	return p, nil
}

// Factory returns an engine.Factory launching mpv with cfg.
func Factory(cfg config.Player) engine.Factory {
	return func(ctx context.Context) (engine.Engine, error) {
		return Launch(ctx, cfg)
	}
}

func (p *Process) connect(ctx context.Context) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, socketWait)
	defer cancel()

	ticker := time.NewTicker(socketPoll)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(p.socket); err == nil {
			client, err := Dial(ctx, p.socket)
			if err == nil {
				return client, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ErrSocketTimeout
		case <-p.exited:
			return nil, errors.New("mpv exited before opening its ipc socket")
		case <-ticker.C:
		}
	}
}

// Close asks mpv to quit, kills it when it does not, and removes the socket.
func (p *Process) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	_, _ = p.command(ctx, "quit")
	cancel()

	_ = p.Client.Close()

	select {
	case <-p.exited:
	case <-time.After(quitGrace):
		p.kill()
	}

	_ = os.Remove(p.socket)

	return nil
}

func (p *Process) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}

	<-p.exited
}

var _ engine.Engine = (*Process)(nil)
