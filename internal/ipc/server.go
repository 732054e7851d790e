package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"stereowatch/internal/daemon"
	"stereowatch/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked after a Stop request so the owning process can exit; it may be nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, shutdown: shutdown, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Stereowatch", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			if !peerAllowed(conn) {
				s.logger.Warn("rejected IPC connection from foreign uid",
					logging.String(logging.FieldEventType, "ipc_peer_rejected"))
				_ = conn.Close()
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

// peerAllowed reports whether the connecting process runs as the daemon's
// own user.
func peerAllowed(conn net.Conn) bool {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return false
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return false
	}
	var (
		cred    *unix.Ucred
		credErr error
	)
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return false
	}
	if credErr != nil || cred == nil {
		return false
	}
	return int(cred.Uid) == os.Getuid()
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.EventDBPath = status.EventDBPath
	resp.LockPath = status.LockPath
	resp.Endpoints = make([]EndpointStatus, 0, len(status.Endpoints))
	for _, ep := range status.Endpoints {
		resp.Endpoints = append(resp.Endpoints, EndpointStatus{
			ID:            ep.Endpoint.ID,
			Name:          ep.Endpoint.Name,
			Connected:     ep.Endpoint.Connected,
			State:         ep.State.String(),
			FailureStreak: ep.FailureStreak,
		})
	}
	return nil
}

func (s *service) Apps(req AppsRequest, resp *AppsResponse) error {
	endpointID, apps, err := s.daemon.Apps(s.ctx, req.EndpointID)
	if err != nil {
		return err
	}
	resp.EndpointID = endpointID
	resp.Apps = make([]App, 0, len(apps))
	for _, app := range apps {
		resp.Apps = append(resp.Apps, App{
			PID:      app.PID,
			Name:     app.Name,
			Resolved: app.Resolved,
			Peak:     app.Peak,
		})
	}
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	records, err := s.daemon.Events(s.ctx, req.EndpointID, req.Limit)
	if err != nil {
		return err
	}
	resp.Events = make([]ModeEvent, 0, len(records))
	for _, rec := range records {
		ev := ModeEvent{
			ID:                    rec.ID,
			EndpointID:            rec.EndpointID,
			EndpointName:          rec.EndpointName,
			Previous:              rec.Previous,
			Current:               rec.Current,
			At:                    rec.At,
			AttributionIncomplete: rec.AttributionIncomplete,
		}
		for _, app := range rec.Sessions {
			ev.Apps = append(ev.Apps, App{
				PID:      app.PID,
				Name:     app.Name,
				Resolved: app.Resolved,
				Peak:     app.Peak,
			})
		}
		resp.Events = append(resp.Events, ev)
	}
	return nil
}

func (s *service) EventsClear(_ EventsClearRequest, resp *EventsClearResponse) error {
	s.log().Debug("event history clear requested")
	removed, err := s.daemon.ClearEvents(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("event history cleared",
		logging.String(logging.FieldEventType, "events_cleared"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	if s.shutdown != nil {
		s.shutdown()
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
