package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"vigil/internal/daemon"
	"vigil/internal/logging"
	"vigil/internal/task"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. The
// shutdown callback, when non-nil, runs after a Stop request so the
// hosting process can exit once the daemon has halted.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName("Vigil", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
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
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
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
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun vigil stop"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	if s.shutdown != nil {
		s.shutdown()
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.TaskID = status.Agent.TaskID
	resp.RoomID = status.Agent.RoomID
	resp.State = string(status.Agent.State)
	resp.WatchedMinutes = status.Agent.WatchedMinutes
	resp.TotalMinutes = status.Agent.TotalMinutes
	resp.Percent = status.Agent.Percent
	resp.Attempts = AttemptStats{
		Total:       status.Agent.Attempts.Total,
		Active:      status.Agent.Attempts.Active,
		Completed:   status.Agent.Attempts.Completed,
		Failed:      status.Agent.Attempts.Failed,
		Interrupted: status.Agent.Attempts.Interrupted,
	}
	resp.JournalPath = status.JournalPath
	resp.LockPath = status.LockFilePath
	resp.LogPath = status.LogPath
	return nil
}

func (s *service) Sessions(req SessionListRequest, resp *SessionListResponse) error {
	statuses := make([]task.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, err := task.ParseStatus(raw)
		if err != nil {
			continue
		}
		statuses = append(statuses, parsed)
	}
	attempts, err := s.daemon.Sessions(s.ctx, statuses, req.Limit)
	if err != nil {
		return err
	}
	resp.Sessions = make([]Session, 0, len(attempts))
	for _, attempt := range attempts {
		if attempt == nil {
			continue
		}
		resp.Sessions = append(resp.Sessions, FromAttempt(attempt))
	}
	return nil
}

func (s *service) ClearSessions(_ SessionClearRequest, resp *SessionClearResponse) error {
	s.logger.Debug("session clear requested")
	removed, err := s.daemon.ClearSessions(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("sessions cleared",
		logging.String(logging.FieldEventType, "session_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
