// Package busapi implements the control bus: a small line-oriented TCP API
// for inspecting and driving the manager (C7) and its composite devices,
// adapted from the teacher's internal/server/api USB-IP management API to
// the manager/composite/target domain (spec §6).
package busapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/inputmux/inputmuxd/internal/busapi/apierror"
	"github.com/inputmux/inputmuxd/internal/server/api/auth"
	"github.com/inputmux/inputmuxd/pkg/manager"
)

// Server implements the control bus's TCP API.
type Server struct {
	mgr    *manager.Manager
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config *ServerConfig
}

// New creates a control bus server bound to mgr.
func New(mgr *manager.Manager, addr string, config ServerConfig, logger *slog.Logger) *Server {
	cfg := config
	s := &Server{
		mgr:    mgr,
		addr:   addr,
		logger: logger,
		config: &cfg,
	}
	s.router = NewRouter()
	registerHandlers(s.router, mgr)
	return s
}

// Router returns the router so callers can register additional handlers.
func (s *Server) Router() *Router { return s.router }

// Addr returns the actual address the server is listening on. Before Start
// is called it returns the configured address.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Start listens on the configured address and serves incoming commands.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	s.logger.Info("control bus listening", "addr", s.addr)
	go s.serve()
	return nil
}

// Close stops the server.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				s.logger.Info("control bus stopped")
				return
			}
			s.logger.Info("control bus accept error", "error", err)
			return
		}
		if tcpConn, ok := c.(*net.TCPConn); ok {
			if err := tcpConn.SetNoDelay(true); err != nil {
				s.logger.Warn("failed to set TCP_NODELAY", "error", err)
			}
		}
		go s.handleConn(c)
	}
}

func (s *Server) writeError(w io.Writer, err error) {
	apiErr := apierror.WrapError(err)
	b, _ := json.Marshal(apiErr)
	fmt.Fprintf(w, "%s\n", string(b))
}

func (s *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)
	w := conn

	isAuth, err := auth.IsAuthHandshake(r)
	if err != nil {
		connLogger.Error("bus handshake check", "error", err)
	}

	if !isAuth && s.requiresAuth(conn.RemoteAddr()) {
		connLogger.Error("authentication required")
		s.writeError(w, apierror.ErrUnauthorized("authentication required"))
		return
	}

	if isAuth {
		connLogger.Debug("detected auth attempt")
		key, err := auth.DeriveKey(s.config.Password)
		if err != nil {
			connLogger.Error("derive key failed", "error", err)
			return
		}
		clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, w, key, false)
		if err != nil {
			connLogger.Error("auth handshake failed", "error", err)
			return
		}
		sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
		secConn, err := auth.WrapConn(conn, sessionKey)
		if err != nil {
			connLogger.Error("wrap secure conn failed", "error", err)
			return
		}
		conn = secConn
		r = bufio.NewReader(conn)
		w = conn
		connLogger.Debug("authenticated connection established")
	} else {
		connLogger.Debug("continuing unauthenticated connection")
	}

	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("bus incomplete request (no null terminator)")
		} else {
			connLogger.Error("read bus data", "error", err)
		}
		return
	}
	reqData = strings.TrimSuffix(reqData, "\x00")
	if reqData == "" {
		connLogger.Error("bus empty command")
		s.writeError(w, apierror.ErrBadRequest("empty request"))
		return
	}

	wsRegex := regexp.MustCompile(`\s`)
	loc := wsRegex.FindStringIndex(reqData)
	var path, payload string
	if loc != nil {
		path = reqData[:loc[0]]
		payload = reqData[loc[1]:]
	} else {
		path = reqData
	}
	if path == "" {
		connLogger.Error("bus empty path")
		s.writeError(w, apierror.ErrBadRequest("empty path"))
		return
	}
	path = strings.ToLower(path)
	connLogger.Info("bus cmd", "path", path)

	if h, params := s.router.Match(path); h != nil {
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("bus handler error", "path", path, "error", err)
			s.writeError(w, err)
			return
		}
		connLogger.Debug("bus handler success", "path", path)
		s.writeOK(w, res.JSON)
		return
	}
	if sh, params := s.router.MatchStream(path); sh != nil {
		connLogger.Info("bus stream begin", "path", path)
		if err := sh(conn, params, connLogger); err != nil {
			connLogger.Error("bus stream handler error", "path", path, "error", err)
		}
		connLogger.Info("bus stream end", "path", path)
		return
	}
	connLogger.Error("bus unknown path", "path", path)
	s.writeError(w, apierror.ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
}

func (s *Server) isLocalHostClient(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return false
	}
	switch host {
	case "localhost", "127.0.0.1", "[::1]", "::1":
		return true
	}
	return false
}

func (s *Server) requiresAuth(addr net.Addr) bool {
	if s.isLocalHostClient(addr) {
		return s.config.RequireLocalHostAuth
	}
	return true
}
