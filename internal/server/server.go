package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/tradeguard/server/internal/chatfilter"
	"github.com/lawnchairsociety/tradeguard/server/internal/config"
	"github.com/lawnchairsociety/tradeguard/server/internal/game"
	"github.com/lawnchairsociety/tradeguard/server/internal/logger"
	"github.com/lawnchairsociety/tradeguard/server/internal/protocol"
)

// Server accepts client connections, feeds parsed commands into the game
// world, and drives the fixed-rate simulation tick. All game state lives in
// the world; the server owns only connection plumbing.
type Server struct {
	cfg          *config.ServerConfig
	world        *game.World
	registry     *Registry
	listener     net.Listener
	shutdown     chan struct{}
	shutdownOnce sync.Once
	StartTime    time.Time
	connLimiter  *ConnLimiter
	chatFilter   *chatfilter.ChatFilter
}

// NewServer creates a server for the given world. The registry is wired in
// as the world's event sink so game events reach connected clients.
func NewServer(cfg *config.ServerConfig, world *game.World) *Server {
	registry := NewRegistry()
	world.SetSink(registry)

	return &Server{
		cfg:         cfg,
		world:       world,
		registry:    registry,
		shutdown:    make(chan struct{}),
		StartTime:   time.Now(),
		connLimiter: NewConnLimiter(cfg.Connections),
	}
}

// SetChatFilter sets the chat filter for the server.
func (s *Server) SetChatFilter(cf *chatfilter.ChatFilter) {
	s.chatFilter = cf
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// GetUptime returns the server uptime as a duration.
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.StartTime)
}

// Start listens on the configured TCP address and blocks accepting
// connections until Shutdown is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	logger.Info("Server listening", "address", s.cfg.Listen)

	// Start the simulation ticker
	go s.startSimulationTicker()

	for {
		select {
		case <-s.shutdown:
			return nil
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				// Check if we're shutting down
				select {
				case <-s.shutdown:
					return nil
				default:
					logger.Error("Error accepting connection", "error", err)
					continue
				}
			}

			go s.handleConnection(conn)
		}
	}
}

// startSimulationTicker advances the world at the fixed tick rate.
// Every connected client sees state changes only through the events this
// loop (and command handlers) emit.
func (s *Server) startSimulationTicker() {
	ticker := time.NewTicker(s.world.Tuning().TickPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case now := <-ticker.C:
			s.world.Step(now)
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	ip := extractIP(remoteAddr)

	if !s.connLimiter.TryAcquire(ip) {
		logger.Warning("Connection rejected - limit exceeded",
			"remote_addr", remoteAddr,
			"ip", ip)
		conn.Close()
		return
	}

	defer func() {
		s.connLimiter.Release(ip)
		conn.Close()
	}()

	client := NewTCPClient(conn)
	s.handleClient(client)
}

// handleClient is the shared client handling logic for both TCP and
// WebSocket connections. It runs the read loop until the client exits,
// disconnects, or the server shuts down.
func (s *Server) handleClient(client Client) {
	logger.Info("Client connected", "remote_addr", client.RemoteAddr())

	session := NewSession(client)
	s.registry.Add(session)

	defer func() {
		s.registry.Remove(session)
		if id := session.PlayerID(); id != "" {
			s.world.Leave(id)
			logger.Info("Player disconnected",
				"player", id,
				"remote_addr", client.RemoteAddr())
		} else {
			logger.Info("Client disconnected", "remote_addr", client.RemoteAddr())
		}
	}()

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		line, err := client.ReadLine()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Debug("Read failed",
					"remote_addr", client.RemoteAddr(),
					"error", err)
			}
			return
		}
		if line == "" {
			continue
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			logger.Debug("Dropping bad line",
				"remote_addr", client.RemoteAddr(),
				"line", line,
				"error", err)
			continue
		}

		if s.dispatch(session, cmd) {
			return
		}
	}
}

// dispatch routes one parsed command to the world. Returns true when the
// session should end.
//
// Until a session has joined, every command except JOIN is discarded.
func (s *Server) dispatch(session *Session, cmd protocol.Command) bool {
	playerID := session.PlayerID()

	if playerID == "" {
		if cmd.Kind != protocol.CmdJoin {
			logger.Debug("Discarding command before join",
				"remote_addr", session.RemoteAddr())
			return false
		}
		id := s.world.Join(cmd.Username, session)
		session.bindPlayer(id)
		s.registry.BindPlayer(id, session)
		logger.Info("Player joined",
			"player", id,
			"username", cmd.Username,
			"remote_addr", session.RemoteAddr())
		return false
	}

	switch cmd.Kind {
	case protocol.CmdJoin:
		// Already joined; a second JOIN on the same connection is a client
		// bug, not a reason to drop it.
		logger.Debug("Ignoring duplicate JOIN", "player", playerID)
	case protocol.CmdReady:
		s.world.SetReady(playerID)
	case protocol.CmdMove:
		s.world.Move(playerID, cmd.Position, cmd.Rotation)
	case protocol.CmdAttack:
		s.world.Attack(playerID, cmd.EnemyID)
	case protocol.CmdPlayerAnim:
		// Pure relay; the world does not track animation state.
		s.registry.BroadcastExcept(protocol.PlayerAnim(playerID, cmd.Trigger), session)
	case protocol.CmdUseItem:
		s.world.UseItem(playerID, cmd.Item)
	case protocol.CmdChat:
		s.handleChat(session, playerID, cmd.Text)
	case protocol.CmdBuy:
		s.world.Shop(playerID, game.ShopBuy, cmd.Item)
	case protocol.CmdSell:
		s.world.Shop(playerID, game.ShopSell, cmd.Item)
	case protocol.CmdMerchantMoveRequest:
		// The escort steers itself; the request is acknowledged by the
		// regular MERCHANT_POS stream.
		logger.Debug("Merchant move request ignored", "player", playerID)
	case protocol.CmdExit:
		return true
	}

	return false
}

// handleChat filters and relays one chat message. Chat always goes through
// the audit log, even when the filter blocks delivery.
func (s *Server) handleChat(session *Session, playerID, text string) {
	filtered := text
	if s.chatFilter != nil {
		result := s.chatFilter.Check(text)
		if result.Violated {
			logger.Warning("Chat filter violation",
				"player", playerID,
				"matched_words", strings.Join(result.MatchedWords, ","))
			if s.chatFilter.IsBlockMode() {
				logger.Always("CHAT BLOCKED", "player", playerID, "message", text)
				return
			}
		}
		filtered = result.Filtered
	}

	logger.Always("CHAT", "player", playerID, "message", filtered)
	s.registry.Broadcast(protocol.Chat(playerID, filtered))
}

// StartWebSocket starts the WebSocket bridge on the given address.
func (s *Server) StartWebSocket(address string) error {
	http.HandleFunc("/ws", s.handleWebSocketUpgrade)

	logger.Info("WebSocket server listening", "address", address)
	return http.ListenAndServe(address, nil)
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	// Get the real client IP (supports X-Forwarded-For from reverse proxies)
	clientIP := getRealIP(r)

	// Check connection limits before upgrading
	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		// Release the connection slot since upgrade failed
		s.connLimiter.Release(clientIP)
		return
	}

	if s.cfg.WebSocket.MaxMessageSize > 0 {
		wsConn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)
	}

	go s.handleWebSocketConnection(wsConn, clientIP)
}

// handleWebSocketConnection handles a WebSocket client connection.
func (s *Server) handleWebSocketConnection(wsConn *websocket.Conn, clientIP string) {
	defer func() {
		s.connLimiter.Release(clientIP)
		wsConn.Close()
	}()

	client := NewWebSocketClient(wsConn)
	s.handleClient(client)
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
		// The first one is the original client
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			clientIP := strings.TrimSpace(ips[0])
			if clientIP != "" {
				return clientIP
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return extractIP(r.RemoteAddr)
}

// Shutdown stops the listener, the simulation ticker, and disconnects all
// clients. Safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			s.listener.Close()
		}

		s.registry.mu.Lock()
		for session := range s.registry.sessions {
			session.Close()
		}
		s.registry.mu.Unlock()

		logger.Info("Server shutdown complete")
	})
}
