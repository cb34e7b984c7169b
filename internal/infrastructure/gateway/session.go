package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"ibsnap/internal/application"
	"ibsnap/internal/application/port"
)

const positionsPageSize = 100

type Config struct {
	BaseURL      string
	WsURL        string
	InsecureTLS  bool
	Timeout      time.Duration
	QualifyCache time.Duration
}

// Session is a BrokerageSession backed by a Client Portal gateway. REST
// calls serve positions, account values, contract search and history;
// quotes stream over the gateway websocket.
type Session struct {
	cfg    Config
	client *Client
	dialer *websocket.Dialer

	connected atomic.Bool

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	accounts []string
	subs     map[int64][]*subscription

	contracts *cache.Cache

	// pages fetched by Positions, consumed by the Portfolio call that
	// follows it in the same refresh
	pagesMu sync.Mutex
	pages   []positionItem
	pagesAt time.Time
}

func NewSession(cfg Config) *Session {
	if cfg.QualifyCache <= 0 {
		cfg.QualifyCache = time.Hour
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	if cfg.InsecureTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Session{
		cfg:       cfg,
		client:    NewClient(cfg.BaseURL, cfg.Timeout, cfg.InsecureTLS),
		dialer:    dialer,
		subs:      make(map[int64][]*subscription),
		contracts: cache.New(cfg.QualifyCache, 2*cfg.QualifyCache),
	}
}

// Connect checks the gateway's brokerage session, primes the account
// endpoints and opens the market data websocket.
func (s *Session) Connect(ctx context.Context) error {
	var st authStatus
	if err := s.client.get(ctx, "/iserver/auth/status", nil, &st); err != nil {
		return fmt.Errorf("%w: auth status: %v", application.ErrNotConnected, err)
	}
	if !st.Authenticated || !st.Connected {
		return fmt.Errorf("%w: gateway not authenticated (%s)", application.ErrNotConnected, st.Message)
	}

	var accts accountsResponse
	if err := s.client.get(ctx, "/iserver/accounts", nil, &accts); err != nil {
		return fmt.Errorf("%w: accounts: %v", application.ErrNotConnected, err)
	}
	// portfolio endpoints answer only after this call
	var portfolioAccts []portfolioAccount
	if err := s.client.get(ctx, "/portfolio/accounts", nil, &portfolioAccts); err != nil {
		return fmt.Errorf("%w: portfolio accounts: %v", application.ErrNotConnected, err)
	}

	var tk tickleResponse
	if err := s.client.post(ctx, "/tickle", nil, &tk); err != nil {
		return fmt.Errorf("%w: tickle: %v", application.ErrNotConnected, err)
	}

	conn, err := s.dial(ctx, tk.Session)
	if err != nil {
		return fmt.Errorf("%w: websocket: %v", application.ErrNotConnected, err)
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.accounts = accts.Accounts
	s.subs = make(map[int64][]*subscription)
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	s.connected.Store(true)
	go s.readLoop(conn)

	log.Info().Strs("accounts", accts.Accounts).Str("ws", s.cfg.WsURL).Msg("gateway session connected")
	return nil
}

func (s *Session) dial(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := s.dialer.DialContext(cctx, s.cfg.WsURL, nil)
	if err != nil {
		return nil, err
	}
	if sessionID != "" {
		if err := conn.WriteJSON(map[string]string{"session": sessionID}); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func (s *Session) IsConnected() bool { return s.connected.Load() }

// Disconnect closes the websocket. Calling it again, or before Connect, is a
// no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.subs = make(map[int64][]*subscription)
	s.mu.Unlock()

	s.connected.Store(false)
	if conn == nil {
		return nil
	}

	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()

	log.Info().Msg("gateway session disconnected")
	return conn.Close()
}

// KeepAlive tickles the gateway so the brokerage session does not time out.
// A tickle reporting a lost brokerage session marks the session offline.
func (s *Session) KeepAlive(ctx context.Context) error {
	var tk tickleResponse
	if err := s.client.post(ctx, "/tickle", nil, &tk); err != nil {
		return err
	}
	st := tk.Iserver.AuthStatus
	if !st.Authenticated || !st.Connected {
		s.markOffline("tickle reports brokerage session lost")
		return fmt.Errorf("%w: %s", application.ErrNotConnected, st.Message)
	}
	return nil
}

func (s *Session) markOffline(reason string) {
	if s.connected.Swap(false) {
		log.Warn().Str("reason", reason).Msg("gateway session offline")
	}
}

func (s *Session) writeText(msg string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return application.ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (s *Session) managedAccounts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.accounts...)
}

func (s *Session) requireConnected() error {
	if !s.IsConnected() {
		return application.ErrNotConnected
	}
	return nil
}

var errNoContract = errors.New("no matching contract")

var (
	_ port.BrokerageSession = (*Session)(nil)
	_ port.KeepAliver       = (*Session)(nil)
)
