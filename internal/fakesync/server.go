// Package fakesync provides a fake Syncano backend for testing purposes.
//
// One Server serves the REST API and the sync server over WebSocket on an
// HTTP listener, and the sync server over raw TCP on a second listener.
// All of them share an in-memory Store, so a data object created over REST
// is visible over TCP and produces notifications for sync sessions
// subscribed to its project or collection.
//
// The REST routes use gorilla/mux; WebSocket upgrades are handled by the
// `gws` library.
//
// Failures can be injected per method with Fail, and every sync socket can
// be dropped with DropConnections to exercise reconnects.
package fakesync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/lxzan/gws"

	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/connection/tcp"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/marshal"
)

// SyncPath is where WebSocket upgrades are accepted.
const SyncPath = "/sync"

// Transports recorded in Call.
const (
	TransportHTTP = "http"
	TransportTCP  = "tcp"
	TransportWS   = "ws"
)

// Call is a method call received by the Server.
type Call struct {
	Transport string
	Method    string
	// RequestID is the X-Request-ID header of REST calls.
	RequestID string
}

// Server is a fake Syncano backend.
type Server struct {
	// Store holds the data served.
	Store *Store

	apiKey string

	mu       sync.RWMutex
	sessions map[string]*Session
	peers    map[*peer]struct{}
	failures map[string]string
	calls    []Call

	json codec.Codec
	cbor codec.Codec

	router       *mux.Router
	upgrader     *gws.Upgrader
	httpServer   *http.Server
	httpListener net.Listener
	tcpListener  net.Listener
}

// NewServer creates a fake backend accepting apiKey. An empty apiKey
// accepts any key.
func NewServer(apiKey string) *Server {
	s := &Server{
		Store:    NewStore(),
		apiKey:   apiKey,
		sessions: make(map[string]*Session),
		peers:    make(map[*peer]struct{}),
		failures: make(map[string]string),
		json:     marshal.JSONCodec{},
		cbor:     marshal.NewCBOR(),
	}
	s.Store.SetNotify(s.publish)

	s.upgrader = gws.NewUpgrader(&wsHandler{server: s}, &gws.ServerOption{
		SubProtocols: []string{marshal.JSONName, marshal.CBORName},
	})

	r := mux.NewRouter()
	r.HandleFunc("/api/{method}", s.handleREST).Methods(http.MethodPost)
	r.HandleFunc(SyncPath, s.handleUpgrade).Methods(http.MethodGet)
	s.router = r

	return s
}

// Handler returns the HTTP handler serving REST and WebSocket, for use
// with net/http/httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on random local ports.
func (s *Server) Start() error {
	var lc net.ListenConfig

	httpListener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	tcpListener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		_ = httpListener.Close()
		return err
	}
	s.httpListener = httpListener
	s.tcpListener = tcpListener

	s.httpServer = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("fakesync: http server error: %v", err)
		}
	}()
	go s.acceptTCP()

	return nil
}

// Stop closes the listeners and every open connection.
func (s *Server) Stop() error {
	var errs []error
	if s.tcpListener != nil {
		if err := s.tcpListener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Close())
	}
	s.DropConnections()
	return errors.Join(errs...)
}

// HTTPURL is the REST endpoint.
func (s *Server) HTTPURL() string {
	return "http://" + s.httpListener.Addr().String()
}

// WSURL is the WebSocket sync endpoint.
func (s *Server) WSURL() string {
	return "ws://" + s.httpListener.Addr().String()
}

// TCPURL is the raw TCP sync endpoint.
func (s *Server) TCPURL() string {
	return "tcp://" + s.tcpListener.Addr().String()
}

// Fail makes every later call of method fail with message.
func (s *Server) Fail(method, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = message
}

// ClearFailures removes failures injected with Fail.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]string)
}

func (s *Server) failure(method string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.failures[method]
	return msg, ok
}

// Calls returns every call received so far, in order.
func (s *Server) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts calls of method.
func (s *Server) CallCount(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (s *Server) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *Server) authorized(key string) bool {
	return s.apiKey == "" || key == s.apiKey
}

// REST

type envelope struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func (s *Server) handleREST(w http.ResponseWriter, r *http.Request) {
	method := mux.Vars(r)["method"]
	s.record(Call{Transport: TransportHTTP, Method: method, RequestID: r.Header.Get("X-Request-ID")})

	if !s.authorized(r.Header.Get("X-API-KEY")) {
		s.writeREST(w, http.StatusUnauthorized, envelope{Result: constants.ResultNOK, Error: "Invalid API key."})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeREST(w, http.StatusBadRequest, envelope{Result: constants.ResultNOK, Error: err.Error()})
		return
	}

	if strings.HasPrefix(method, "subscription.") || method == connection.NotificationSend {
		s.writeREST(w, http.StatusOK, envelope{Result: constants.ResultNOK, Error: "Method is only available on sync connections."})
		return
	}
	if msg, ok := s.failure(method); ok {
		s.writeREST(w, http.StatusOK, envelope{Result: constants.ResultNOK, Error: msg})
		return
	}

	out, err := s.Store.Call(method, func(dst any) error {
		if len(body) == 0 {
			return nil
		}
		return s.json.Unmarshal(body, dst)
	})
	switch {
	case errors.Is(err, errUnknownMethod):
		s.writeREST(w, http.StatusNotFound, envelope{Result: constants.ResultNOK, Error: err.Error()})
	case err != nil:
		s.writeREST(w, http.StatusOK, envelope{Result: constants.ResultNOK, Error: err.Error()})
	default:
		s.writeREST(w, http.StatusOK, envelope{Result: constants.ResultOK, Data: out})
	}
}

func (s *Server) writeREST(w http.ResponseWriter, status int, e envelope) {
	data, err := s.json.Marshal(e)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Printf("fakesync: writing reply: %v", err)
	}
}

// WebSocket

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	c := s.json
	if strings.TrimSpace(r.Header.Get("Sec-WebSocket-Protocol")) == marshal.CBORName {
		c = s.cbor
	}

	socket, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		log.Printf("fakesync: upgrade failed: %v", err)
		return
	}

	opcode := gws.OpcodeText
	if c.Binary() {
		opcode = gws.OpcodeBinary
	}
	p := newPeer(TransportWS, c, func(data []byte) error {
		return socket.WriteMessage(opcode, data)
	}, func() error {
		return socket.NetConn().Close()
	})
	socket.Session().Store("peer", p)
	s.attach(p)

	go socket.ReadLoop()
}

type wsHandler struct {
	gws.BuiltinEventHandler
	server *Server
}

func peerOf(socket *gws.Conn) *peer {
	v, ok := socket.Session().Load("peer")
	if !ok {
		return nil
	}
	p, _ := v.(*peer)
	return p
}

func (h *wsHandler) OnPing(socket *gws.Conn, payload []byte) {
	if err := socket.WritePong(payload); err != nil {
		log.Printf("fakesync: writing pong: %v", err)
	}
}

func (h *wsHandler) OnClose(socket *gws.Conn, err error) {
	if p := peerOf(socket); p != nil {
		h.server.detach(p)
	}
}

func (h *wsHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	if p := peerOf(socket); p != nil {
		h.server.handleFrame(p, message.Bytes())
	}
}

// TCP

func (s *Server) acceptTCP() {
	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Printf("fakesync: accept failed: %v", err)
			}
			return
		}
		go s.serveTCP(conn)
	}
}

// serveTCP sniffs the codec from the first byte: JSON frames start with '{',
// length prefixed CBOR frames with a zero byte.
func (s *Server) serveTCP(conn net.Conn) {
	r := bufio.NewReader(conn)
	first, err := r.Peek(1)
	if err != nil {
		_ = conn.Close()
		return
	}

	c := s.json
	if first[0] != '{' {
		c = s.cbor
	}
	framer := tcp.FramerFor(c.Binary())

	p := newPeer(TransportTCP, c, func(data []byte) error {
		return framer.WriteFrame(conn, data)
	}, conn.Close)
	s.attach(p)
	defer s.detach(p)

	for {
		data, err := framer.ReadFrame(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("fakesync: reading tcp frame: %v", err)
			}
			_ = conn.Close()
			return
		}
		s.handleFrame(p, data)
	}
}

// DropConnections closes every sync socket, as a network failure would.
// Sessions survive and can be resumed.
func (s *Server) DropConnections() {
	s.mu.RLock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	for _, p := range peers {
		if err := p.close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("fakesync: closing %s connection: %v", p.transport, err)
		}
	}
}

// Connections counts open sync sockets.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

func (s *Server) String() string {
	return fmt.Sprintf("fakesync(%s, %s)", s.httpListener.Addr(), s.tcpListener.Addr())
}
