package fakesync

import (
	"log"
	"sort"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

// Session is a sync session. It outlives its socket so a client can resume
// it after a reconnect by sending its UUID in the auth frame.
type Session struct {
	UUID string

	// subscriptions by routing key; guarded by Server.mu.
	subscriptions map[string]models.Subscription
	peer          *peer
}

// peer is one open sync socket.
type peer struct {
	transport string
	codec     codec.Codec

	writeLock sync.Mutex
	write     func([]byte) error
	closeFn   func() error
	closeOnce sync.Once
	closeErr  error

	// session is guarded by Server.mu.
	session *Session
}

func newPeer(transport string, c codec.Codec, write func([]byte) error, closeFn func() error) *peer {
	return &peer{transport: transport, codec: c, write: write, closeFn: closeFn}
}

func (p *peer) send(v any) error {
	data, err := p.codec.Marshal(v)
	if err != nil {
		return err
	}
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	return p.write(data)
}

func (p *peer) close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.closeFn()
	})
	return p.closeErr
}

func (s *Server) attach(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p] = struct{}{}
}

// detach forgets p. Subscriptions scoped to the connection end with it.
func (s *Server) detach(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p)

	sess := p.session
	if sess == nil || sess.peer != p {
		return
	}
	sess.peer = nil
	for key, sub := range sess.subscriptions {
		if sub.Context == "" || sub.Context == models.ContextConnection {
			delete(sess.subscriptions, key)
		}
	}
}

// Session returns the session with uuid, or nil.
func (s *Server) Session(uuid string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[uuid]
}

// Subscriptions returns the routing keys subscribed by the session.
func (s *Server) Subscriptions(uuid string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[uuid]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(sess.subscriptions))
	for key := range sess.subscriptions {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// inbound is the union of frames a client sends.
type inbound struct {
	Type      string `json:"type"`
	APIKey    string `json:"api_key,omitempty"`
	Instance  string `json:"instance,omitempty"`
	UUID      string `json:"uuid,omitempty"`
	Method    string `json:"method,omitempty"`
	Params    any    `json:"params,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
}

func (s *Server) handleFrame(p *peer, data []byte) {
	var in inbound
	if err := p.codec.Unmarshal(data, &in); err != nil {
		s.reply(p, connection.Frame{Type: connection.FrameError, Result: constants.ResultNOK, Error: "Malformed frame."})
		return
	}

	switch in.Type {
	case connection.FramePing:
		s.reply(p, connection.PingRequest{Type: connection.FramePong})
	case connection.FrameAuth:
		s.authenticate(p, in)
	case connection.FrameCall:
		s.call(p, in)
	default:
		s.reply(p, connection.Frame{
			Type:      connection.FrameError,
			MessageID: in.MessageID,
			Result:    constants.ResultNOK,
			Error:     "Unknown frame type.",
		})
	}
}

func (s *Server) reply(p *peer, v any) {
	if err := p.send(v); err != nil {
		log.Printf("fakesync: writing %s frame: %v", p.transport, err)
	}
}

func (s *Server) authenticate(p *peer, in inbound) {
	if !s.authorized(in.APIKey) {
		s.reply(p, connection.Frame{Type: connection.FrameAuth, Result: constants.ResultNOK, Error: "Invalid API key."})
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[in.UUID]
	if !ok {
		sess = &Session{
			UUID:          uuid.Must(uuid.NewV4()).String(),
			subscriptions: make(map[string]models.Subscription),
		}
		s.sessions[sess.UUID] = sess
	}
	sess.peer = p
	p.session = sess
	s.mu.Unlock()

	s.reply(p, connection.Frame{Type: connection.FrameAuth, Result: constants.ResultOK, UUID: sess.UUID})
}

func (s *Server) call(p *peer, in inbound) {
	s.record(Call{Transport: p.transport, Method: in.Method})

	out, err := s.dispatch(p, in)
	res := connection.Frame{Type: connection.FrameCallResponse, MessageID: in.MessageID, Result: constants.ResultOK, Data: out}
	if err != nil {
		res.Result, res.Error, res.Data = constants.ResultNOK, err.Error(), nil
	}
	s.reply(p, res)
}

func (s *Server) dispatch(p *peer, in inbound) (any, error) {
	s.mu.RLock()
	sess := p.session
	s.mu.RUnlock()
	if sess == nil {
		return nil, fail("Not authenticated.")
	}
	if msg, ok := s.failure(in.Method); ok {
		return nil, fail("%s", msg)
	}

	decode := func(dst any) error {
		if in.Params == nil {
			return nil
		}
		return marshal.Convert(p.codec, in.Params, dst)
	}

	switch in.Method {
	case connection.SubscribeProject:
		var req models.SubscribeProjectRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		if !s.Store.ProjectExists(req.ProjectID) {
			return nil, fail("Project not found.")
		}
		return s.subscribe(sess, models.Subscription{Type: "project", ID: req.ProjectID, Context: req.Context}), nil

	case connection.SubscribeCollection:
		var req models.SubscribeCollectionRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		id, err := s.Store.CollectionID(req.ProjectID, req.CollectionRef)
		if err != nil {
			return nil, err
		}
		return s.subscribe(sess, models.Subscription{Type: "collection", ID: id, Context: req.Context}), nil

	case connection.UnsubscribeProject:
		var req models.ProjectRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return nil, s.unsubscribe(sess, models.ProjectKey(req.ProjectID))

	case connection.UnsubscribeCollection:
		var req models.CollectionRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		id, err := s.Store.CollectionID(req.ProjectID, req.CollectionRef)
		if err != nil {
			return nil, err
		}
		return nil, s.unsubscribe(sess, models.CollectionKey(id))

	case connection.SubscriptionGet:
		var req models.GetSubscriptionsRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return s.listSubscriptions(sess, req)

	case connection.NotificationSend:
		var req models.SendNotificationRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return nil, s.sendMessage(p, req)

	default:
		return s.Store.Call(in.Method, decode)
	}
}

func (s *Server) subscribe(sess *Session, sub models.Subscription) models.Subscription {
	if sub.Context == "" {
		sub.Context = models.ContextConnection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.subscriptions[sub.Key()] = sub
	return sub
}

func (s *Server) unsubscribe(sess *Session, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := sess.subscriptions[key]; !ok {
		return fail("Subscription not found.")
	}
	delete(sess.subscriptions, key)
	return nil
}

func (s *Server) listSubscriptions(current *Session, req models.GetSubscriptionsRequest) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := current
	if req.SessionID != "" {
		var ok bool
		if sess, ok = s.sessions[req.SessionID]; !ok {
			return nil, fail("Session not found.")
		}
	}

	out := make([]models.Subscription, 0, len(sess.subscriptions))
	for _, sub := range sess.subscriptions {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// sendMessage delivers a custom notification to one session, or to every
// other connection.
func (s *Server) sendMessage(from *peer, req models.SendNotificationRequest) error {
	n := models.Notification{Type: models.NotificationMessage, Object: "message", Data: req.Data}

	s.mu.RLock()
	var targets []*peer
	if req.UUID != "" {
		sess, ok := s.sessions[req.UUID]
		if !ok || sess.peer == nil {
			s.mu.RUnlock()
			return fail("Session not found.")
		}
		targets = append(targets, sess.peer)
	} else {
		for p := range s.peers {
			if p != from && p.session != nil {
				targets = append(targets, p)
			}
		}
	}
	s.mu.RUnlock()

	for _, p := range targets {
		s.reply(p, n)
	}
	return nil
}

// publish pushes a data change to every session subscribed to its project
// or collection.
func (s *Server) publish(n models.Notification) {
	keys := n.Keys()

	s.mu.RLock()
	var targets []*peer
	for _, sess := range s.sessions {
		if sess.peer == nil {
			continue
		}
		for _, key := range keys {
			if _, ok := sess.subscriptions[key]; ok {
				targets = append(targets, sess.peer)
				break
			}
		}
	}
	s.mu.RUnlock()

	for _, p := range targets {
		if err := p.send(n); err != nil {
			log.Printf("fakesync: publishing to %s: %v", p.transport, err)
		}
	}
}
