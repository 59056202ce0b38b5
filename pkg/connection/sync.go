package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syncano/syncano.go/pkg/connection/retry"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

// FrameConn carries whole frames of a single sync session.
// ReadFrame is only called from one goroutine, WriteFrame is serialized by the caller.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// Dialer opens a fresh FrameConn to the sync server.
type Dialer func(ctx context.Context) (FrameConn, error)

// SyncConnection speaks the sync server protocol over any FrameConn.
//
// Calls are correlated with replies by message_id. A background goroutine
// reads frames, routes replies to waiting calls and notifications to
// subscribers, and sends keepalive pings. When the socket drops and a
// Retryer is set, the session is dialed again, re-authenticated with the
// previous session uuid and its subscriptions are restored.
type SyncConnection struct {
	BaseConnection

	dial Dialer

	// Timeout bounds each call and each dial plus auth handshake.
	// 0 leaves it to the caller's context.
	Timeout time.Duration
	// PingInterval is the keepalive period. 0 disables pings.
	PingInterval time.Duration
	// Retryer reconnects dropped sessions. nil disables reconnects.
	Retryer retry.Retryer

	connLock    sync.Mutex
	conn        FrameConn
	sessionUUID string

	nextID atomic.Int64

	subsLock      sync.Mutex
	subscriptions map[string]replay

	started   atomic.Bool
	closeOnce sync.Once
	closeChan chan struct{}
	done      chan struct{}

	closeErrLock sync.Mutex
	closeErr     error
}

// replay is a subscription call repeated after a reconnect.
type replay struct {
	method string
	params any
	// project and alias are the project_id and collection_key the call was
	// made with, so an unsubscribe by key finds an entry tracked by id.
	project string
	alias   string
}

func NewSyncConnection(p NewConnectionParams, dial Dialer) *SyncConnection {
	return &SyncConnection{
		BaseConnection: newBaseConnection(p),
		dial:           dial,
		Timeout:        constants.DefaultWSTimeout,
		PingInterval:   constants.DefaultPingInterval,
		subscriptions:  make(map[string]replay),
		closeChan:      make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Configure applies the transport independent settings of c.
func (sc *SyncConnection) Configure(c *Config) *SyncConnection {
	sc.Timeout = c.Timeout
	sc.PingInterval = c.PingInterval
	sc.Retryer = c.Retryer
	return sc
}

// SessionUUID is the session identifier assigned by the server on auth.
func (sc *SyncConnection) SessionUUID() string {
	sc.connLock.Lock()
	defer sc.connLock.Unlock()
	return sc.sessionUUID
}

func (sc *SyncConnection) Connect(ctx context.Context) error {
	if err := sc.preConnectionChecks(); err != nil {
		return err
	}
	if sc.dial == nil {
		return fmt.Errorf("sync connection has no dialer: %w", constants.ErrNotConnected)
	}
	if !sc.started.CompareAndSwap(false, true) {
		return errors.New("sync connection already started")
	}

	conn, err := sc.open(ctx)
	if err != nil {
		sc.started.Store(false)
		return err
	}

	go sc.run(conn)
	return nil
}

// Close ends the session. In-flight calls fail with constants.ErrConnectionClosed
// and every notification channel is closed.
//
// ctx bounds the wait for the background goroutine to exit; the socket is
// closed regardless.
func (sc *SyncConnection) Close(ctx context.Context) error {
	sc.shutdown(constants.ErrConnectionClosed)

	if !sc.started.Load() {
		return nil
	}

	select {
	case <-sc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sc *SyncConnection) shutdown(reason error) {
	sc.closeOnce.Do(func() {
		sc.closeErrLock.Lock()
		sc.closeErr = reason
		sc.closeErrLock.Unlock()
		close(sc.closeChan)

		sc.connLock.Lock()
		if sc.conn != nil {
			_ = sc.conn.Close()
		}
		sc.connLock.Unlock()
	})
}

func (sc *SyncConnection) closeError() error {
	sc.closeErrLock.Lock()
	defer sc.closeErrLock.Unlock()
	if sc.closeErr == nil {
		return constants.ErrConnectionClosed
	}
	return sc.closeErr
}

func (sc *SyncConnection) closing() bool {
	select {
	case <-sc.closeChan:
		return true
	default:
		return false
	}
}

// Send writes a call frame and waits for its reply.
func (sc *SyncConnection) Send(ctx context.Context, dest any, method string, params any) error {
	if sc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.Timeout)
		defer cancel()
	}

	select {
	case <-sc.closeChan:
		return sc.closeError()
	case <-ctx.Done():
		return timeoutError(method, ctx.Err())
	default:
	}

	id := sc.nextID.Add(1)
	responseChan, err := sc.createResponseChannel(id)
	if err != nil {
		return err
	}
	defer sc.removeResponseChannel(id)

	if err := sc.write(CallRequest{Type: FrameCall, Method: method, Params: params, MessageID: id}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return timeoutError(method, ctx.Err())
	case <-sc.closeChan:
		return sc.closeError()
	case res := <-responseChan:
		if res.err != nil {
			return res.err
		}
		if !res.frame.OK() {
			return &ServiceError{Method: method, Message: res.frame.Error}
		}
		sc.track(method, params, res.frame.Data)
		if dest == nil || res.frame.Data == nil {
			return nil
		}
		return marshal.Convert(sc.codec, res.frame.Data, dest)
	}
}

// timeoutError marks deadline failures with constants.ErrTimeout while
// keeping context.DeadlineExceeded matchable.
func timeoutError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, constants.ErrTimeout, err)
	}
	return err
}

// track remembers successful subscriptions so they survive a reconnect.
// Entries are keyed by the routing key of the subscription the server
// replied with, no matter whether the collection was addressed by id or key.
func (sc *SyncConnection) track(method string, params, reply any) {
	var subscribe bool
	switch method {
	case SubscribeProject, SubscribeCollection:
		subscribe = true
	case UnsubscribeProject, UnsubscribeCollection:
	default:
		return
	}

	p, err := marshal.ToParams(sc.codec, params)
	if err != nil {
		sc.logger.Warn("cannot track subscription", "method", method, "error", err)
		return
	}
	project, id, alias := paramString(p, "project_id"), paramString(p, "collection_id"), paramString(p, "collection_key")

	sc.subsLock.Lock()
	defer sc.subsLock.Unlock()

	if subscribe {
		var sub models.Subscription
		if reply != nil {
			if err := marshal.Convert(sc.codec, reply, &sub); err != nil {
				sc.logger.Warn("cannot decode subscription", "method", method, "error", err)
			}
		}
		key := sub.Key()
		switch {
		case sub.ID != "":
		case method == SubscribeProject:
			key = models.ProjectKey(project)
		case id != "":
			key = models.CollectionKey(id)
		default:
			key = aliasKey(project, alias)
		}
		sc.subscriptions[key] = replay{method: method, params: params, project: project, alias: alias}
		return
	}

	switch {
	case method == UnsubscribeProject:
		delete(sc.subscriptions, models.ProjectKey(project))
	case id != "":
		delete(sc.subscriptions, models.CollectionKey(id))
	default:
		delete(sc.subscriptions, aliasKey(project, alias))
		for key, r := range sc.subscriptions {
			if r.method == SubscribeCollection && r.alias == alias && r.project == project {
				delete(sc.subscriptions, key)
			}
		}
	}
}

// aliasKey tracks a collection subscription whose reply carried no id.
func aliasKey(project, alias string) string {
	return fmt.Sprintf("collection_key:%s/%s", project, alias)
}

func paramString(p map[string]any, name string) string {
	v, ok := p[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (sc *SyncConnection) restoreSubscriptions() {
	sc.subsLock.Lock()
	replays := make([]replay, 0, len(sc.subscriptions))
	for _, r := range sc.subscriptions {
		replays = append(replays, r)
	}
	sc.subsLock.Unlock()

	for _, r := range replays {
		if err := sc.Send(context.Background(), nil, r.method, r.params); err != nil {
			sc.logger.Error("failed to restore subscription", "method", r.method, "error", err)
		}
	}
}

func (sc *SyncConnection) write(v any) error {
	data, err := sc.codec.Marshal(v)
	if err != nil {
		return err
	}

	sc.connLock.Lock()
	defer sc.connLock.Unlock()
	if sc.conn == nil {
		return constants.ErrNotConnected
	}
	return sc.conn.WriteFrame(data)
}

// open dials and authenticates a new session within Timeout.
func (sc *SyncConnection) open(ctx context.Context) (FrameConn, error) {
	if sc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.Timeout)
		defer cancel()
	}

	conn, err := sc.dial(ctx)
	if err != nil {
		return nil, timeoutError("dial", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- sc.authenticate(conn)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		_ = conn.Close()
		<-errCh
		err = timeoutError("auth", ctx.Err())
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	sc.connLock.Lock()
	sc.conn = conn
	sc.connLock.Unlock()

	// Close may have run while the session was being opened.
	if sc.closing() {
		_ = conn.Close()
		return nil, sc.closeError()
	}
	return conn, nil
}

func (sc *SyncConnection) authenticate(conn FrameConn) error {
	req := AuthRequest{
		Type:     FrameAuth,
		APIKey:   sc.apiKey,
		Instance: sc.instance,
		UUID:     sc.SessionUUID(),
	}
	data, err := sc.codec.Marshal(req)
	if err != nil {
		return err
	}
	if err := conn.WriteFrame(data); err != nil {
		return err
	}

	for {
		raw, err := conn.ReadFrame()
		if err != nil {
			return fmt.Errorf("waiting for auth reply: %w", err)
		}

		var frame Frame
		if err := sc.codec.Unmarshal(raw, &frame); err != nil {
			return fmt.Errorf("decoding auth reply: %w", err)
		}
		if frame.Type != FrameAuth {
			sc.logger.Debug("frame before auth reply ignored", "type", frame.Type)
			continue
		}
		if !frame.OK() {
			return fmt.Errorf("%w: %s", constants.ErrAuthFailed, frame.Error)
		}

		sc.connLock.Lock()
		sc.sessionUUID = frame.UUID
		sc.connLock.Unlock()
		return nil
	}
}

func (sc *SyncConnection) run(conn FrameConn) {
	defer close(sc.done)
	defer sc.closeNotificationChannels()

	for {
		err := sc.serve(conn)
		sc.failPending(fmt.Errorf("%w: %v", constants.ErrConnectionClosed, err))

		if sc.closing() {
			return
		}
		sc.logger.Warn("sync connection lost", "error", err)

		conn = sc.reconnect(err)
		if conn == nil {
			sc.shutdown(fmt.Errorf("%w: %v", constants.ErrConnectionClosed, err))
			return
		}
		go sc.restoreSubscriptions()
	}
}

// serve pumps frames of one session until it fails.
func (sc *SyncConnection) serve(conn FrameConn) error {
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return sc.readLoop(conn)
	})

	if sc.PingInterval > 0 {
		g.Go(func() error {
			return sc.pingLoop(ctx)
		})
	}

	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-sc.closeChan:
		}
		// Unblocks readLoop.
		_ = conn.Close()
		return nil
	})

	return g.Wait()
}

func (sc *SyncConnection) readLoop(conn FrameConn) error {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			return err
		}
		sc.handleFrame(data)
	}
}

func (sc *SyncConnection) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(sc.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sc.write(PingRequest{Type: FramePing}); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (sc *SyncConnection) reconnect(lastErr error) FrameConn {
	if sc.Retryer == nil {
		return nil
	}

	for attempt := 0; ; attempt++ {
		delay, ok := sc.Retryer.NextDelay(attempt, lastErr)
		if !ok {
			sc.logger.Error("giving up reconnecting", "attempts", attempt, "error", lastErr)
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-sc.closeChan:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-sc.closeChan:
				cancel()
			case <-ctx.Done():
			}
		}()
		conn, err := sc.open(ctx)
		cancel()

		if err == nil {
			sc.logger.Info("sync connection restored", "attempt", attempt+1)
			sc.Retryer.Reset()
			return conn
		}

		lastErr = err
		sc.logger.Warn("reconnect attempt failed", "attempt", attempt+1, "error", err)
		if errors.Is(err, constants.ErrAuthFailed) {
			return nil
		}
	}
}

func (sc *SyncConnection) handleFrame(data []byte) {
	var frame Frame
	if err := sc.codec.Unmarshal(data, &frame); err != nil {
		sc.logger.Error("failed to decode frame", "error", err)
		return
	}

	switch frame.Type {
	case FrameCallResponse, FrameError:
		if frame.MessageID == 0 {
			sc.logger.Error("sync server error", "error", frame.Error)
			return
		}
		responseChan, ok := sc.takeResponseChannel(frame.MessageID)
		if !ok {
			sc.logger.Warn("reply for unknown message", "message_id", frame.MessageID)
			return
		}
		if frame.Type == FrameError && frame.Result == "" {
			frame.Result = constants.ResultNOK
		}
		responseChan <- callResult{frame: frame}
	case FramePong, FrameAuth:
		sc.logger.Debug("frame ignored", "type", frame.Type)
	default:
		var n models.Notification
		if err := sc.codec.Unmarshal(data, &n); err != nil {
			sc.logger.Error("failed to decode notification", "error", err)
			return
		}
		keys := append(n.Keys(), models.AnyNotificationKey)
		if !sc.deliverNotification(n, keys) {
			sc.logger.Debug("notification without subscriber", "type", string(n.Type), "id", n.ID)
		}
	}
}
