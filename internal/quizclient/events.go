package quizclient

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/opening-quiz/pkg/quizdto"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

type EventCallback func(ev *quizdto.Event)

type StateCallback func(state State)

type callbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Events follows one session's event stream and reconnects on failure.
type Events struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  State
	stateM sync.RWMutex

	evCbs    []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// EventsURL builds the stream URL for session id from the events base URL
// (ws:// or http://).
func EventsURL(base, id string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	}
	return base + "/events?session=" + url.QueryEscape(id)
}

func NewEvents(wsURL string, maxReconnectAttempts int) *Events {
	ctx, cancel := context.WithCancel(context.Background())
	return &Events{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func (e *Events) Connect(ctx context.Context) error {
	e.stateM.RLock()
	busy := e.state == StateConnected || e.state == StateConnecting
	e.stateM.RUnlock()
	if busy {
		return nil
	}
	e.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := e.dial(dialCtx)
	if err != nil {
		e.setState(StateFailed)
		e.scheduleReconnect()
		return err
	}
	e.attach(conn)
	return nil
}

func (e *Events) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, e.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	return conn, err
}

func (e *Events) attach(conn *websocket.Conn) {
	e.connM.Lock()
	e.conn = conn
	e.connM.Unlock()
	e.setState(StateConnected)

	e.wg.Add(2)
	go e.listen(conn)
	go e.pingLoop(conn)
}

func (e *Events) listen(conn *websocket.Conn) {
	defer e.wg.Done()
	for {
		var ev quizdto.Event
		if err := wsjson.Read(e.rootCtx, conn, &ev); err != nil {
			if e.isStopping() {
				return
			}
			e.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			return
		}

		e.cbM.RLock()
		callbacks := make([]callbackEntry, len(e.evCbs))
		copy(callbacks, e.evCbs)
		e.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(&ev)
		}
	}
}

func (e *Events) pingLoop(conn *websocket.Conn) {
	defer e.wg.Done()
	t := time.NewTicker(e.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-e.stopCh:
			return
		case <-e.rootCtx.Done():
			return
		case <-t.C:
			if !e.isCurrent(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(e.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				e.dropConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// dropConn closes conn if it is still current and starts reconnecting.
func (e *Events) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	e.connM.Lock()
	current := e.conn == conn
	if current {
		e.conn = nil
	}
	e.connM.Unlock()
	_ = conn.Close(code, reason)
	if !current || e.isStopping() {
		return
	}
	e.setState(StateDisconnected)
	e.scheduleReconnect()
}

func (e *Events) isCurrent(conn *websocket.Conn) bool {
	e.connM.Lock()
	defer e.connM.Unlock()
	return e.conn == conn
}

func (e *Events) scheduleReconnect() {
	if e.maxReconnectAttempts <= 0 {
		return
	}
	e.setState(StateReconnecting)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for attempt := 1; attempt <= e.maxReconnectAttempts; attempt++ {
			select {
			case <-e.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(e.rootCtx, 10*time.Second)
			conn, err := e.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			if e.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			e.attach(conn)
			return
		}
		e.setState(StateFailed)
	}()
}

func (e *Events) OnEvent(cb EventCallback) int {
	e.cbM.Lock()
	defer e.cbM.Unlock()
	e.nextCbID++
	e.evCbs = append(e.evCbs, callbackEntry{id: e.nextCbID, callback: cb})
	return e.nextCbID
}

func (e *Events) RemoveEventCallback(id int) {
	e.cbM.Lock()
	defer e.cbM.Unlock()
	for i, cb := range e.evCbs {
		if cb.id == id {
			e.evCbs = append(e.evCbs[:i], e.evCbs[i+1:]...)
			break
		}
	}
}

func (e *Events) OnStateChange(cb StateCallback) int {
	e.cbM.Lock()
	defer e.cbM.Unlock()
	e.nextCbID++
	e.stateCbs = append(e.stateCbs, stateCallbackEntry{id: e.nextCbID, callback: cb})
	return e.nextCbID
}

func (e *Events) RemoveStateCallback(id int) {
	e.cbM.Lock()
	defer e.cbM.Unlock()
	for i, cb := range e.stateCbs {
		if cb.id == id {
			e.stateCbs = append(e.stateCbs[:i], e.stateCbs[i+1:]...)
			break
		}
	}
}

func (e *Events) State() State {
	e.stateM.RLock()
	defer e.stateM.RUnlock()
	return e.state
}

func (e *Events) setState(state State) {
	e.stateM.Lock()
	e.state = state
	e.stateM.Unlock()

	e.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(e.stateCbs))
	copy(callbacks, e.stateCbs)
	e.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

func (e *Events) Close(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.connM.Lock()
	conn := e.conn
	e.conn = nil
	e.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	e.rootCancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.setState(StateDisconnected)
		return nil
	}
}

func (e *Events) isStopping() bool {
	select {
	case <-e.stopCh:
		return true
	default:
		return false
	}
}
