package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/opening-quiz/internal/adapter/quizpresenter"
	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/quiz"
	"github.com/park285/opening-quiz/internal/savedquiz"
	"github.com/park285/opening-quiz/internal/service/trainer"
	"github.com/park285/opening-quiz/pkg/quizdto"
)

const (
	eventsBuffer      = 16
	eventWriteTimeout = 5 * time.Second
	eventPingInterval = 30 * time.Second
)

// Events streams session states over a websocket: GET /events?session=<id>.
type Events struct {
	svc    *trainer.Service
	pres   *quizpresenter.Presenter
	logger *zap.Logger

	originPatterns []string
	pingInterval   time.Duration
}

func NewEvents(svc *trainer.Service, pres *quizpresenter.Presenter, logger *zap.Logger, originPatterns ...string) *Events {
	if pres == nil {
		pres = quizpresenter.New(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Events{svc: svc, pres: pres, logger: logger, originPatterns: originPatterns, pingInterval: eventPingInterval}
}

// Mux returns an http.Handler serving the events endpoint.
func (e *Events) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/events", e)
	return mux
}

func (e *Events) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	sess, err := e.svc.Session(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  e.originPatterns,
	})
	if err != nil {
		e.logger.Warn("events_accept_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Subscribers run on the dispatch goroutine; never block it.
	updates := make(chan quiz.State, eventsBuffer)
	cancel := sess.Subscribe(func(st quiz.State) {
		select {
		case updates <- st:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- st:
			default:
			}
		}
	})
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	e.logger.Debug("events_connected", zap.String("session_id", id))

	st := sess.Snapshot()
	lastSaved := savedIDs(st.View.Saved)
	if err := e.write(ctx, conn, quizdto.Event{Type: quizdto.EventState, State: e.pres.State(id, st)}); err != nil {
		return
	}

	ping := time.NewTicker(e.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("events_disconnected", zap.String("session_id", id))
			return
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		case st := <-updates:
			if ids := savedIDs(st.View.Saved); ids != lastSaved {
				lastSaved = ids
				ev := quizdto.Event{Type: quizdto.EventSaved, Saved: e.pres.Saved(savedquiz.ForDisplay(st.View.Saved))}
				if err := e.write(ctx, conn, ev); err != nil {
					return
				}
			}
			if err := e.write(ctx, conn, quizdto.Event{Type: quizdto.EventState, State: e.pres.State(id, st)}); err != nil {
				return
			}
		}
	}
}

func (e *Events) write(ctx context.Context, conn *websocket.Conn, ev quizdto.Event) error {
	wctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	err := wsjson.Write(wctx, conn, ev)
	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Debug("events_write_failed", zap.Error(err))
	}
	return err
}

func savedIDs(list []domain.SavedQuiz) string {
	var key []byte
	for _, q := range list {
		key = append(key, q.ID...)
		key = append(key, 0)
	}
	return string(key)
}
