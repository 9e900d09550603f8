package savedquiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/obslog"
)

const (
	postgresChannel = "saved_quizzes_changed"

	createTable = `CREATE TABLE IF NOT EXISTS saved_quizzes (
    seq       BIGSERIAL PRIMARY KEY,
    id        TEXT NOT NULL UNIQUE,
    title     TEXT NOT NULL DEFAULT '',
    pgn       TEXT NOT NULL,
    save_date TIMESTAMPTZ NOT NULL
)`
)

// PostgresStore keeps saved quizzes in the saved_quizzes table. Changes
// are announced with pg_notify and picked up by a pq.Listener.
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create saved_quizzes: %w", err)
	}
	return &PostgresStore{db: db, dsn: databaseURL}, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]domain.SavedQuiz, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, title, pgn, save_date FROM saved_quizzes ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.SavedQuiz{}
	for rows.Next() {
		var q domain.SavedQuiz
		if err := rows.Scan(&q.ID, &q.Title, &q.PGN, &q.SaveDate); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Append(ctx context.Context, q domain.SavedQuiz) error {
	if q.ID == "" {
		q.ID = LegacyID(q)
	}
	return p.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO saved_quizzes (id, title, pgn, save_date) VALUES ($1, $2, $3, $4)`,
			q.ID, q.Title, q.PGN, q.SaveDate.UTC())
		return err
	})
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM saved_quizzes WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

// inTx runs fn and the change notification in one transaction, so
// listeners only hear about committed changes.
func (p *PostgresStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, '')`, postgresChannel); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Watch(ctx context.Context) (<-chan []domain.SavedQuiz, error) {
	listener := pq.NewListener(p.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			obslog.L().Warn("saved_quiz_listener_event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(postgresChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", postgresChannel, err)
	}
	out := make(chan []domain.SavedQuiz, 1)
	go func() {
		defer close(out)
		defer listener.Close()
		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := listener.Ping(); err != nil {
					obslog.L().Warn("saved_quiz_listener_ping_failed", zap.Error(err))
				}
				continue
			case _, ok := <-listener.Notify:
				if !ok {
					return
				}
				// A nil notification follows a reconnect; reload either way.
			}
			list, err := p.List(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				obslog.L().Warn("saved_quiz_reload_failed", zap.Error(err))
				continue
			}
			select {
			case out <- list:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
