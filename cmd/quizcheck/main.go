package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/opening-quiz/internal/quizclient"
	"github.com/park285/opening-quiz/pkg/quizdto"
)

const samplePGN = "[Event \"quizcheck\"]\n\n1. e4 e5 (1... c5 2. Nf3) 2. Nf3 *"

func main() {
	baseURL := os.Getenv("QUIZ_BASE_URL")
	eventsURL := os.Getenv("QUIZ_EVENTS_URL")
	if baseURL == "" {
		log.Fatal("QUIZ_BASE_URL is required")
	}
	pgnText := samplePGN
	if path := strings.TrimSpace(os.Getenv("QUIZ_PGN_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		pgnText = string(raw)
	}

	client := quizclient.NewClient(baseURL, quizclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/health error: %v", err)
	}
	log.Printf("/health ok: %v", health)

	st, err := client.CreateSession(ctx)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	defer func() { _ = client.CloseSession(context.Background(), st.ID) }()

	var ev *quizclient.Events
	if eventsURL != "" {
		ev = quizclient.NewEvents(quizclient.EventsURL(eventsURL, st.ID), 3)
		ev.OnStateChange(func(state quizclient.State) {
			log.Printf("events state: %s", state)
		})
		ev.OnEvent(func(e *quizdto.Event) {
			if e.State != nil {
				fmt.Printf("event %s moves=%v status=%s\n", e.Type, e.State.Moves, e.State.Feedback.Status)
				return
			}
			fmt.Printf("event %s saved=%d\n", e.Type, len(e.Saved))
		})
		if err := ev.Connect(ctx); err != nil {
			log.Printf("events connect error: %v", err)
		}
		defer func() { _ = ev.Close(context.Background()) }()
	} else {
		log.Println("QUIZ_EVENTS_URL not set; skipping events check")
	}

	if st, err = client.LoadPGN(ctx, st.ID, pgnText, false); err != nil {
		log.Fatalf("load pgn: %v", err)
	}
	log.Printf("loaded: positions=%d allowed=%v", st.Positions, st.Legal)

	// Walk a few moves along the quiz, letting the server reply.
	for i := 0; i < 4; i++ {
		snap, err := client.Index(ctx, st.ID)
		if err != nil {
			log.Fatalf("index: %v", err)
		}
		moves := snap.Positions[fingerprint(st.FEN)]
		if len(moves) == 0 {
			log.Printf("end of line after %v", st.Moves)
			break
		}
		if st, err = client.Move(ctx, st.ID, moves[0]); err != nil {
			log.Fatalf("move %s: %v", moves[0], err)
		}
		log.Printf("played %s: %s", moves[0], st.Feedback.StatusText)
		time.Sleep(time.Second)
		if st, err = client.State(ctx, st.ID); err != nil {
			log.Fatalf("state: %v", err)
		}
	}

	png, err := client.BoardPNG(ctx, st.ID)
	if err != nil {
		log.Printf("board error: %v", err)
	} else {
		log.Printf("board ok: %d bytes", len(png))
	}
}

// fingerprint keeps the first four FEN fields, matching the index keys.
func fingerprint(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}
