package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizly-service/internal/app"
	"quizly-service/internal/infra/memory"
)

// WSHandler drives quiz attempts over a websocket. The server owns the
// session engine and its one-second tick; the client only sends intents and
// renders the state snapshots pushed back.
type WSHandler struct {
	service  *app.QuizService
	registry *memory.AttemptRegistry
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, registry *memory.AttemptRegistry) *WSHandler {
	return &WSHandler{
		service:  service,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	OptionID string `json:"optionId"`
}

type resultPayload struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

type soundPayload struct {
	Cue string `json:"cue"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// soundForwarder relays engine cues to the client. Cues are cosmetic and
// fire-and-forget: if the outbound buffer is full the cue is dropped rather
// than blocking the engine.
type soundForwarder struct {
	send chan<- outboundMessage[any]
}

func (s soundForwarder) play(cue string) {
	defer func() { _ = recover() }() // send channel may already be closed on teardown
	select {
	case s.send <- outboundMessage[any]{Type: "sound", Payload: soundPayload{Cue: cue}}:
	default:
	}
}

func (s soundForwarder) Click()     { s.play("click") }
func (s soundForwarder) Tick()      { s.play("tick") }
func (s soundForwarder) Correct()   { s.play("correct") }
func (s soundForwarder) Incorrect() { s.play("incorrect") }
func (s soundForwarder) Complete()  { s.play("complete") }

// ServeWS upgrades the request and runs one quiz attempt for the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 32)

	attempt, err := h.service.StartAttempt(r.Context(), quizID, soundForwarder{send: send})
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	attemptID := uuid.NewString()
	h.registry.Register(attemptID, attempt)
	defer h.registry.Unregister(attemptID)
	defer attempt.Close()

	updates, cancel := attempt.Subscribe()
	defer cancel()

	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		resultSent := false
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
				if snap.ShowResult && !resultSent {
					resultSent = true
					select {
					case send <- outboundMessage[any]{Type: "result", Payload: resultPayload{Score: snap.Score, Total: snap.TotalQuestions}}:
					case <-closeSignals:
						return
					}
				}
				if !snap.ShowResult {
					resultSent = false
				}
			case <-closeSignals:
				return
			}
		}
	}()

	attempt.Start()

readLoop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			attempt.SelectOption(payload.OptionID)
		case "submit":
			attempt.Submit()
		case "next":
			attempt.Next()
		case "retake":
			attempt.Retake()
		case "exit":
			// Mid-session exit discards all attempt state immediately.
			break readLoop
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	attempt.Close()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
