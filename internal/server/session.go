package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/tts-gateway/pkg/dispatcher"
	"github.com/morezero/tts-gateway/pkg/events"
)

const sessionLogPrefix = "server:session"

type sessionState int

const (
	stateAwaitingBody sessionState = iota
	stateDecoding
	stateDispatching
	stateResponding
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingBody:
		return "AWAITING_BODY"
	case stateDecoding:
		return "DECODING"
	case stateDispatching:
		return "DISPATCHING"
	case stateResponding:
		return "RESPONDING"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// session is one request/response exchange. It is never reused.
type session struct {
	id        string
	transport string
	state     sessionState
	start     time.Time
}

func newSession(transport string) *session {
	return &session{
		id:        uuid.NewString(),
		transport: transport,
		state:     stateAwaitingBody,
		start:     time.Now(),
	}
}

func (s *session) transition(next sessionState) {
	slog.Debug(fmt.Sprintf("%s - %s %s: %s -> %s", sessionLogPrefix, s.transport, s.id, s.state, next))
	s.state = next
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	sess := newSession(events.TransportHTTP)

	body, tooLarge, err := readBody(r, s.cfg.MaxBodyBytes)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %s body read failed: %v", sessionLogPrefix, sess.id, err))
		sess.transition(stateClosed)
		return
	}

	res := s.process(r.Context(), sess, body, tooLarge)

	sess.transition(stateResponding)
	writeJSON(w, res.Body)
	sess.transition(stateClosed)
}

// readBody reads exactly the declared Content-Length. An absent or zero
// length reads nothing; a length above limit is reported without reading.
func readBody(r *http.Request, limit int64) ([]byte, bool, error) {
	n := r.ContentLength
	if n <= 0 {
		return nil, false, nil
	}
	if n > limit {
		return nil, true, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.Body, buf); err != nil {
		return nil, false, err
	}
	return buf, false, nil
}

func (s *Server) handleCommsMsg(msg *comms.Msg) {
	sess := newSession(events.TransportComms)
	tooLarge := int64(len(msg.Data)) > s.cfg.MaxBodyBytes

	res := s.process(context.Background(), sess, msg.Data, tooLarge)

	sess.transition(stateResponding)
	if msg.Reply != "" {
		if err := msg.Respond(res.Body); err != nil {
			slog.Error(fmt.Sprintf("%s - %s respond failed: %v", sessionLogPrefix, sess.id, err))
		}
	}
	sess.transition(stateClosed)
}

// process runs a received body through decoding and dispatch. The counter is
// incremented once per received body, before any validation.
func (s *Server) process(ctx context.Context, sess *session, body []byte, tooLarge bool) *dispatcher.Result {
	s.reqnum.Add(1)
	sess.transition(stateDecoding)

	var res *dispatcher.Result
	if tooLarge {
		slog.Warn(fmt.Sprintf("%s - %s body exceeds %d bytes", sessionLogPrefix, sess.id, s.cfg.MaxBodyBytes))
		res = s.disp.Reject(dispatcher.OutcomeBodyTooLarge, dispatcher.MsgBodyTooLarge)
	} else if env, err := dispatcher.DecodeEnvelope(body); err != nil {
		slog.Warn(fmt.Sprintf("%s - %s malformed body (%d bytes)", sessionLogPrefix, sess.id, len(body)))
		res = s.disp.Reject(dispatcher.OutcomeInvalidJSON, dispatcher.MsgInvalidJSON)
	} else {
		sess.transition(stateDispatching)
		if name, ok := env.FuncName(); ok {
			slog.Info(fmt.Sprintf("%s - Receiving request func=%s id=%s", sessionLogPrefix, name, sess.id))
		}
		res = s.disp.HandleEnvelope(ctx, env)
	}

	event := events.NewCommandEvent(sess.id, res.Func, sess.transport, string(res.Outcome), sess.start)
	if err := s.publisher.PublishCommand(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - %s publish event: %v", sessionLogPrefix, sess.id, err))
	}
	return res
}
