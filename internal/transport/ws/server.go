package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"craftlevel.ai/internal/persistence/indexdb"
	"craftlevel.ai/internal/protocol"
	"craftlevel.ai/internal/runner"
	"craftlevel.ai/internal/script"
	"craftlevel.ai/internal/sim/events"
	"craftlevel.ai/internal/sim/game"
	"craftlevel.ai/internal/sim/ledger"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
)

type Options struct {
	Levels map[string]levels.Definition
	Tuning tuning.Tuning

	// LogDir, when set, gets a zstd run log per attempt.
	LogDir string
	Index  runner.Index
}

// Server hosts level sessions over websocket. A session runs at most one
// attempt at a time; each attempt is owned by its own goroutine.
type Server struct {
	opts Options
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(opts Options, logger *log.Logger) *Server {
	if opts.Tuning.TickRateHz == 0 {
		opts.Tuning = tuning.Defaults()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		opts: opts,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type session struct {
	s   *Server
	id  string
	out chan []byte
	ctx context.Context

	mu     sync.Mutex
	cancel context.CancelFunc
	runID  string
	wg     sync.WaitGroup
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessID, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sess := &session{s: s, id: sessID, out: make(chan []byte, 256), ctx: ctx}

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			sess.handle(msg)
		}

		// Cleanup.
		sess.stop()
		sess.wg.Wait()
		s.log.Printf("session %s: closed", sessID)
	}
}

// handshake reads HELLO and answers WELCOME. It returns the new session id.
func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if !protocol.SupportsVersion(hello.ProtocolVersion) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		TickRateHz:      s.opts.Tuning.TickRateHz,
		Levels:          s.levelRefs(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	s.log.Printf("session %s: client=%s", welcome.SessionID, hello.ClientName)
	return welcome.SessionID, true
}

func (s *Server) levelRefs() []protocol.LevelRef {
	out := make([]protocol.LevelRef, 0, len(s.opts.Levels))
	for _, def := range s.opts.Levels {
		out = append(out, protocol.LevelRef{
			Name:          def.Name,
			Width:         def.Width,
			Height:        def.Height,
			DirectControl: def.DirectControl,
			UseScore:      def.UseScore,
			TimeoutMs:     def.TimeoutMs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (sess *session) handle(msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		sess.sendError(protocol.ErrProtoBadRequest, err.Error(), "")
		return
	}
	if !protocol.FromClient(base.Type) {
		sess.sendError(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type, "")
		return
	}
	if !protocol.SupportsVersion(base.ProtocolVersion) {
		sess.sendError(protocol.ErrProtoVersion, "unsupported protocol_version", "")
		return
	}
	switch base.Type {
	case protocol.TypeRun:
		var run protocol.RunMsg
		if err := json.Unmarshal(msg, &run); err != nil {
			sess.sendError(protocol.ErrProtoBadRequest, "bad RUN", "")
			return
		}
		sess.startRun(run)
	case protocol.TypeStop:
		var stop protocol.StopMsg
		if err := json.Unmarshal(msg, &stop); err != nil {
			sess.sendError(protocol.ErrProtoBadRequest, "bad STOP", "")
			return
		}
		runID, ok := sess.stop()
		sess.ack(stop.ReqID, ok, runID)
	default:
		sess.sendError(protocol.ErrProtoBadRequest, "HELLO already received", "")
	}
}

func (sess *session) startRun(msg protocol.RunMsg) {
	s := sess.s
	def, ok := s.opts.Levels[msg.Level]
	if !ok {
		sess.reject(msg.ReqID, protocol.ErrLevelNotFound, "unknown level "+msg.Level)
		return
	}

	sess.mu.Lock()
	if sess.cancel != nil {
		sess.mu.Unlock()
		sess.reject(msg.ReqID, protocol.ErrBusy, "a run is already in progress")
		return
	}
	ctx, cancel := context.WithCancel(sess.ctx)
	sess.cancel = cancel
	sess.mu.Unlock()

	r, err := runner.New(runner.Config{
		Level:   def,
		Script:  msg.Script,
		Tuning:  s.opts.Tuning,
		Logger:  s.log,
		LogDir:  s.opts.LogDir,
		Index:   s.opts.Index,
		Effects: msg.Effects,
	})
	if err != nil {
		sess.release(cancel)
		sess.reject(msg.ReqID, protocol.ErrBadRequest, err.Error())
		return
	}
	if err := r.Start(); err != nil {
		sess.release(cancel)
		sess.reject(msg.ReqID, protocol.ErrInternal, err.Error())
		return
	}
	sess.mu.Lock()
	sess.runID = r.ID()
	sess.wg.Add(1)
	sess.mu.Unlock()

	sess.send(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          msg.ReqID,
		Accepted:        true,
		RunID:           r.ID(),
	})
	for _, err := range r.Errors() {
		sess.sendError(scriptCode(err), err.Error(), r.ID())
	}

	go func() {
		defer sess.wg.Done()
		out, err := r.Play(ctx, msg.Realtime, func(f runner.Frame) {
			sess.send(tickMsg(r.ID(), f))
		})
		if err != nil {
			s.log.Printf("run %s: %v", r.ID(), err)
		}

		sess.release(cancel)
		sess.send(resultMsg(out))
	}()
}

// release frees the run slot and cancels its context.
func (sess *session) release(cancel context.CancelFunc) {
	sess.mu.Lock()
	sess.cancel = nil
	sess.runID = ""
	sess.mu.Unlock()
	cancel()
}

// stop cancels the running attempt, if any, and returns its id.
func (sess *session) stop() (string, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cancel == nil {
		return "", false
	}
	sess.cancel()
	return sess.runID, true
}

func (sess *session) ack(reqID string, accepted bool, runID string) {
	msg := protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          reqID,
		Accepted:        accepted,
		RunID:           runID,
	}
	if !accepted {
		msg.Code = protocol.ErrNotRunning
		msg.Message = "no run in progress"
	}
	sess.send(msg)
}

func (sess *session) reject(reqID, code, message string) {
	sess.send(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          reqID,
		Accepted:        false,
		Code:            code,
		Message:         message,
	})
}

func (sess *session) sendError(code, message, runID string) {
	sess.send(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
		RunID:           runID,
	})
}

// send queues v for the writer. It gives up once the session is gone.
func (sess *session) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		sess.s.log.Printf("session %s: marshal: %v", sess.id, err)
		return
	}
	select {
	case sess.out <- b:
	case <-sess.ctx.Done():
	}
}

func scriptCode(err error) string {
	var se *script.Error
	if errors.As(err, &se) {
		return protocol.ErrScript
	}
	return protocol.ErrInternal
}

func tickMsg(runID string, f runner.Frame) protocol.TickMsg {
	msg := protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		RunID:           runID,
		Tick:            f.Tick,
		Digest:          f.Digest,
		Score:           f.Score,
	}
	for _, ev := range f.Events {
		msg.Events = append(msg.Events, eventMsg(ev))
	}
	for _, e := range f.Effects {
		msg.Effects = append(msg.Effects, effectMsg(e))
	}
	return msg
}

func eventMsg(ev events.Event) protocol.Event {
	return protocol.Event{
		Type:       string(ev.Type),
		TargetType: ev.TargetType,
		TargetID:   ev.TargetID,
		SenderID:   ev.SenderID,
	}
}

func effectMsg(e game.Effect) protocol.Effect {
	out := protocol.Effect{Kind: e.Kind, Name: e.Name}
	if a := e.Anim; a != nil {
		out.Name = a.Name
		out.EntityID = a.EntityID
		out.Pos = [2]int{a.Pos.X, a.Pos.Y}
		out.Facing = a.Facing.String()
	}
	return out
}

func resultMsg(out runner.Outcome) protocol.ResultMsg {
	msg := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		RunID:           out.RunID,
		Success:         out.Result.Success,
		Reason:          out.Result.Reason,
		Tick:            out.Result.Tick,
		Score:           out.Score,
	}
	for _, err := range out.Errors {
		msg.Errors = append(msg.Errors, err.Error())
	}
	msg.Commands = commandCounts(out.Ledger)
	return msg
}

func commandCounts(book ledger.Snapshot) []protocol.CommandCount {
	rows := indexdb.FlattenLedger(book)
	if len(rows) == 0 {
		return nil
	}
	out := make([]protocol.CommandCount, len(rows))
	for i, r := range rows {
		out[i] = protocol.CommandCount{Verb: r.Verb, Type: r.Type, Repeat: r.Repeat, Count: r.Count}
	}
	return out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
