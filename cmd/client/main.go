package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"craftlevel.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "client", "client name")
		level    = flag.String("level", "", "level to run (empty: list levels and exit)")
		script   = flag.String("script", "", "Lua program file (default: the level's own script)")
		realtime = flag.Bool("realtime", true, "ask the server to pace ticks")
		every    = flag.Uint64("every", 20, "log every n-th tick (0: none)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[client] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	var src string
	if *script != "" {
		raw, err := os.ReadFile(*script)
		if err != nil {
			logger.Fatalf("read script: %v", err)
		}
		src = string(raw)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteJSON(protocol.StopMsg{Type: protocol.TypeStop, ProtocolVersion: protocol.Version, ReqID: uuid.NewString()})
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s tick_rate=%d levels=%d", w.SessionID, w.TickRateHz, len(w.Levels))
			if *level == "" {
				for _, l := range w.Levels {
					logger.Printf("  %s %dx%d direct_control=%v", l.Name, l.Width, l.Height, l.DirectControl)
				}
				return
			}
			run := protocol.RunMsg{
				Type:            protocol.TypeRun,
				ProtocolVersion: protocol.Version,
				ReqID:           uuid.NewString(),
				Level:           *level,
				Script:          src,
				Realtime:        *realtime,
			}
			if err := conn.WriteJSON(run); err != nil {
				logger.Fatalf("send RUN: %v", err)
			}

		case protocol.TypeAck:
			var a protocol.AckMsg
			if err := json.Unmarshal(msg, &a); err != nil {
				continue
			}
			if !a.Accepted {
				logger.Printf("rejected %s: %s %s", a.AckFor, a.Code, a.Message)
				if a.Code != protocol.ErrNotRunning {
					return
				}
				continue
			}
			logger.Printf("ACK %s run=%s", a.AckFor, a.RunID)

		case protocol.TypeTick:
			var t protocol.TickMsg
			if err := json.Unmarshal(msg, &t); err != nil {
				continue
			}
			if *every > 0 && t.Tick%*every == 0 {
				logger.Printf("tick=%d score=%d events=%d", t.Tick, t.Score, len(t.Events))
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)

		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			logger.Printf("RESULT success=%v reason=%s tick=%d score=%d", r.Success, r.Reason, r.Tick, r.Score)
			for _, c := range r.Commands {
				if c.Type == "" {
					logger.Printf("  %s repeat=%v count=%d", c.Verb, c.Repeat, c.Count)
				}
			}
			return
		}
	}
}
