package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"craftlevel.ai/internal/persistence/indexdb"
	"craftlevel.ai/internal/protocol"
	"craftlevel.ai/internal/sim/levels"
	"craftlevel.ai/internal/sim/tuning"
	"craftlevel.ai/internal/transport/ws"
)

// serverEnv holds deployment switches read from the environment.
type serverEnv struct {
	IndexBackend    string `env:"CRAFT_INDEX_BACKEND" envDefault:"sqlite"`
	EnableAdminHTTP bool   `env:"CRAFT_ENABLE_ADMIN_HTTP" envDefault:"true"`
	EnablePprofHTTP bool   `env:"CRAFT_ENABLE_PPROF_HTTP"`
	DisableRunLogs  bool   `env:"CRAFT_DISABLE_RUN_LOGS"`
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		levelsDir  = flag.String("levels", "", "level directory (default: <configs>/levels)")
		dataDir    = flag.String("data", "./data", "runtime data directory (run logs, index)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	var senv serverEnv
	if err := env.Parse(&senv); err != nil {
		logger.Fatalf("parse env: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if err := tuning.ApplyEnv(&tune); err != nil {
		logger.Fatalf("tuning env: %v", err)
	}

	ld := strings.TrimSpace(*levelsDir)
	if ld == "" {
		ld = filepath.Join(*configDir, "levels")
	}
	defs, err := levels.LoadDir(ld)
	if err != nil {
		logger.Fatalf("load levels: %v", err)
	}
	if len(defs) == 0 {
		logger.Fatalf("no levels in %s", ld)
	}
	logger.Printf("loaded %d levels from %s", len(defs), ld)

	// Optional: read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(*dataDir, senv.IndexBackend, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	opts := ws.Options{Levels: defs, Tuning: tune}
	if !senv.DisableRunLogs {
		opts.LogDir = *dataDir
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertLevels(defs, tune); err != nil {
			logger.Printf("index backend: upsert levels: %v", err)
		}
		opts.Index = idx
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/levels", func(rw http.ResponseWriter, r *http.Request) {
		names := make([]string, 0, len(defs))
		for name := range defs {
			names = append(names, name)
		}
		sort.Strings(names)
		resp := struct {
			ProtocolVersion string   `json:"protocol_version"`
			TickRateHz      int      `json:"tick_rate_hz"`
			Levels          []string `json:"levels"`
		}{protocol.Version, tune.TickRateHz, names}
		writeJSON(rw, http.StatusOK, resp)
	})

	if senv.EnableAdminHTTP && idx != nil {
		// Local-only admin endpoints.
		mux.HandleFunc("GET /admin/v1/runs/{id}", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			run, err := idx.LookupRun(ctx2, r.PathValue("id"))
			if errors.Is(err, indexdb.ErrRunNotFound) {
				writeJSON(rw, http.StatusNotFound, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			if err != nil {
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			counts, err := idx.CommandCounts(ctx2, run.ID)
			if err != nil {
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "run": run, "commands": counts})
		})
	} else {
		logger.Printf("admin endpoints disabled")
	}
	if senv.EnablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (CRAFT_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(opts, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
