package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/room"
	"inboxwars.io/internal/game/rooms"
	"inboxwars.io/internal/game/tuning"
	"inboxwars.io/internal/persistence/indexdb"
	"inboxwars.io/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		bootRoom   = flag.String("room", "", "create this room at startup if missing")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	// Read-model index (does not affect resolution determinism).
	var idx room.Indexer
	if !*disableDB {
		sqliteIdx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer sqliteIdx.Close()
		idx = sqliteIdx
	}

	manager, err := rooms.NewManager(rooms.Config{
		DataDir:  *dataDir,
		Tuning:   tune,
		Catalogs: cats,
		Index:    idx,
	})
	if err != nil {
		logger.Fatalf("rooms: %v", err)
	}
	defer manager.Close()
	if n := len(manager.List()); n > 0 {
		logger.Printf("restored %d room(s)", n)
	}
	if *bootRoom != "" {
		if _, ok := manager.Get(*bootRoom); !ok {
			if _, err := manager.Create(*bootRoom); err != nil {
				logger.Fatalf("create room %s: %v", *bootRoom, err)
			}
			logger.Printf("created room %s", *bootRoom)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		infos := manager.List()

		fmt.Fprintf(rw, "# HELP inboxwars_rooms Current number of rooms.\n")
		fmt.Fprintf(rw, "# TYPE inboxwars_rooms gauge\n")
		fmt.Fprintf(rw, "inboxwars_rooms %d\n", len(infos))

		fmt.Fprintf(rw, "# HELP inboxwars_room_round Current round per room.\n")
		fmt.Fprintf(rw, "# TYPE inboxwars_room_round gauge\n")
		for _, info := range infos {
			fmt.Fprintf(rw, "inboxwars_room_round{room=%q,phase=%q} %d\n", info.ID, info.Phase, info.Round)
		}
	})
	mux.HandleFunc("/v1/rooms", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(rw).Encode(manager.List())
		case http.MethodPost:
			var body struct {
				RoomID string `json:"room_id"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			rm, err := manager.Create(body.RoomID)
			if err != nil {
				rw.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(rw).Encode(map[string]string{"error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]string{"room_id": rm.ID()})
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/v1/rooms/", func(rw http.ResponseWriter, r *http.Request) {
		// GET /v1/rooms/{id}/votes — the public vote board.
		rest := strings.TrimPrefix(r.URL.Path, "/v1/rooms/")
		roomID, tail, ok := strings.Cut(rest, "/")
		if !ok || tail != "votes" || r.Method != http.MethodGet {
			http.NotFound(rw, r)
			return
		}
		votes, ok := manager.Votes(roomID)
		if !ok {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(votes)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(manager, logger).Handler())

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
