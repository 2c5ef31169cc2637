package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"inboxwars.io/internal/game/room"
	"inboxwars.io/internal/game/rooms"
	"inboxwars.io/internal/protocol"
)

const outQueueSize = 64

type Server struct {
	manager *rooms.Manager
	log     *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(m *rooms.Manager, logger *log.Logger) *Server {
	return &Server{
		manager: m,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		rm, playerID, out := s.handshake(conn)
		if playerID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
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
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeAction {
				continue
			}
			var act protocol.ActionMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				continue
			}
			if act.ProtocolVersion != protocol.Version {
				continue
			}
			rm.Inbox() <- room.ActionEnvelope{PlayerID: playerID, Msg: act}
		}

		rm.Leave() <- playerID
	}
}

func (s *Server) handshake(conn *websocket.Conn) (rm *room.Room, playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil, "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil, "", nil
	}

	rm, ok := s.manager.Get(hello.RoomID)
	if !ok {
		closeWith(conn, protocol.ErrRoomNotFound)
		return nil, "", nil
	}

	out = make(chan []byte, outQueueSize)

	resumeToken := ""
	if hello.Auth != nil {
		resumeToken = strings.TrimSpace(hello.Auth.Token)
	}

	var resp room.JoinResponse
	if resumeToken != "" {
		respCh := make(chan room.JoinResponse, 1)
		rm.Attach() <- room.AttachRequest{ResumeToken: resumeToken, Out: out, Resp: respCh}
		resp = <-respCh
	}
	if resp.Welcome.PlayerID == "" {
		respCh := make(chan room.JoinResponse, 1)
		rm.Join() <- room.JoinRequest{
			Name:        hello.PlayerName,
			Role:        hello.Role,
			Destination: hello.Destination,
			Out:         out,
			Resp:        respCh,
		}
		resp = <-respCh
	}
	if resp.ErrCode != "" {
		closeWith(conn, resp.ErrCode)
		return nil, "", nil
	}

	// Send welcome + catalogs before anything the room broadcasts.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		return nil, "", nil
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			return nil, "", nil
		}
	}

	return rm, resp.Welcome.PlayerID, out
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second),
	)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
