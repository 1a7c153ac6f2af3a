// Package ws serves the chunk world over a websocket: HELLO/WELCOME
// handshake, then request/response operations. Every operation is
// serialized through one channel onto the goroutine running Run, which is
// the only goroutine that touches the world.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chunkvault.dev/internal/grid"
	"chunkvault.dev/internal/protocol"
	"chunkvault.dev/internal/world"
)

type Server struct {
	world  *world.World
	params protocol.WorldParams
	log    *log.Logger

	upgrader websocket.Upgrader
	reqs     chan request
}

type request struct {
	msg  []byte
	resp chan []byte
}

func NewServer(w *world.World, params protocol.WorldParams, logger *log.Logger) *Server {
	return &Server{
		world:  w,
		params: params,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		reqs: make(chan request),
	}
}

// Run owns the world. It applies one operation at a time until ctx ends,
// then flushes dirty chunks on the way out.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			n, err := s.world.Flush(flushCtx)
			cancel()
			if err != nil {
				s.log.Printf("final flush: %v", err)
			} else if n > 0 {
				s.log.Printf("final flush wrote %d chunks", n)
			}
			return
		case req := <-s.reqs:
			req.resp <- s.apply(ctx, req.msg)
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.log.Printf("session %s connected", sessionID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 8)

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
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}

			reply, ok := s.dispatch(ctx, msg)
			if !ok {
				break
			}
			select {
			case out <- reply:
			case <-ctx.Done():
			}
		}

		s.log.Printf("session %s disconnected", sessionID)
	}
}

// dispatch hands one raw message to the world goroutine and waits for its
// reply; ok=false when the server is shutting down.
func (s *Server) dispatch(ctx context.Context, msg []byte) ([]byte, bool) {
	req := request{msg: msg, resp: make(chan []byte, 1)}
	select {
	case s.reqs <- req:
	case <-ctx.Done():
		return nil, false
	}
	select {
	case reply := <-req.resp:
		return reply, true
	case <-ctx.Done():
		return nil, false
	}
}

// apply runs on the world goroutine.
func (s *Server) apply(ctx context.Context, msg []byte) []byte {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorReply(0, protocol.ErrProtoBadRequest, "bad json")
	}

	switch base.Type {
	case protocol.TypeGetEntry:
		var m protocol.GetEntryMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return errorReply(0, protocol.ErrProtoBadRequest, "bad GET_ENTRY")
		}
		e, err := s.world.EntryAt(ctx, grid.Point{X: grid.Coord(m.X), Y: grid.Coord(m.Y)})
		if err != nil {
			return errorReply(m.ID, protocol.ErrInternal, err.Error())
		}
		v := uint16(e)
		return resultReply(protocol.ResultMsg{Type: protocol.TypeResult, ID: m.ID, Entry: &v})

	case protocol.TypeSetEntry:
		var m protocol.SetEntryMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return errorReply(0, protocol.ErrProtoBadRequest, "bad SET_ENTRY")
		}
		if err := s.world.SetEntry(ctx, grid.Point{X: grid.Coord(m.X), Y: grid.Coord(m.Y)}, grid.Entry(m.Entry)); err != nil {
			return errorReply(m.ID, protocol.ErrInternal, err.Error())
		}
		return resultReply(protocol.ResultMsg{Type: protocol.TypeResult, ID: m.ID})

	case protocol.TypeGetChunk:
		var m protocol.GetChunkMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return errorReply(0, protocol.ErrProtoBadRequest, "bad GET_CHUNK")
		}
		ch, err := s.world.ChunkAt(ctx, grid.ChunkIndex{X: grid.Coord(m.CX), Y: grid.Coord(m.CY)})
		if err != nil {
			return errorReply(m.ID, protocol.ErrInternal, err.Error())
		}
		w, h := ch.Len()
		return resultReply(protocol.ResultMsg{Type: protocol.TypeResult, ID: m.ID, Chunk: &protocol.ChunkPayload{
			CX:      m.CX,
			CY:      m.CY,
			W:       w,
			H:       h,
			Entries: protocol.EncodeRLE(ch.Entries()),
		}})

	case protocol.TypeFlush:
		var m protocol.FlushMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return errorReply(0, protocol.ErrProtoBadRequest, "bad FLUSH")
		}
		n, err := s.world.Flush(ctx)
		if err != nil {
			return errorReply(m.ID, protocol.ErrInternal, err.Error())
		}
		return resultReply(protocol.ResultMsg{Type: protocol.TypeResult, ID: m.ID, Flushed: &n})

	default:
		return errorReply(0, protocol.ErrProtoBadRequest, "unknown type "+base.Type)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, ok bool) {
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
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}

	sessionID = uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldParams:     s.params,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return sessionID, true
}

func errorReply(id uint64, code, message string) []byte {
	b, err := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, ID: id, Code: code, Message: message})
	if err != nil {
		panic("ws: marshal error reply: " + err.Error())
	}
	return b
}

func resultReply(m protocol.ResultMsg) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		panic("ws: marshal result reply: " + err.Error())
	}
	return b
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
