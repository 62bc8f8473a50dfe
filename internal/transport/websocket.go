package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/robustmq-go/mqttd/internal/handler"
	"github.com/robustmq-go/mqttd/internal/logger"
	"github.com/robustmq-go/mqttd/internal/mqtt"
	"github.com/robustmq-go/mqttd/pkg/er"
)

// WebSocketListener accepts MQTT v5 connections over WebSocket, one
// MQTT control packet per WebSocket binary message. It shares
// dispatchPacket with TCPServer so only framing differs between the
// two listeners.
type WebSocketListener struct {
	addr     string
	path     string
	handler  *handler.Handler
	log      *logger.Logger
	upgrader websocket.Upgrader
	srv      *http.Server

	nextConnectID atomic.Uint64
	connsMu       sync.RWMutex
	conns         map[uint64]*websocket.Conn
}

// NewWebSocketListener builds a listener bound to addr, serving the
// MQTT WebSocket subprotocol at path (conventionally "/mqtt").
func NewWebSocketListener(addr, path string, h *handler.Handler, log *logger.Logger) *WebSocketListener {
	return &WebSocketListener{
		addr:    addr,
		path:    path,
		handler: h,
		log:     log,
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{"mqtt"},
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[uint64]*websocket.Conn),
	}
}

// Start begins serving HTTP/WebSocket upgrade requests.
func (w *WebSocketListener) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(w.path, w.handleUpgrade)
	w.srv = &http.Server{Addr: w.addr, Handler: mux}

	go func() {
		if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.log.Error("websocket listener error", logger.ErrorAttr(err))
		}
	}()
	go func() {
		<-ctx.Done()
		w.srv.Close()
	}()
	return nil
}

// Stop shuts the HTTP server down.
func (w *WebSocketListener) Stop() error {
	if w.srv == nil {
		return nil
	}
	return w.srv.Close()
}

// Send implements broker.PushSender for WebSocket-connected clients.
func (w *WebSocketListener) Send(connectID uint64, pkt mqtt.Packet) error {
	w.connsMu.RLock()
	conn, ok := w.conns[connectID]
	w.connsMu.RUnlock()
	if !ok {
		return &er.Err{Context: "WebSocketListener.Send", Message: er.ErrConnectionNotFound}
	}
	return conn.WriteMessage(websocket.BinaryMessage, pkt.Encode())
}

func (w *WebSocketListener) handleUpgrade(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn("websocket upgrade failed", logger.ErrorAttr(err))
		return
	}

	connectID := w.nextConnectID.Add(1)
	w.connsMu.Lock()
	w.conns[connectID] = conn
	w.connsMu.Unlock()

	defer func() {
		w.connsMu.Lock()
		delete(w.conns, connectID)
		w.connsMu.Unlock()
		conn.Close()
	}()

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		decoded, err := mqtt.Decode(raw)
		if err != nil {
			conn.WriteMessage(websocket.BinaryMessage,
				mqtt.NewDisconnect(mqtt.DisconnectUnspecifiedError, err.Error()).Encode())
			return
		}

		replies := dispatchPacket(w.handler, connectID, wsRemoteAddr{conn}, decoded)
		for _, reply := range replies {
			if err := conn.WriteMessage(websocket.BinaryMessage, reply.Encode()); err != nil {
				return
			}
		}
		if decoded.Type == mqtt.DISCONNECT {
			return
		}
	}
}

// wsRemoteAddr adapts *websocket.Conn to net.Addr for the
// Authenticator contract, which only needs the peer address string.
type wsRemoteAddr struct {
	conn *websocket.Conn
}

func (a wsRemoteAddr) Network() string { return "websocket" }
func (a wsRemoteAddr) String() string  { return a.conn.RemoteAddr().String() }
