// Package transport implements the TCP accept loop and MQTT fixed-
// header framing, handing each decoded packet to an
// internal/handler.Handler. The byte-by-byte fixed header plus
// variable-length-integer framing loop is kept from the teacher's
// internal/transport/tcp.go; only the packet dispatch changed, from a
// MQTT 3.1.1 inline switch to the v5 Packet Handler.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/robustmq-go/mqttd/internal/handler"
	"github.com/robustmq-go/mqttd/internal/logger"
	"github.com/robustmq-go/mqttd/internal/mqtt"
	"github.com/robustmq-go/mqttd/pkg/er"
)

// TCPServer accepts MQTT v5 connections over plain TCP.
type TCPServer struct {
	addr               string
	listener           net.Listener
	handler            *handler.Handler
	log                *logger.Logger
	isShuttingdown     atomic.Bool
	maxConnections     int
	currentConnections atomic.Int32
	nextConnectID      atomic.Uint64

	connsMu sync.RWMutex
	conns   map[uint64]net.Conn
}

// New creates a TCPServer bound to addr (host:port or just a port
// number) dispatching every decoded packet to h.
func New(addr string, h *handler.Handler, log *logger.Logger) *TCPServer {
	return &TCPServer{
		addr:           addr,
		handler:        h,
		log:            log,
		maxConnections: 1000,
		conns:          make(map[uint64]net.Conn),
	}
}

// Send implements broker.PushSender, letting a push worker write a
// broker-originated publish straight to the connection holding
// connectID, without round-tripping through the Packet Handler.
func (srv *TCPServer) Send(connectID uint64, pkt mqtt.Packet) error {
	srv.connsMu.RLock()
	conn, ok := srv.conns[connectID]
	srv.connsMu.RUnlock()
	if !ok {
		return &er.Err{Context: "TCPServer.Send", Message: er.ErrConnectionNotFound}
	}
	_, err := conn.Write(pkt.Encode())
	return err
}

// Start begins accepting TCP connections.
func (srv *TCPServer) Start(ctx context.Context) error {
	listenAddr := srv.addr
	if _, _, err := net.SplitHostPort(listenAddr); err != nil {
		listenAddr = fmt.Sprintf(":%s", srv.addr)
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	srv.listener = listener
	go srv.accept(ctx)
	return nil
}

// Stop shuts down the listener gracefully.
func (srv *TCPServer) Stop() error {
	srv.isShuttingdown.Store(true)
	if srv.listener != nil {
		return srv.listener.Close()
	}
	return nil
}

func (srv *TCPServer) accept(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := srv.listener.Accept()
			if err != nil {
				if srv.isShuttingdown.Load() {
					return
				}
				srv.log.Warn("accept error", logger.ErrorAttr(err))
				continue
			}
			go srv.handleConnection(conn)
		}
	}
}

func (srv *TCPServer) checkServerAvailability() string {
	if srv.isShuttingdown.Load() {
		return "server is shutting down"
	}
	if srv.currentConnections.Load() >= int32(srv.maxConnections) {
		return "maximum connections exceeded"
	}
	return ""
}

// handleConnection owns one client's inbound packet stream from
// accept to close, the unit of ordering the concurrency model assumes
// (spec §5): it mints a connect_id, frames each inbound packet,
// decodes it, hands it to the Handler and writes back whatever the
// Handler returns.
func (srv *TCPServer) handleConnection(conn net.Conn) {
	if reason := srv.checkServerAvailability(); reason != "" {
		conn.Write(mqtt.NewDisconnect(mqtt.DisconnectUnspecifiedError, reason).Encode())
		conn.Close()
		return
	}

	srv.currentConnections.Add(1)
	connectID := srv.nextConnectID.Add(1)

	srv.connsMu.Lock()
	srv.conns[connectID] = conn
	srv.connsMu.Unlock()

	defer func() {
		srv.connsMu.Lock()
		delete(srv.conns, connectID)
		srv.connsMu.Unlock()
		conn.Close()
		srv.currentConnections.Add(-1)
	}()

	reader := bufio.NewReader(conn)

	for {
		raw, err := readPacket(reader)
		if err != nil {
			if err != io.EOF {
				srv.log.Debug("frame read error", logger.ClientID(fmt.Sprintf("connect_id:%d", connectID)), logger.ErrorAttr(err))
			}
			return
		}

		decoded, err := mqtt.Decode(raw)
		if err != nil {
			srv.log.Warn("decode error", logger.Int("connect_id", int(connectID)), logger.ErrorAttr(err))
			conn.Write(mqtt.NewDisconnect(mqtt.DisconnectUnspecifiedError, err.Error()).Encode())
			return
		}

		replies := dispatchPacket(srv.handler, connectID, conn.RemoteAddr(), decoded)
		for _, reply := range replies {
			if _, err := conn.Write(reply.Encode()); err != nil {
				return
			}
		}
		if decoded.Type == mqtt.DISCONNECT {
			return
		}
	}
}

// dispatchPacket routes one decoded packet to the matching Handler
// method, shared by every transport listener (TCP, WebSocket) so each
// one only owns framing, not MQTT semantics.
func dispatchPacket(h *handler.Handler, connectID uint64, addr net.Addr, d *mqtt.Decoded) []mqtt.Packet {
	switch d.Type {
	case mqtt.CONNECT:
		return h.Connect(connectID, d.Connect, addr)
	case mqtt.PUBLISH:
		return h.Publish(connectID, d.Publish)
	case mqtt.PUBACK:
		return h.PubAck(connectID, d.PubAck)
	case mqtt.PUBREC:
		return h.PubRec(connectID, d.PubRec)
	case mqtt.PUBREL:
		return h.PubRel(connectID, d.PubRel)
	case mqtt.PUBCOMP:
		return h.PubComp(connectID, d.PubComp)
	case mqtt.SUBSCRIBE:
		return h.Subscribe(connectID, d.Subscribe)
	case mqtt.UNSUBSCRIBE:
		return h.Unsubscribe(connectID, d.Unsubscribe)
	case mqtt.PINGREQ:
		return h.Ping(connectID, d.PingReq)
	case mqtt.DISCONNECT:
		return h.Disconnect(connectID, d.Disconnect)
	default:
		return nil
	}
}

// readPacket reads one full MQTT control packet: a one-byte fixed
// header, a variable-byte-integer remaining length (up to 4 bytes),
// then exactly that many remaining bytes.
func readPacket(reader *bufio.Reader) ([]byte, error) {
	fixedHeader, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	remLenBuf := make([]byte, 0, 4)
	remainingLength := 0
	multiplier := 1
	for {
		if len(remLenBuf) >= 4 {
			return nil, fmt.Errorf("remaining length too large")
		}
		b, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		remLenBuf = append(remLenBuf, b)
		remainingLength += int(b&0x7F) * multiplier
		multiplier *= 128
		if b&0x80 == 0 {
			break
		}
	}

	raw := make([]byte, 1+len(remLenBuf)+remainingLength)
	raw[0] = fixedHeader
	copy(raw[1:1+len(remLenBuf)], remLenBuf)
	if _, err := io.ReadFull(reader, raw[1+len(remLenBuf):]); err != nil {
		return nil, err
	}
	return raw, nil
}
