// Command mqttd is the broker process entrypoint: load configuration,
// wire the Metadata Cache and its sibling collaborators to the Packet
// Handler, start the TCP and WebSocket listeners, and shut down
// gracefully on SIGINT/SIGTERM, the way the teacher's cmd/goqtt/main.go
// does for MQTT 3.1.1.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robustmq-go/mqttd/internal/auth"
	"github.com/robustmq-go/mqttd/internal/broker"
	"github.com/robustmq-go/mqttd/internal/config"
	"github.com/robustmq-go/mqttd/internal/handler"
	"github.com/robustmq-go/mqttd/internal/logger"
	"github.com/robustmq-go/mqttd/internal/mqtt"
	"github.com/robustmq-go/mqttd/internal/storage"
	"github.com/robustmq-go/mqttd/internal/transport"
	"github.com/robustmq-go/mqttd/pkg/hash"
)

const configPath = "config.yml"

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg := logger.New(logger.ProductionConfig())
	logger.InitGlobalLogger(logger.ProductionConfig())

	store, err := storage.Open(cfg.Storage.SQLitePath)
	if err != nil {
		lg.Fatal("failed to open storage", logger.ErrorAttr(err))
	}
	defer store.Close()

	metadata := broker.NewMetadataCache()
	metadata.SetClusterInfo(broker.ClusterInfo{
		ClusterName:          cfg.ClusterName,
		MaxQoS:               mqtt.QoS(cfg.MaxQoS),
		MaxPacketSize:        config.DefaultMaxPacketSize,
		DefaultSessionExpiry: cfg.DefaultSessionExpiry,
	})

	seedUsers(store, metadata, cfg, lg)

	idempotency := broker.NewIdempotencyTable()
	ackWaiters := broker.NewAckWaiterRegistry(lg)
	heartbeats := broker.NewHeartbeatCache(cfg.Heartbeat.ShardCount)
	subscriptions := broker.NewSubscribeCache()
	authStore := auth.New(metadata)

	h := handler.New(metadata, idempotency, ackWaiters, heartbeats, subscriptions, store, store, authStore, lg)

	ctx, cancel := context.WithCancel(context.Background())

	tcpServer := transport.New(cfg.MQTTPort, h, lg)
	wsServer := transport.NewWebSocketListener(cfg.GRPCPort, "/mqtt", h, lg)

	// The push worker is the delivery path exercised by tests and by
	// any future admin/replay surface; this entrypoint just needs it
	// constructed and available to wire into those surfaces later.
	_ = broker.NewPushWorker(metadata, subscriptions, ackWaiters, tcpServer, lg)

	stopSubs := make(chan struct{})
	go subscriptions.Start(stopSubs)

	if err := tcpServer.Start(ctx); err != nil {
		lg.Fatal("tcp listener failed to start", logger.ErrorAttr(err))
	}
	lg.Info("mqtt listener started", logger.String("addr", cfg.MQTTPort))

	if cfg.GRPCPort != "" {
		if err := wsServer.Start(ctx); err != nil {
			lg.Fatal("websocket listener failed to start", logger.ErrorAttr(err))
		}
		lg.Info("websocket listener started", logger.String("addr", cfg.GRPCPort))
	}

	done := make(chan struct{})
	go gracefulShutdown(tcpServer, wsServer, cancel, stopSubs, done, lg)

	<-done
	lg.Info("graceful shutdown complete")
}

func seedUsers(store *storage.SQLiteStore, metadata *broker.MetadataCache, cfg *config.Config, lg *logger.Logger) {
	users, err := store.ListUsers()
	if err != nil {
		lg.Warn("failed to load persisted users", logger.ErrorAttr(err))
	}
	for _, u := range users {
		metadata.AddUser(u)
	}

	if cfg.System.SystemUser == "" {
		return
	}
	if _, ok := metadata.GetUser(cfg.System.SystemUser); ok {
		return
	}

	secret, err := hash.HashPasswd(cfg.System.SystemPassword, 10)
	if err != nil {
		lg.Warn("failed to hash system user password", logger.ErrorAttr(err))
		return
	}
	systemUser := broker.User{Username: cfg.System.SystemUser, PasswordSum: secret, IsSuperuser: true}
	metadata.AddUser(systemUser)
	if err := store.SaveUser(systemUser); err != nil {
		lg.Warn("failed to persist system user", logger.ErrorAttr(err))
	}
}

func gracefulShutdown(tcpServer *transport.TCPServer, wsServer *transport.WebSocketListener, cancel context.CancelFunc, stopSubs chan struct{}, done chan struct{}, lg *logger.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	lg.Info("graceful shutdown triggered")

	defer cancel()
	if err := tcpServer.Stop(); err != nil {
		lg.Warn("error stopping tcp listener", logger.ErrorAttr(err))
	}
	if err := wsServer.Stop(); err != nil {
		lg.Warn("error stopping websocket listener", logger.ErrorAttr(err))
	}
	close(stopSubs)
	time.Sleep(1 * time.Second)

	close(done)
}
