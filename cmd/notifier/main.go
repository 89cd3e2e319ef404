package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"esalama/internal/config"
	"esalama/internal/notify"
	"esalama/internal/queue"
	"esalama/internal/store"
)

// Notifier consumes queued deliveries and pushes them through the
// configured outbound backends.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "esalama:deliveries")
	}

	senders := []notify.Sender{notify.ConsoleSender{}}
	if cfg.NotifyBackend == "push" {
		gw := notify.NewPushGateway(cfg.PushGatewayURL, cfg.PushSkip)
		senders = append(senders, gw)
		if gw.Skip {
			log.Println("push gateway in skip mode, deliveries acknowledged without calling out")
		} else {
			log.Printf("push gateway: %s", gw.BaseURL)
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("notifier started, waiting for deliveries...")
	for msg := range messages {
		if msg.Type != notify.QueueMessageType {
			continue
		}

		var d notify.Delivery
		if err := json.Unmarshal(msg.Body, &d); err != nil {
			log.Printf("bad delivery payload: %v", err)
			continue
		}

		notify.Dispatch(ctx, senders, d)
	}

	log.Println("notifier stopped")
}
