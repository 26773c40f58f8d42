package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/maaaruch/memory-tribunal/internal/app"
	"github.com/maaaruch/memory-tribunal/internal/chart"
	"github.com/maaaruch/memory-tribunal/internal/config"
	"github.com/maaaruch/memory-tribunal/internal/feedback"
	"github.com/maaaruch/memory-tribunal/internal/hub"
	"github.com/maaaruch/memory-tribunal/internal/storage"
	"github.com/maaaruch/memory-tribunal/internal/votes"
	"github.com/maaaruch/memory-tribunal/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	slot, closeSlot := openSlot(ctx, cfg)
	defer closeSlot()

	liveHub := hub.New()
	go liveHub.Run(ctx)

	notifiers := feedback.Multi{liveHub}
	if cfg.RabbitMQURL != "" {
		conn, err := feedback.DialAMQP(cfg.RabbitMQURL, 5, 5*time.Second)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer conn.Close()

		ch, err := feedback.OpenQueue(conn, cfg.RabbitMQQueue)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer ch.Close()

		notifiers = append(notifiers, feedback.NewAMQPPublisher(ch, cfg.RabbitMQQueue))
		log.Printf("Publishing votes to queue %q", cfg.RabbitMQQueue)
	}

	bar := chart.NewBar(liveHub)
	store := votes.Open(ctx, slot, bar,
		votes.WithKey(cfg.SlotKey),
		votes.WithNotifier(notifiers),
	)
	defer store.Wait()
	t := store.Tally()
	log.Printf("Tally loaded: yes=%d no=%d", t.Yes, t.No)

	if cfg.TelegramToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		bot.Debug = cfg.BotDebug
		log.Printf("Bot running as @%s", bot.Self.UserName)

		go app.New(bot, store).Run(ctx)
	}

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: web.NewServer(store, bar, liveHub).Router(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

func openSlot(ctx context.Context, cfg config.Config) (storage.Slot, func()) {
	if cfg.RedisURL != "" {
		client, err := storage.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("could not connect to Redis: %v", err)
		}
		log.Println("Using Redis slot at", cfg.RedisURL)
		return storage.NewRedis(client), func() { _ = client.Close() }
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	slot := storage.NewSQLite(db)
	if err := slot.InitSchema(); err != nil {
		log.Fatalf("init schema: %v", err)
	}
	log.Println("Using SQLite slot at", cfg.DBPath)
	return slot, func() { _ = db.Close() }
}
