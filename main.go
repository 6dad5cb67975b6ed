package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbot "smmpost-bot/internal/bot"
	"smmpost-bot/internal/config"
	"smmpost-bot/internal/database"
	"smmpost-bot/internal/handlers"
	"smmpost-bot/internal/keepalive"
	"smmpost-bot/internal/locales"
	"smmpost-bot/internal/poster"
	"smmpost-bot/internal/publisher"
	"smmpost-bot/internal/registrar"
	"smmpost-bot/internal/scheduler"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize localization bundle
	locales.Init()

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and run migrations
	db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing PostgreSQL connection: %v", err)
		} else {
			log.Println("Disconnected from PostgreSQL.")
		}
	}()
	if err := database.Migrate(ctx, db); err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Create repository instances
	operatorRepo := database.NewPostgresOperatorRepository(db)
	channelRepo := database.NewPostgresChannelRepository(db)
	postRepo := database.NewPostgresPostRepository(db)
	settingsRepo := database.NewPostgresSettingsRepository(db)

	// Audit logging goes to MongoDB when configured, otherwise to a no-op
	// logger.
	var postLogger database.PostLogger
	var actionLogger database.UserActionLogger
	if cfg.MongoDBURI != "" {
		mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal(err)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
				sentry.CaptureException(err)
			} else {
				log.Println("Disconnected from MongoDB.")
			}
		}()
		mongoLogger := database.NewMongoLogger(mongoDB)
		postLogger = mongoLogger
		actionLogger = mongoLogger
	} else {
		log.Println("MongoDB not configured, audit logging disabled")
		nop := database.NewNopLogger()
		postLogger = nop
		actionLogger = nop
	}

	// --- Bot Initialization ---
	// 1. Create the raw telego bot instance for the configuration bot
	var tgBot *telego.Bot
	if cfg.Debug {
		tgBot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		tgBot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	// 2. Create the posting-bot client factory and channel registrar
	clients := poster.NewTelegoFactory()
	channelRegistrar := registrar.New(operatorRepo, channelRepo, clients)

	// 3. Create the publisher and the scheduler that drives it
	pub, err := publisher.New(publisher.Deps{
		Posts:      postRepo,
		Channels:   channelRepo,
		Operators:  operatorRepo,
		Settings:   settingsRepo,
		Clients:    clients,
		PostLogger: postLogger,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	sched := scheduler.New(pub.Publish, cfg.Location)

	// A crash between claim and mark/release leaves posts in the
	// publishing state. Nothing is in flight yet, so reset them before the
	// scheduler starts.
	recovered, err := postRepo.RecoverPublishing(ctx)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	if recovered > 0 {
		log.Printf("Recovered %d post(s) stuck in publishing", recovered)
	}

	// Reinstall every operator's posting slots so schedules survive
	// restarts.
	allSettings, err := settingsRepo.ListAll(ctx)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	for _, s := range allSettings {
		sched.Install(s.UserID, s.PostsPerDay)
	}
	log.Printf("Reinstalled posting schedules for %d operators", len(allSettings))

	// 4. Create message handler with dependencies
	messageHandler, err := handlers.NewMessageHandler(handlers.Deps{
		Operators:    operatorRepo,
		Channels:     channelRepo,
		Posts:        postRepo,
		Settings:     settingsRepo,
		Registrar:    channelRegistrar,
		Scheduler:    sched,
		Clients:      clients,
		ActionLogger: actionLogger,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	if err := messageHandler.SetupCommands(ctx, tgBot); err != nil {
		log.Printf("Failed to register bot commands: %v", err)
		sentry.CaptureException(err)
	}

	// 5. Start long polling and the bot wrapper
	updates, err := tgBot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	appBot, err := appbot.New(appbot.Deps{
		Bot:         tgBot,
		UpdatesChan: updates,
		Handler:     messageHandler,
		Debug:       cfg.Debug,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	go appBot.Start(ctx)
	go sched.Run(ctx)

	// Keep-alive server for hosting platforms that sleep idle web services
	if cfg.KeepAlivePort != "" {
		srv := keepalive.NewServer(cfg.KeepAlivePort, cfg.Version)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("Keep-alive server error: %v", err)
				sentry.CaptureException(err)
			}
		}()
		go keepalive.SelfPing(ctx, cfg.KeepAliveURL)
	}

	// Wait for context cancellation (e.g., SIGINT, SIGTERM)
	<-ctx.Done()

	log.Println("Shutting down bot...")
	log.Println("Bot shutdown complete.")
}
