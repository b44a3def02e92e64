package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blockedby/hopii/internal/bot"
	"github.com/blockedby/hopii/internal/chatlog"
	"github.com/blockedby/hopii/internal/config"
	"github.com/blockedby/hopii/internal/console"
	"github.com/blockedby/hopii/internal/database"
	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/migrator"
	"github.com/blockedby/hopii/internal/nats"
	"github.com/blockedby/hopii/internal/publisher"
	"github.com/blockedby/hopii/internal/relevance"
	"github.com/blockedby/hopii/internal/responder"
	"github.com/blockedby/hopii/internal/scraper"
	"github.com/blockedby/hopii/internal/web"
	"github.com/blockedby/hopii/internal/web/handlers"
	"github.com/blockedby/hopii/internal/youtube"
	"github.com/blockedby/hopii/migrations"
)

func main() {
	authOnly := flag.Bool("auth", false, "authorize the youtube account, save the token and exit")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	if *authOnly {
		if err := authorize(ctx, cfg, os.Stdin, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("youtube authorization failed")
		}
		log.Info().Str("token_file", cfg.YTTokenFile).Msg("youtube token saved")
		return
	}

	log.Info().Str("bot", cfg.BotDisplayName).Msg("starting hopii")

	// 4. Relevance rules
	rcfg := relevance.DefaultConfig()
	if cfg.RelevanceConfigFile != "" {
		if rcfg, err = relevance.LoadConfig(cfg.RelevanceConfigFile); err != nil {
			log.Fatal().Err(err).Msg("failed to load relevance config")
		}
	}
	rcfg.BotName = cfg.BotDisplayName
	gate := relevance.NewGate(rcfg, log)

	// 5. YouTube api
	var api *youtube.Client
	if cfg.APIEnabled || cfg.LiveVideoID == "" {
		auth, err := youtube.NewAuth(cfg.YTClientSecretFile, cfg.YTTokenFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read youtube client secret")
		}
		svc, err := auth.Service(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create youtube service, run with -auth first")
		}
		api = youtube.NewClient(svc)
	}

	videoID := cfg.LiveVideoID
	if videoID == "" && cfg.ScraperEnabled {
		if videoID, err = api.LiveVideoID(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to resolve live video")
		}
		log.Info().Str("video_id", videoID).Msg("found live broadcast")
	}

	// 6. Producers
	var (
		producers []bot.Producer
		sender    bot.Sender
	)
	if cfg.ScraperEnabled {
		producers = append(producers, scraper.New(scraper.Config{
			VideoID:      videoID,
			BotName:      cfg.BotDisplayName,
			PollDelay:    cfg.ScraperPollDelay,
			SetupTimeout: cfg.ScraperSetupTimeout,
			MaxErrors:    cfg.ScraperMaxErrors,
		}, func() scraper.Browser {
			return scraper.NewChromeBrowser(cfg.ScraperHeadless)
		}, log))
	}
	if cfg.APIEnabled {
		poller := youtube.NewPoller(api, youtube.PollerConfig{
			BotName:    cfg.BotDisplayName,
			MaxResults: cfg.APIMaxResults,
			MaxErrors:  cfg.APIMaxErrors,
		}, youtube.DefaultRateLimiter(), log)
		producers = append(producers, poller)
		sender = poller
	}
	if cfg.ManualInputEnabled {
		producers = append(producers, console.New(os.Stdin, console.DefaultAuthor, log))
	}
	if len(producers) == 0 {
		log.Fatal().Msg("no chat producers enabled")
	}

	// 7. Responder
	var svc *responder.Service
	if cfg.ResponseEnabled {
		gen := responder.NewOpenAIGenerator(responder.Config{
			BaseURL:      cfg.LLMBaseURL,
			Model:        cfg.LLMModel,
			APIKey:       cfg.LLMAPIKey,
			MaxTokens:    cfg.LLMMaxTokens,
			Temperature:  float32(cfg.LLMTemperature),
			TopP:         float32(cfg.LLMTopP),
			Timeout:      time.Duration(cfg.LLMTimeoutSec) * time.Second,
			PromptPrefix: cfg.PromptPrefix,
		})
		filter := responder.NewFilter(responder.FilterConfig{
			Enabled:         cfg.ProfanityFilterEnabled,
			WordAllowlist:   cfg.ProfanityWordAllowlist,
			AuthorAllowlist: cfg.ProfanityAuthorAllow,
		})
		svc = responder.NewService(gen, filter, responder.NewContext(cfg.ResponseHistory), log)
	}

	// 8. Chat log
	var (
		logQueue   *chatlog.Queue
		logReader  handlers.ChatLogReader
		writerDone = make(chan struct{})
	)
	if cfg.ChatLogEnabled {
		store, closeDB, err := openChatLog(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open chat log")
		}
		defer closeDB()

		logQueue = &chatlog.Queue{}
		logReader = store
		writer := chatlog.NewWriter(logQueue, store, cfg.ChatLogWriteFrequency, log)
		go func() {
			defer close(writerDone)
			writer.Run(ctx)
		}()
	} else {
		close(writerDone)
	}

	// 9. WebSocket hub and event delivery
	hub := web.NewHub().WithLogger(log)
	go hub.Run()

	var notifier bot.Notifier = bot.NewHubNotifier(hub)
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(ctx, nats.Config{URL: cfg.NatsURL}, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, broadcasting directly")
		} else {
			defer nc.Close()
			stopRelay, err := web.NewRelay(nc, hub, log).Start(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to start websocket relay")
			}
			defer stopRelay()
			notifier = publisher.NewNATSPublisher(nc)
			log.Info().Str("url", cfg.NatsURL).Msg("publishing events to nats")
		}
	}

	// 10. Bot
	b := bot.New(bot.Config{
		BotName:         cfg.BotDisplayName,
		StartupDelay:    cfg.StartupDelay,
		MergerCapacity:  cfg.MergerHistory,
		ResponseEnabled: cfg.ResponseEnabled,
		SendEnabled:     cfg.SendEnabled && sender != nil,
	}, bot.Deps{
		Producers: producers,
		Gate:      gate,
		Responder: svc,
		Sender:    sender,
		ChatLog:   logQueue,
		Notifier:  notifier,
	}, log)

	// 11. Web server
	server := web.NewServer(&web.Config{
		Port:           cfg.HTTPPort,
		AllowedOrigins: cfg.HTTPAllowedOrigins,
	}, hub)
	server.RegisterStatusHandler(handlers.NewStatusHandler(b))
	server.RegisterOverlayHandler(handlers.NewOverlayHandler(web.NewTemplateEngine(nil), logReader, cfg.BotDisplayName, cfg.OverlayLimit))
	if logReader != nil {
		server.RegisterChatLogHandler(handlers.NewChatLogHandler(logReader, log))
	}

	log.Info().Int("port", cfg.HTTPPort).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}()

	// 12. Run until shutdown
	if err := b.Run(ctx); err != nil {
		log.Error().Err(err).Msg("bot failed")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	<-writerDone

	log.Info().Msg("shutdown complete")
}

// openChatLog connects to the database and makes sure the chat_log table
// exists. Postgres is migrated with the embedded migrations, sqlite through
// gorm.
func openChatLog(ctx context.Context, url string, log *logger.Logger) (*chatlog.GormStore, func(), error) {
	db, err := database.New(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}

	store := chatlog.NewGormStore(db.GORM)
	switch db.Dialect {
	case database.DialectPostgres:
		m, err := migrator.NewWithFS(migrations.FS)
		if err == nil {
			err = m.Up(ctx, url)
		}
		if err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("migrate chat log: %w", err)
		}
		log.Debug().Uint("schema_version", m.Latest()).Msg("chat log schema up to date")
	default:
		if err := store.AutoMigrate(); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("create chat log table: %w", err)
		}
	}
	log.Info().Str("dialect", string(db.Dialect)).Msg("chat log enabled")
	return store, closeDB, nil
}

// authorize runs the installed-app oauth flow on the terminal.
func authorize(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	auth, err := youtube.NewAuth(cfg.YTClientSecretFile, cfg.YTTokenFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Open this URL, approve access and paste the code:\n%s\n> ", auth.AuthCodeURL("hopii"))

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("no authorization code entered")
	}
	_, err = auth.Exchange(ctx, code)
	return err
}
