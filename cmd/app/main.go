package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostnet_client/internal/board"
	"ghostnet_client/internal/bot"
	"ghostnet_client/internal/chain"
	"ghostnet_client/internal/codec"
	"ghostnet_client/internal/config"
	"ghostnet_client/internal/dispatch"
	"ghostnet_client/internal/history"
	"ghostnet_client/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg := config.Load()

	// Инициализация структурированного логгера
	jsonLogs := os.Getenv("LOG_FORMAT") == "json"
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Init(logLevel, jsonLogs)
	log := logger.With("version", Version)

	board.InitJWT(cfg.BoardJWTSecret)

	player, err := chain.ParseAddress(cfg.Player)
	if err != nil {
		logger.Fatal("GHOSTNET_PLAYER не задан или некорректен", "error", err)
	}

	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		logger.Fatal("не удалось открыть историю", "path", cfg.HistoryDBPath, "error", err)
	}
	defer store.Close()

	// аномалии декодирования уходят и в локальный журнал
	codec.AnomalyHook = func(field, raw string) {
		if err := store.RecordAnomaly(context.Background(), field, raw); err != nil {
			log.Warn("не удалось записать аномалию", "error", err)
		}
	}

	endpoint := chain.Endpoint(cfg.RPCURL, cfg.HeliusAPIKey)
	client := chain.NewClient(endpoint, cfg.HeliusAPIKey, cfg.SigningKey)
	dispatcher := dispatch.NewDispatcher(client, store, player, cfg.FogOfWar)
	if cfg.GameID != 0 {
		dispatcher.SetGameID(cfg.GameID)
	}
	log.Info("session configured", "player", player.String(), "rpc", endpoint, "game_id", cfg.GameID)

	r := gin.Default()

	// CORS для прода и связи фронта с бэкендом(разные домены)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	hub := board.NewHub()
	handler := board.NewHandler(hub, dispatcher, cfg.FogOfWar)
	handler.RegisterRoutes(r)

	// каждый новый снимок состояния уходит в websocket-клиентов доски
	dispatcher.SetOnUpdate(handler.PushSnapshot)

	// Запуск агент-бота ПЕРЕД HTTP сервером чтобы callback был установлен
	var agentBot *bot.AgentBot
	if cfg.AgentBotEnabled {
		agentBot, err = bot.NewAgentBot(cfg.AgentBotToken, dispatcher, cfg.AgentChatIDs)
		if err != nil {
			log.Error("failed to start agent bot", "error", err)
		} else {
			go agentBot.Start()
			log.Info("agent bot started", "chat_ids", cfg.AgentChatIDs)
		}
	} else {
		log.Warn("agent bot не запущен: AGENT_BOT_TOKEN или AGENT_CHAT_IDS не настроены")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.BoardPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.BoardPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	// Фоновое обновление состояния с цепочки
	refresher := dispatch.NewRefresher(dispatcher, cfg.RefreshEvery)
	go refresher.Start()
	log.Info("refresher запущен", "interval", cfg.RefreshEvery)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Плавная остановка бота
	if agentBot != nil {
		agentBot.Stop()
	}

	refresher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
