package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки клиента из окружения
type Config struct {
	// RPC
	RPCURL       string // явный override конечной точки
	HeliusAPIKey string // ключ Helius, выбирает Helius devnet endpoint
	Network      string // devnet или mainnet

	// подпись транзакций делегирована гейтвею, клиент только передает ключ
	SigningKey string

	// локальная сессия
	GameID       int64
	Player       string // base58 адрес участника
	FogOfWar     bool
	RefreshEvery time.Duration

	// web board
	BoardPort      string
	BoardJWTSecret string

	// telegram агент
	AgentBotToken   string
	AgentChatIDs    []int64
	AgentBotEnabled bool

	// локальная история
	HistoryDBPath string
}

// Load читает .env (если есть) и переменные окружения
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL:         os.Getenv("GHOSTNET_RPC_URL"),
		HeliusAPIKey:   os.Getenv("HELIUS_API_KEY"),
		Network:        getEnv("GHOSTNET_NETWORK", "devnet"),
		SigningKey:     os.Getenv("SOLANA_PRIVATE_KEY"),
		Player:         os.Getenv("GHOSTNET_PLAYER"),
		FogOfWar:       getEnv("GHOSTNET_FOG", "true") != "false",
		RefreshEvery:   getDuration("GHOSTNET_REFRESH_INTERVAL", 5*time.Second),
		BoardPort:      getEnv("BOARD_PORT", "8090"),
		BoardJWTSecret: os.Getenv("BOARD_JWT_SECRET"),
		AgentBotToken:  os.Getenv("AGENT_BOT_TOKEN"),
		HistoryDBPath:  getEnv("GHOSTNET_HISTORY_DB", "ghostnet_history.db"),
	}

	if v := os.Getenv("GHOSTNET_GAME_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.GameID = id
		}
	}

	// список chat id, которым разрешено командовать агентом
	if v := os.Getenv("AGENT_CHAT_IDS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				cfg.AgentChatIDs = append(cfg.AgentChatIDs, id)
			}
		}
	}
	cfg.AgentBotEnabled = cfg.AgentBotToken != "" && len(cfg.AgentChatIDs) > 0

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
