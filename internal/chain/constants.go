package chain

import "time"

// адрес программы в сети
const ProgramIDBase58 = "9LuS7xu5DLUac1sbFsF2uBYAdnfJrrs1C2JHgdYfjmtQ"

// seed-префиксы для выводимых адресов аккаунтов
var (
	GameSeed   = []byte("game")
	PlayerSeed = []byte("player")
)

// наименьшая единица ставки (1 SOL = 10^9 лампортов)
const LamportsPerSOL = 1_000_000_000

// конечные точки RPC
const (
	DevnetRPC       = "https://api.devnet.solana.com"
	HeliusDevnetRPC = "https://devnet.helius-rpc.com"
	ERDevnetUS      = "https://devnet-us.magicblock.app"
	ERDevnetEU      = "https://devnet-eu.magicblock.app"
	ERDevnetTEE     = "https://tee.magicblock.app"
)

const (
	// сколько ждать подтверждения транзакции
	ConfirmTimeout = 60 * time.Second

	// пауза между опросами статуса транзакции
	ConfirmPollInterval = 2 * time.Second
)

// Endpoint выбирает базовый URL: явный override (URL или короткое имя
// известной точки), иначе Helius при наличии ключа, иначе публичный devnet
func Endpoint(override, heliusAPIKey string) string {
	switch override {
	case "":
		// выбор ниже
	case "devnet-us":
		return ERDevnetUS
	case "devnet-eu":
		return ERDevnetEU
	case "tee":
		return ERDevnetTEE
	default:
		return override
	}
	if heliusAPIKey != "" {
		return HeliusDevnetRPC + "/?api-key=" + heliusAPIKey
	}
	return DevnetRPC
}

// конвертирует SOL в лампорты
func SOLToLamports(sol float64) int64 {
	return int64(sol * LamportsPerSOL)
}

// конвертирует лампорты в SOL
func LamportsToSOL(lamports int64) float64 {
	return float64(lamports) / LamportsPerSOL
}
