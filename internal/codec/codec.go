// Package codec декодирует аккаунты программы из их JSON-представления
// в доменную модель. Варианты tagged union определяются по тому, какой
// единственный ключ присутствует в записи; порядок проверки ключей
// фиксирован и совпадает с порядком объявления вариантов в программе.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"ghostnet_client/internal/domain"
	"ghostnet_client/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счетчик записей, не совпавших ни с одним известным вариантом.
// Декодер в этом случае сознательно берет первый объявленный вариант
// (так же кодирует сама программа), но каждый такой случай учитывается:
// молча маскировать реальную порчу данных нельзя.
var DecodeAnomalies = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ghostnet_decode_anomalies_total",
	Help: "Account records that matched no known tagged-union variant",
})

// AnomalyHook, если установлен, вызывается на каждую аномалию
// (например для записи в локальный журнал)
var AnomalyHook func(field, raw string)

// DecodeGame декодирует игровой аккаунт
func DecodeGame(raw []byte) (*domain.Game, error) {
	var rec struct {
		GameID      json.RawMessage   `json:"gameId"`
		Creator     string            `json:"creator"`
		StakeAmount json.RawMessage   `json:"stakeAmount"`
		PlayerCount int               `json:"playerCount"`
		Status      json.RawMessage   `json:"status"`
		Turn        json.RawMessage   `json:"turn"`
		Winner      *string           `json:"winner"`
		Grid        []json.RawMessage `json:"grid"`
		CreatedAt   json.RawMessage   `json:"createdAt"`
		StartedAt   json.RawMessage   `json:"startedAt"`
		FinishedAt  json.RawMessage   `json:"finishedAt"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("неразборчивый игровой аккаунт: %w", err)
	}

	game := &domain.Game{
		GameID:      asInt64(rec.GameID),
		Creator:     rec.Creator,
		StakeAmount: asInt64(rec.StakeAmount),
		PlayerCount: rec.PlayerCount,
		Status:      decodeStatus(rec.Status),
		Turn:        asInt64(rec.Turn),
		CreatedAt:   asInt64(rec.CreatedAt),
		StartedAt:   asInt64(rec.StartedAt),
		FinishedAt:  asInt64(rec.FinishedAt),
	}
	if rec.Winner != nil {
		game.Winner = *rec.Winner
	}

	grid, err := decodeGrid(rec.Grid)
	if err != nil {
		return nil, err
	}
	game.Grid = grid

	return game, nil
}

// DecodePlayer декодирует аккаунт участника
func DecodePlayer(raw []byte) (*domain.PlayerState, error) {
	var rec struct {
		GameID       json.RawMessage `json:"gameId"`
		Player       string          `json:"player"`
		PlayerIndex  int             `json:"playerIndex"`
		Gold         json.RawMessage `json:"gold"`
		Wood         json.RawMessage `json:"wood"`
		Units        int             `json:"units"`
		Score        json.RawMessage `json:"score"`
		IsAlive      bool            `json:"isAlive"`
		StrategyMode json.RawMessage `json:"strategyMode"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("неразборчивый аккаунт участника: %w", err)
	}

	return &domain.PlayerState{
		GameID:       asInt64(rec.GameID),
		Player:       rec.Player,
		PlayerIndex:  rec.PlayerIndex,
		Gold:         asInt64(rec.Gold),
		Wood:         asInt64(rec.Wood),
		Units:        rec.Units,
		Score:        asInt64(rec.Score),
		IsAlive:      rec.IsAlive,
		StrategyMode: decodeStrategy(rec.StrategyMode),
	}, nil
}

// decodeGrid принимает поле как 8 строк по 8 клеток либо как плоский
// массив из 64 клеток (обе формы встречаются в ответах гейтвея)
func decodeGrid(rows []json.RawMessage) (domain.Grid, error) {
	var grid domain.Grid

	if len(rows) == domain.GridSize*domain.GridSize {
		for i, rawTile := range rows {
			grid[i/domain.GridSize][i%domain.GridSize] = decodeTile(rawTile)
		}
		return grid, nil
	}

	if len(rows) != domain.GridSize {
		return grid, fmt.Errorf("неверный размер поля: %d строк", len(rows))
	}
	for y, rawRow := range rows {
		var row []json.RawMessage
		if err := json.Unmarshal(rawRow, &row); err != nil {
			return grid, fmt.Errorf("неразборчивая строка поля %d: %w", y, err)
		}
		if len(row) != domain.GridSize {
			return grid, fmt.Errorf("неверная длина строки поля %d: %d", y, len(row))
		}
		for x, rawTile := range row {
			grid[y][x] = decodeTile(rawTile)
		}
	}
	return grid, nil
}

// decodeTile выбирает вариант клетки по присутствующему ключу.
// Порядок объявления: empty, owned, resource; ни одного известного
// ключа - empty плюс учет аномалии.
func decodeTile(raw json.RawMessage) domain.Tile {
	rec := asObject(raw)

	if _, ok := rec["empty"]; ok {
		return domain.Tile{Kind: domain.TileEmpty}
	}

	if ownedRaw, ok := rec["owned"]; ok {
		var owned struct {
			Player     int             `json:"player"`
			Units      json.RawMessage `json:"units"`
			HasDefense bool            `json:"hasDefense"`
			HasMine    bool            `json:"hasMine"`
		}
		if err := json.Unmarshal(ownedRaw, &owned); err == nil {
			return domain.Tile{
				Kind:       domain.TileOwned,
				Owner:      owned.Player,
				Units:      int(asInt64(owned.Units)),
				HasDefense: owned.HasDefense,
				HasMine:    owned.HasMine,
			}
		}
	}

	if resRaw, ok := rec["resource"]; ok {
		var res struct {
			ResourceType json.RawMessage `json:"resourceType"`
			Amount       json.RawMessage `json:"amount"`
		}
		if err := json.Unmarshal(resRaw, &res); err == nil {
			return domain.Tile{
				Kind:     domain.TileResource,
				Resource: decodeResourceKind(res.ResourceType),
				Amount:   uint64(asInt64(res.Amount)),
			}
		}
	}

	anomaly("tile", raw)
	return domain.Tile{Kind: domain.TileEmpty}
}

func decodeStatus(raw json.RawMessage) domain.GameStatus {
	rec := asObject(raw)
	if _, ok := rec["lobby"]; ok {
		return domain.StatusLobby
	}
	if _, ok := rec["active"]; ok {
		return domain.StatusActive
	}
	if _, ok := rec["finished"]; ok {
		return domain.StatusFinished
	}
	anomaly("status", raw)
	return domain.StatusLobby
}

func decodeStrategy(raw json.RawMessage) domain.StrategyMode {
	rec := asObject(raw)
	if _, ok := rec["aggressive"]; ok {
		return domain.StrategyAggressive
	}
	if _, ok := rec["defensive"]; ok {
		return domain.StrategyDefensive
	}
	if _, ok := rec["balanced"]; ok {
		return domain.StrategyBalanced
	}
	if _, ok := rec["economic"]; ok {
		return domain.StrategyEconomic
	}
	anomaly("strategyMode", raw)
	return domain.StrategyAggressive
}

func decodeResourceKind(raw json.RawMessage) domain.ResourceKind {
	rec := asObject(raw)
	if _, ok := rec["gold"]; ok {
		return domain.ResourceGold
	}
	if _, ok := rec["wood"]; ok {
		return domain.ResourceWood
	}
	anomaly("resourceType", raw)
	return domain.ResourceGold
}

// EncodeStrategy кодирует режим стратегии в формат программы
// (объект с единственным ключом варианта)
func EncodeStrategy(mode domain.StrategyMode) map[string]any {
	switch mode {
	case domain.StrategyAggressive, domain.StrategyDefensive, domain.StrategyEconomic:
		return map[string]any{string(mode): map[string]any{}}
	default:
		return map[string]any{string(domain.StrategyBalanced): map[string]any{}}
	}
}

func anomaly(field string, raw json.RawMessage) {
	DecodeAnomalies.Inc()
	logger.Warn("decode anomaly: запись без известного варианта", "field", field, "raw", string(raw))
	if AnomalyHook != nil {
		AnomalyHook(field, string(raw))
	}
}

func asObject(raw json.RawMessage) map[string]json.RawMessage {
	rec := map[string]json.RawMessage{}
	_ = json.Unmarshal(raw, &rec)
	return rec
}

// asInt64 нормализует числовое поле: нативное число, десятичная
// строка или обертка произвольной точности {"value": "..."} сводятся
// к int64 на этой границе. Дальше доменной модели две формы не живут.
func asInt64(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if v, err := num.Int64(); err == nil {
			return v
		}
		// дробное или переполненное: берем в пределах безопасного диапазона
		if f, err := num.Float64(); err == nil && f >= math.MinInt64 && f <= math.MaxInt64 {
			return int64(f)
		}
		return 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
		return 0
	}

	var wrapped struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Value) > 0 {
		return asInt64(wrapped.Value)
	}

	return 0
}
