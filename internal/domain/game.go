package domain

// параметры поля и экономики, зашитые в программу
const (
	GridSize   = 8
	MaxPlayers = 4
	MaxUnits   = 20

	InitialGold = 100
	InitialWood = 50

	UnitCostGold    = 25
	DefenseCostWood = 30
	ResourcePerTick = 5
)

// Статус игры
type GameStatus string

const (
	StatusLobby    GameStatus = "lobby"
	StatusActive   GameStatus = "active"
	StatusFinished GameStatus = "finished"
)

// Режим стратегии агента
type StrategyMode string

const (
	StrategyAggressive StrategyMode = "aggressive"
	StrategyDefensive  StrategyMode = "defensive"
	StrategyBalanced   StrategyMode = "balanced"
	StrategyEconomic   StrategyMode = "economic"
)

// Тип ресурса на клетке
type ResourceKind string

const (
	ResourceGold ResourceKind = "gold"
	ResourceWood ResourceKind = "wood"
)

// Вариант клетки
type TileKind string

const (
	TileEmpty    TileKind = "empty"
	TileOwned    TileKind = "owned"
	TileResource TileKind = "resource"
)

// Клетка поля: ровно один вариант в каждый момент.
// Поля Owner/Units/HasDefense/HasMine имеют смысл только для owned,
// Resource/Amount - только для resource.
type Tile struct {
	Kind       TileKind     `json:"kind"`
	Owner      int          `json:"owner,omitempty"`
	Units      int          `json:"units,omitempty"`
	HasDefense bool         `json:"has_defense,omitempty"`
	HasMine    bool         `json:"has_mine,omitempty"`
	Resource   ResourceKind `json:"resource,omitempty"`
	Amount     uint64       `json:"amount,omitempty"`
}

// Поле 8x8, строки по y. Снимок неизменяемый: каждое обновление
// состояния приходит новым значением целиком.
type Grid [GridSize][GridSize]Tile

// Координата клетки
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Game - прочитанный снимок игрового аккаунта. Владеет им программа,
// клиент никогда не мутирует его локально.
type Game struct {
	GameID      int64      `json:"game_id"`
	Creator     string     `json:"creator"`
	StakeAmount int64      `json:"stake_amount"`
	PlayerCount int        `json:"player_count"`
	Status      GameStatus `json:"status"`
	Turn        int64      `json:"turn"`
	Winner      string     `json:"winner,omitempty"`
	Grid        Grid       `json:"grid"`
	CreatedAt   int64      `json:"created_at"`
	StartedAt   int64      `json:"started_at"`
	FinishedAt  int64      `json:"finished_at"`
}

// PlayerState - прочитанный снимок аккаунта участника. Создается
// программой при join, клиент его только читает.
type PlayerState struct {
	GameID       int64        `json:"game_id"`
	Player       string       `json:"player"`
	PlayerIndex  int          `json:"player_index"`
	Gold         int64        `json:"gold"`
	Wood         int64        `json:"wood"`
	Units        int          `json:"units"`
	Score        int64        `json:"score"`
	IsAlive      bool         `json:"is_alive"`
	StrategyMode StrategyMode `json:"strategy_mode"`
}

// стартовый угол 2x2 для индекса участника (справочно, раскладку делает программа)
func StartCorner(playerIndex int) (Coord, bool) {
	switch playerIndex {
	case 0:
		return Coord{0, 0}, true
	case 1:
		return Coord{6, 0}, true
	case 2:
		return Coord{0, 6}, true
	case 3:
		return Coord{6, 6}, true
	}
	return Coord{}, false
}
