package board

import (
	"ghostnet_client/internal/dispatch"
	"ghostnet_client/internal/domain"
	"ghostnet_client/internal/engine"
)

// TileView - клетка с подсказками отрисовки. Подсказки считаются
// теми же предикатами, что гоняет CLI: доска никогда не предлагает
// ход, который сама же считает нелегальным.
type TileView struct {
	X       int          `json:"x"`
	Y       int          `json:"y"`
	Tile    *domain.Tile `json:"tile,omitempty"` // nil если клетка скрыта туманом
	Visible bool         `json:"visible"`

	// клетка соседствует с выбранной (подсветка цели хода)
	AdjacentToSelection bool `json:"adjacent_to_selection,omitempty"`

	// с клетки можно ходить (своя, есть юниты)
	LegalSource bool `json:"legal_source,omitempty"`
}

// EconomyView - параметры экономики для отрисовки подсказок
// (стоимости кнопок, шкалы ресурсов)
type EconomyView struct {
	InitialGold     int `json:"initial_gold"`
	InitialWood     int `json:"initial_wood"`
	UnitCostGold    int `json:"unit_cost_gold"`
	DefenseCostWood int `json:"defense_cost_wood"`
	ResourcePerTick int `json:"resource_per_tick"`
	MaxUnits        int `json:"max_units"`
	MaxPlayers      int `json:"max_players"`
}

// GameView - модель представления доски
type GameView struct {
	Game      *domain.Game        `json:"game,omitempty"`
	Player    *domain.PlayerState `json:"player,omitempty"`
	Tiles     [][]TileView        `json:"tiles,omitempty"`
	Territory map[int]int         `json:"territory,omitempty"`
	Economy   EconomyView         `json:"economy"`
	Fog       bool                `json:"fog"`
}

// BuildView собирает представление снимка для зрителя с индексом
// viewer; selected - выбранная на доске клетка (может быть nil)
func BuildView(snap dispatch.Snapshot, fog bool, selected *domain.Coord) GameView {
	view := GameView{
		Game:   snap.Game,
		Player: snap.Player,
		Fog:    fog,
		Economy: EconomyView{
			InitialGold:     domain.InitialGold,
			InitialWood:     domain.InitialWood,
			UnitCostGold:    domain.UnitCostGold,
			DefenseCostWood: domain.DefenseCostWood,
			ResourcePerTick: domain.ResourcePerTick,
			MaxUnits:        domain.MaxUnits,
			MaxPlayers:      domain.MaxPlayers,
		},
	}
	if snap.Game == nil {
		return view
	}

	viewer := -1
	if snap.Player != nil {
		viewer = snap.Player.PlayerIndex
	}

	grid := &snap.Game.Grid
	view.Territory = engine.TerritoryCounts(grid)
	visible := engine.VisibleTiles(grid, viewer, fog)
	view.Tiles = make([][]TileView, domain.GridSize)
	for y := 0; y < domain.GridSize; y++ {
		view.Tiles[y] = make([]TileView, domain.GridSize)
		for x := 0; x < domain.GridSize; x++ {
			tv := TileView{
				X:       x,
				Y:       y,
				Visible: visible[y][x],
			}
			if tv.Visible {
				tile := grid[y][x]
				tv.Tile = &tile
				tv.LegalSource = engine.IsLegalMoveSource(tile, viewer)
				if selected != nil {
					tv.AdjacentToSelection = engine.IsAdjacent(*selected, domain.Coord{X: x, Y: y})
				}
			}
			view.Tiles[y][x] = tv
		}
	}
	return view
}
