package engine

import (
	"testing"

	"ghostnet_client/internal/domain"
)

// поле с единственной клеткой участника 0 в (4,4)
func singleOwnerGrid() *domain.Grid {
	var grid domain.Grid
	grid[4][4] = domain.Tile{Kind: domain.TileOwned, Owner: 0, Units: 3}
	return &grid
}

func TestIsVisibleWindow(t *testing.T) {
	grid := singleOwnerGrid()

	cases := []struct {
		x, y int
		want bool
	}{
		{4, 4, true}, // своя клетка
		{2, 2, true}, // угол окна 5x5
		{6, 6, true},
		{2, 6, true},
		{6, 2, true},
		{4, 2, true},
		{1, 4, false}, // на один шаг за окном
		{4, 1, false},
		{7, 7, false},
		{0, 0, false},
	}
	for _, tc := range cases {
		if got := IsVisible(grid, tc.x, tc.y, 0, true); got != tc.want {
			t.Errorf("IsVisible(%d,%d) = %v, ожидали %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestIsVisibleOtherViewer(t *testing.T) {
	grid := singleOwnerGrid()
	// у участника 1 нет клеток, ему не видно ничего
	if IsVisible(grid, 4, 4, 1, true) {
		t.Fatal("клетка чужого участника не должна быть видна")
	}
}

func TestIsVisibleFogDisabled(t *testing.T) {
	grid := singleOwnerGrid()
	if !IsVisible(grid, 0, 0, 1, false) {
		t.Fatal("при выключенном тумане видно все поле")
	}
}

func TestIsVisibleClippedAtEdge(t *testing.T) {
	var grid domain.Grid
	grid[0][0] = domain.Tile{Kind: domain.TileOwned, Owner: 2, Units: 1}
	// окно обрезается границей поля, но клетки внутри него видны
	if !IsVisible(&grid, 2, 2, 2, true) {
		t.Fatal("угловое окно обзора обрезано неверно")
	}
	if IsVisible(&grid, 3, 0, 2, true) {
		t.Fatal("(3,0) лежит за окном обзора от (0,0)")
	}
}

func TestVisibleTilesMatchesPointwise(t *testing.T) {
	grid := singleOwnerGrid()
	mask := VisibleTiles(grid, 0, true)
	for y := 0; y < domain.GridSize; y++ {
		for x := 0; x < domain.GridSize; x++ {
			if mask[y][x] != IsVisible(grid, x, y, 0, true) {
				t.Fatalf("маска расходится с поклеточной проверкой в (%d,%d)", x, y)
			}
		}
	}
}

func TestIsAdjacent(t *testing.T) {
	c := domain.Coord{X: 3, Y: 3}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			other := domain.Coord{X: 3 + dx, Y: 3 + dy}
			want := dx != 0 || dy != 0
			if got := IsAdjacent(c, other); got != want {
				t.Errorf("IsAdjacent(%v, %v) = %v, ожидали %v", c, other, got, want)
			}
			// соседство симметрично
			if IsAdjacent(c, other) != IsAdjacent(other, c) {
				t.Errorf("соседство несимметрично для %v и %v", c, other)
			}
		}
	}
	if IsAdjacent(c, domain.Coord{X: 5, Y: 3}) {
		t.Fatal("клетка через одну не сосед")
	}
}

func TestIsLegalMoveSource(t *testing.T) {
	owned := domain.Tile{Kind: domain.TileOwned, Owner: 1, Units: 2}
	if !IsLegalMoveSource(owned, 1) {
		t.Fatal("своя клетка с юнитами должна быть легальным источником")
	}
	if IsLegalMoveSource(owned, 0) {
		t.Fatal("чужая клетка не источник")
	}
	if IsLegalMoveSource(domain.Tile{Kind: domain.TileOwned, Owner: 1, Units: 0}, 1) {
		t.Fatal("клетка без юнитов не источник")
	}
	if IsLegalMoveSource(domain.Tile{Kind: domain.TileEmpty}, 1) {
		t.Fatal("пустая клетка не источник")
	}
}

func TestInBounds(t *testing.T) {
	if !InBounds(domain.Coord{X: 0, Y: 0}) || !InBounds(domain.Coord{X: 7, Y: 7}) {
		t.Fatal("границы поля включительны")
	}
	for _, c := range []domain.Coord{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 8, Y: 0}, {X: 0, Y: 8}} {
		if InBounds(c) {
			t.Errorf("%v вне поля", c)
		}
	}
}

func TestTerritoryCounts(t *testing.T) {
	var grid domain.Grid
	grid[0][0] = domain.Tile{Kind: domain.TileOwned, Owner: 0}
	grid[0][1] = domain.Tile{Kind: domain.TileOwned, Owner: 0}
	grid[7][7] = domain.Tile{Kind: domain.TileOwned, Owner: 3}
	grid[5][5] = domain.Tile{Kind: domain.TileResource, Resource: domain.ResourceGold}

	counts := TerritoryCounts(&grid)
	if counts[0] != 2 || counts[3] != 1 {
		t.Fatalf("счет территории неверен: %v", counts)
	}
	if _, ok := counts[1]; ok {
		t.Fatal("у участника 1 не должно быть территории")
	}
}
