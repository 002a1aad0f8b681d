// Package engine - предикаты видимости и легальности ходов. Семантика
// обязана совпадать с программой один в один: эти проверки решают,
// что интерфейс предлагает, а не что программа примет. Финальное
// слово всегда за программой, её отказ - штатный исход.
package engine

import "ghostnet_client/internal/domain"

// радиус обзора вокруг своих клеток (окно 5x5)
const visionRange = 2

// IsVisible сообщает, видна ли клетка (x,y) участнику viewer при
// включенном тумане войны. Клетка видна, если в окне 5x5 вокруг неё
// есть хоть одна клетка, принадлежащая viewer. Это ИЛИ по квадратной
// окрестности, не круговой радиус: диагональ на расстоянии 2 видна.
func IsVisible(grid *domain.Grid, x, y, viewer int, fogEnabled bool) bool {
	if !fogEnabled {
		return true
	}
	for dy := -visionRange; dy <= visionRange; dy++ {
		for dx := -visionRange; dx <= visionRange; dx++ {
			nx := x + dx
			ny := y + dy
			if nx < 0 || nx >= domain.GridSize || ny < 0 || ny >= domain.GridSize {
				continue
			}
			tile := grid[ny][nx]
			if tile.Kind == domain.TileOwned && tile.Owner == viewer {
				return true
			}
		}
	}
	return false
}

// IsAdjacent - соседство по 8 направлениям, сама клетка не сосед себе
func IsAdjacent(a, b domain.Coord) bool {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	return dx <= 1 && dy <= 1 && dx+dy > 0
}

// IsLegalMoveSource проверяет, можно ли ходить с клетки: она должна
// принадлежать viewer и иметь хотя бы одного юнита
func IsLegalMoveSource(tile domain.Tile, viewer int) bool {
	return tile.Kind == domain.TileOwned && tile.Owner == viewer && tile.Units > 0
}

// VisibleTiles считает маску видимости всего поля за один проход
// (для доски, которой нужны все клетки сразу)
func VisibleTiles(grid *domain.Grid, viewer int, fogEnabled bool) [domain.GridSize][domain.GridSize]bool {
	var mask [domain.GridSize][domain.GridSize]bool
	for y := 0; y < domain.GridSize; y++ {
		for x := 0; x < domain.GridSize; x++ {
			mask[y][x] = IsVisible(grid, x, y, viewer, fogEnabled)
		}
	}
	return mask
}

// InBounds проверяет, что координата лежит в пределах поля
func InBounds(c domain.Coord) bool {
	return c.X >= 0 && c.X < domain.GridSize && c.Y >= 0 && c.Y < domain.GridSize
}

// TerritoryCounts считает клетки каждого участника
func TerritoryCounts(grid *domain.Grid) map[int]int {
	counts := make(map[int]int)
	for y := 0; y < domain.GridSize; y++ {
		for x := 0; x < domain.GridSize; x++ {
			if grid[y][x].Kind == domain.TileOwned {
				counts[grid[y][x].Owner]++
			}
		}
	}
	return counts
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
