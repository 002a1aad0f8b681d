package codec

import (
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ghostnet_client/internal/domain"
)

// собирает JSON поля 8x8: все клетки пустые, кроме переданных переопределений
func buildGridJSON(t *testing.T, overrides map[[2]int]string, flat bool) string {
	t.Helper()
	var rows []string
	for y := 0; y < domain.GridSize; y++ {
		var tiles []string
		for x := 0; x < domain.GridSize; x++ {
			tile := `{"empty":{}}`
			if v, ok := overrides[[2]int{x, y}]; ok {
				tile = v
			}
			tiles = append(tiles, tile)
		}
		rows = append(rows, "["+strings.Join(tiles, ",")+"]")
	}
	if flat {
		// плоская форма: те же 64 клетки одним массивом
		joined := strings.Join(rows, ",")
		joined = strings.ReplaceAll(joined, "],[", ",")
		return joined
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func gameJSON(t *testing.T, grid string) []byte {
	t.Helper()
	return []byte(fmt.Sprintf(`{
		"gameId": 7,
		"creator": "9LuS7xu5DLUac1sbFsF2uBYAdnfJrrs1C2JHgdYfjmtQ",
		"stakeAmount": "1000000",
		"playerCount": 2,
		"status": {"active": {}},
		"turn": 3,
		"winner": null,
		"grid": %s,
		"createdAt": {"value": "1700000000"},
		"startedAt": 1700000100,
		"finishedAt": 0
	}`, grid))
}

func TestDecodeGameNestedGrid(t *testing.T) {
	grid := buildGridJSON(t, map[[2]int]string{
		{0, 0}: `{"owned":{"player":0,"units":5,"hasDefense":true,"hasMine":false}}`,
		{3, 4}: `{"resource":{"resourceType":{"wood":{}},"amount":"40"}}`,
	}, false)

	game, err := DecodeGame(gameJSON(t, grid))
	if err != nil {
		t.Fatalf("DecodeGame: %v", err)
	}

	if game.GameID != 7 {
		t.Fatalf("gameId: получили %d", game.GameID)
	}
	// строковая форма числа нормализуется на границе декодера
	if game.StakeAmount != 1000000 {
		t.Fatalf("stakeAmount: получили %d", game.StakeAmount)
	}
	if game.Status != domain.StatusActive {
		t.Fatalf("status: получили %q", game.Status)
	}
	// обертка {"value": "..."} тоже нормализуется
	if game.CreatedAt != 1700000000 {
		t.Fatalf("createdAt: получили %d", game.CreatedAt)
	}

	owned := game.Grid[0][0]
	if owned.Kind != domain.TileOwned || owned.Owner != 0 || owned.Units != 5 || !owned.HasDefense {
		t.Fatalf("клетка (0,0): %+v", owned)
	}
	// grid[y][x]: клетка с x=3,y=4
	res := game.Grid[4][3]
	if res.Kind != domain.TileResource || res.Resource != domain.ResourceWood || res.Amount != 40 {
		t.Fatalf("клетка (3,4): %+v", res)
	}
	if game.Grid[1][1].Kind != domain.TileEmpty {
		t.Fatalf("клетка (1,1) должна быть пустой: %+v", game.Grid[1][1])
	}
}

func TestDecodeGameFlatGrid(t *testing.T) {
	grid := buildGridJSON(t, map[[2]int]string{
		{2, 1}: `{"owned":{"player":3,"units":1,"hasDefense":false,"hasMine":true}}`,
	}, true)

	game, err := DecodeGame(gameJSON(t, grid))
	if err != nil {
		t.Fatalf("DecodeGame: %v", err)
	}
	tile := game.Grid[1][2]
	if tile.Kind != domain.TileOwned || tile.Owner != 3 || !tile.HasMine {
		t.Fatalf("плоская форма поля декодирована неверно: %+v", tile)
	}
}

func TestDecodeGameBadGridSize(t *testing.T) {
	if _, err := DecodeGame(gameJSON(t, `[{"empty":{}}]`)); err == nil {
		t.Fatal("поле неверного размера должно давать ошибку")
	}
}

func TestDecodeTileUnknownVariantCountsAnomaly(t *testing.T) {
	before := testutil.ToFloat64(DecodeAnomalies)

	grid := buildGridJSON(t, map[[2]int]string{
		{5, 5}: `{"wormhole":{"depth":9}}`,
	}, false)
	game, err := DecodeGame(gameJSON(t, grid))
	if err != nil {
		t.Fatalf("неизвестный вариант не должен ронять декодер: %v", err)
	}

	// неизвестный вариант сводится к первому объявленному
	if game.Grid[5][5].Kind != domain.TileEmpty {
		t.Fatalf("ожидали empty, получили %+v", game.Grid[5][5])
	}
	after := testutil.ToFloat64(DecodeAnomalies)
	if after != before+1 {
		t.Fatalf("счетчик аномалий: было %v, стало %v", before, after)
	}
}

func TestDecodePlayer(t *testing.T) {
	raw := []byte(`{
		"gameId": "7",
		"player": "9LuS7xu5DLUac1sbFsF2uBYAdnfJrrs1C2JHgdYfjmtQ",
		"playerIndex": 1,
		"gold": 125,
		"wood": "20",
		"units": 4,
		"score": {"value": 9},
		"isAlive": true,
		"strategyMode": {"economic": {}}
	}`)

	p, err := DecodePlayer(raw)
	if err != nil {
		t.Fatalf("DecodePlayer: %v", err)
	}
	if p.GameID != 7 || p.PlayerIndex != 1 || p.Gold != 125 || p.Wood != 20 || p.Score != 9 {
		t.Fatalf("числовые поля: %+v", p)
	}
	if p.StrategyMode != domain.StrategyEconomic {
		t.Fatalf("strategyMode: получили %q", p.StrategyMode)
	}
	if !p.IsAlive {
		t.Fatal("isAlive потерян")
	}
}

func TestDecodeStrategyUnknownDefaultsToFirstVariant(t *testing.T) {
	before := testutil.ToFloat64(DecodeAnomalies)
	got := decodeStrategy([]byte(`{"chaotic":{}}`))
	if got != domain.StrategyAggressive {
		t.Fatalf("неизвестная стратегия должна сводиться к aggressive, получили %q", got)
	}
	if testutil.ToFloat64(DecodeAnomalies) != before+1 {
		t.Fatal("аномалия не учтена")
	}
}

func TestEncodeStrategy(t *testing.T) {
	enc := EncodeStrategy(domain.StrategyDefensive)
	if _, ok := enc["defensive"]; !ok || len(enc) != 1 {
		t.Fatalf("EncodeStrategy(defensive): %v", enc)
	}
	// неизвестный режим уходит как balanced
	enc = EncodeStrategy(domain.StrategyMode("weird"))
	if _, ok := enc["balanced"]; !ok {
		t.Fatalf("EncodeStrategy(weird): %v", enc)
	}
}

func TestAsInt64Forms(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`{"value": 42}`, 42},
		{`{"value": "42"}`, 42},
		{`null`, 0},
		{``, 0},
		{`"мусор"`, 0},
	}
	for _, tc := range cases {
		if got := asInt64([]byte(tc.raw)); got != tc.want {
			t.Errorf("asInt64(%s) = %d, ожидали %d", tc.raw, got, tc.want)
		}
	}
}
