// Package interpreter превращает свободный текст пользователя в
// типизированное действие. Входы бывают неоднозначны, поэтому шаблоны
// проверяются в жестко зафиксированном порядке приоритета:
//
//  1. явное "strategy <режим>"
//  2. create / join / start / move / train / defend
//  3. голые ключевые слова стратегий ("aggressive", "defend mode",
//     "farm mode") - ДО общего collect, иначе "farm mode" ушел бы
//     в сбор ресурсов
//  4. collect / harvest / farm
//  5. status / report
//  6. help
//  7. ничего не совпало - подтверждаем, но ничего не диспатчим
package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ghostnet_client/internal/domain"
)

var (
	reStrategy = regexp.MustCompile(`(?:set\s+)?strategy\s+(aggressive|defensive|economic|balanced)`)

	reCreate = regexp.MustCompile(`^create\s*(?:a\s+)?(?:new\s+)?game`)
	reStake  = regexp.MustCompile(`stake\s+(\d+)`)
	reJoin   = regexp.MustCompile(`join\s+game\s+#?(\d+)`)
	reStart  = regexp.MustCompile(`start\s+(?:the\s+)?game\s*#?(\d+)?`)
	reMove   = regexp.MustCompile(`move\s+(\d+)?\s*units?\s+(?:from\s+)?(\d+)\s*,\s*(\d+)\s+to\s+(\d+)\s*,\s*(\d+)`)
	reTrain  = regexp.MustCompile(`train\s+(\d+)?\s*units?\s+(?:at\s+)?(\d+)\s*,\s*(\d+)`)
	reDefend = regexp.MustCompile(`(?:build\s+)?def(?:ense|end)\s+(?:at\s+)?(\d+)\s*,\s*(\d+)`)

	reAggressive = regexp.MustCompile(`aggressive|attack\s+mode`)
	reDefensive  = regexp.MustCompile(`defensive|defend\s+mode`)
	reEconomic   = regexp.MustCompile(`economic|farm\s+mode`)
	reBalanced   = regexp.MustCompile(`balanced|balance\s+mode`)

	reCollect = regexp.MustCompile(`collect|harvest|farm`)
	reStatus  = regexp.MustCompile(`status|report|info|score`)
	reHelp    = regexp.MustCompile(`help|commands|what can`)
)

// Parse распознает свободный текст. Возвращаемое действие с видом
// ActionUnrecognized означает "понято, но не распознано".
func Parse(input string) domain.Action {
	lower := strings.ToLower(strings.TrimSpace(input))

	if m := reStrategy.FindStringSubmatch(lower); m != nil {
		return domain.Action{Kind: domain.ActionSetStrategy, Mode: domain.StrategyMode(m[1])}
	}

	if reCreate.MatchString(lower) {
		stake := 0
		if m := reStake.FindStringSubmatch(lower); m != nil {
			stake = atoi(m[1])
		}
		return domain.Action{Kind: domain.ActionCreateGame, Stake: int64(stake)}
	}

	if m := reJoin.FindStringSubmatch(lower); m != nil {
		return domain.Action{Kind: domain.ActionJoinGame, GameID: int64(atoi(m[1]))}
	}

	if m := reStart.FindStringSubmatch(lower); m != nil {
		action := domain.Action{Kind: domain.ActionStartGame}
		if m[1] != "" {
			action.GameID = int64(atoi(m[1]))
		}
		return action
	}

	if m := reMove.FindStringSubmatch(lower); m != nil {
		units := 1
		if m[1] != "" {
			units = atoi(m[1])
		}
		return domain.Action{
			Kind:  domain.ActionMoveUnits,
			Units: units,
			From:  domain.Coord{X: atoi(m[2]), Y: atoi(m[3])},
			To:    domain.Coord{X: atoi(m[4]), Y: atoi(m[5])},
		}
	}

	if m := reTrain.FindStringSubmatch(lower); m != nil {
		count := 1
		if m[1] != "" {
			count = atoi(m[1])
		}
		return domain.Action{
			Kind:  domain.ActionTrainUnits,
			Count: count,
			At:    domain.Coord{X: atoi(m[2]), Y: atoi(m[3])},
		}
	}

	if m := reDefend.FindStringSubmatch(lower); m != nil {
		return domain.Action{
			Kind: domain.ActionBuildDefense,
			At:   domain.Coord{X: atoi(m[1]), Y: atoi(m[2])},
		}
	}

	// голые ключевые слова стратегий раньше collect: "farm mode" -
	// смена стратегии, а не сбор
	if reAggressive.MatchString(lower) {
		return domain.Action{Kind: domain.ActionSetStrategy, Mode: domain.StrategyAggressive}
	}
	if reDefensive.MatchString(lower) {
		return domain.Action{Kind: domain.ActionSetStrategy, Mode: domain.StrategyDefensive}
	}
	if reEconomic.MatchString(lower) {
		return domain.Action{Kind: domain.ActionSetStrategy, Mode: domain.StrategyEconomic}
	}
	if reBalanced.MatchString(lower) {
		return domain.Action{Kind: domain.ActionSetStrategy, Mode: domain.StrategyBalanced}
	}

	if reCollect.MatchString(lower) {
		return domain.Action{Kind: domain.ActionCollect}
	}

	if reStatus.MatchString(lower) {
		return domain.Action{Kind: domain.ActionStatus}
	}

	if reHelp.MatchString(lower) {
		return domain.Action{Kind: domain.ActionHelp}
	}

	return domain.Action{Kind: domain.ActionUnrecognized}
}

// ParseCoord разбирает координату в форме "x,y"
func ParseCoord(s string) (domain.Coord, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return domain.Coord{}, fmt.Errorf("неверная координата %q: ожидается x,y", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return domain.Coord{}, fmt.Errorf("неверная координата %q: ожидается x,y", s)
	}
	if x < 0 || x >= domain.GridSize || y < 0 || y >= domain.GridSize {
		return domain.Coord{}, fmt.Errorf("координата %q вне поля %dx%d", s, domain.GridSize, domain.GridSize)
	}
	return domain.Coord{X: x, Y: y}, nil
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
