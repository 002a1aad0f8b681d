package domain

// Вид действия, распознанного из команды пользователя
type ActionKind string

const (
	ActionCreateGame   ActionKind = "create"
	ActionJoinGame     ActionKind = "join"
	ActionStartGame    ActionKind = "start"
	ActionMoveUnits    ActionKind = "move"
	ActionTrainUnits   ActionKind = "train"
	ActionBuildDefense ActionKind = "defend"
	ActionCollect      ActionKind = "collect"
	ActionSetStrategy  ActionKind = "strategy"
	ActionEndGame      ActionKind = "end"
	ActionStatus       ActionKind = "status"
	ActionHelp         ActionKind = "help"

	// распознано, но не сопоставлено ни с одной командой:
	// действие не диспатчится, пользователь получает подтверждение
	ActionUnrecognized ActionKind = "unrecognized"
)

// Action - единственный выход интерпретатора и единственный вход
// диспетчера. Поля заполняются по виду действия.
type Action struct {
	Kind ActionKind `json:"kind"`

	GameID int64 `json:"game_id,omitempty"`
	Stake  int64 `json:"stake,omitempty"`

	From  Coord `json:"from,omitempty"`
	To    Coord `json:"to,omitempty"`
	Units int   `json:"units,omitempty"`

	At    Coord `json:"at,omitempty"`
	Count int   `json:"count,omitempty"`

	Mode StrategyMode `json:"mode,omitempty"`
}

// Submits сообщает, приводит ли действие к отправке инструкции в программу
func (a Action) Submits() bool {
	switch a.Kind {
	case ActionStatus, ActionHelp, ActionUnrecognized:
		return false
	}
	return true
}
