// Package dispatch связывает распознанные действия с программой:
// вывод адресов -> кодирование аргументов -> отправка -> повторное
// чтение состояния. Состояние одного действия: Idle -> Submitting ->
// Confirmed | Rejected; одновременно в полете может быть только одно.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ghostnet_client/internal/chain"
	"ghostnet_client/internal/codec"
	"ghostnet_client/internal/domain"
	"ghostnet_client/internal/engine"
	"ghostnet_client/internal/logger"
)

// верхняя граница длины сообщения об ошибке при показе пользователю
const MaxErrorDisplayLen = 200

// Gateway - операции гейтвея, нужные диспетчеру
type Gateway interface {
	GetGameAccount(ctx context.Context, address chain.PublicKey) (json.RawMessage, error)
	GetPlayerAccount(ctx context.Context, address chain.PublicKey) (json.RawMessage, error)
	SubmitInstruction(ctx context.Context, ix chain.Instruction) (string, error)
	WaitForTransaction(ctx context.Context, signature string, timeout time.Duration) error
}

// Recorder - локальный журнал отправок (опционален)
type Recorder interface {
	RecordSubmission(ctx context.Context, actionKind string, gameID int64, signature string, submitErr error) error
}

// Snapshot - последнее декодированное состояние. Заменяется целиком:
// частичных слияний полей не бывает, декодирование идемпотентно,
// последний завершившийся refresh побеждает.
type Snapshot struct {
	Game      *domain.Game
	Player    *domain.PlayerState
	FetchedAt time.Time
}

// Result - исход выполненного действия
type Result struct {
	Action     domain.Action
	GameID     int64
	Signature  string
	JoinTxSig  string // подпись авто-join при создании игры
	Message    string
	Dispatched bool
}

type Dispatcher struct {
	gateway  Gateway
	recorder Recorder
	player   chain.PublicKey
	fog      bool

	busyMu sync.Mutex
	busy   bool

	snapMu   sync.RWMutex
	snapshot Snapshot
	gameID   int64

	onUpdate func(Snapshot)
	randID   func() int64
	log      *slog.Logger
}

// NewDispatcher создает диспетчер для одного участника
func NewDispatcher(gateway Gateway, recorder Recorder, player chain.PublicKey, fog bool) *Dispatcher {
	return &Dispatcher{
		gateway:  gateway,
		recorder: recorder,
		player:   player,
		fog:      fog,
		randID:   func() int64 { return rand.Int63n(1_000_000) },
		log:      logger.Component("dispatch"),
	}
}

// SetOnUpdate устанавливает callback на замену снимка (для push-поверхностей)
func (d *Dispatcher) SetOnUpdate(fn func(Snapshot)) {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	d.onUpdate = fn
}

// SetGameID задает игру текущей сессии
func (d *Dispatcher) SetGameID(id int64) {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	d.gameID = id
}

// GameID возвращает игру текущей сессии
func (d *Dispatcher) GameID() int64 {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.gameID
}

// Player возвращает адрес участника сессии
func (d *Dispatcher) Player() chain.PublicKey {
	return d.player
}

// Current возвращает последний снимок состояния
func (d *Dispatcher) Current() Snapshot {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.snapshot
}

// Do выполняет одно действие. Для отправляемых действий: busy-флаг
// запрещает перекрытие, после подтверждения состояние перечитывается
// целиком (никаких оптимистичных локальных правок), при отказе
// кэш не трогается и причина возвращается как есть.
func (d *Dispatcher) Do(ctx context.Context, action domain.Action) (*Result, error) {
	switch action.Kind {
	case domain.ActionStatus:
		msg, err := d.statusReport(ctx, action.GameID)
		if err != nil {
			return nil, err
		}
		return &Result{Action: action, Message: msg}, nil
	case domain.ActionHelp:
		return &Result{Action: action, Message: HelpText}, nil
	case domain.ActionUnrecognized:
		return &Result{Action: action, Message: UnrecognizedReply}, nil
	}

	if d.player.IsZero() {
		return nil, errors.New("адрес участника не настроен")
	}

	d.busyMu.Lock()
	if d.busy {
		d.busyMu.Unlock()
		return nil, errors.New("предыдущее действие еще выполняется")
	}
	d.busy = true
	d.busyMu.Unlock()
	defer func() {
		d.busyMu.Lock()
		d.busy = false
		d.busyMu.Unlock()
	}()

	gameID := action.GameID
	if gameID == 0 {
		gameID = d.GameID()
	}

	if action.Kind == domain.ActionCreateGame {
		return d.createGame(ctx, action)
	}

	if gameID == 0 {
		return nil, &chain.MissingParameterError{Flag: "game"}
	}

	if err := d.precheck(action); err != nil {
		return nil, err
	}

	ix, err := d.buildInstruction(action.Kind, gameID, action)
	if err != nil {
		return nil, err
	}

	d.log.Info("отправка инструкции", "kind", ix.Kind, "game", gameID)
	sig, err := d.gateway.SubmitInstruction(ctx, ix)
	d.record(ctx, string(action.Kind), gameID, sig, err)
	if err != nil {
		// отказ программы или транспорта: кэш не мутируется
		return nil, err
	}

	// ответ гейтвея уже несет подтверждение; ожидание здесь только
	// страхует от рассинхронизации перед перечитыванием состояния
	if err := d.gateway.WaitForTransaction(ctx, sig, chain.ConfirmTimeout); err != nil {
		d.log.Warn("транзакция не дождалась подтверждения", "signature", sig, "error", err)
	}

	d.SetGameID(gameID)
	if err := d.Refresh(ctx); err != nil {
		d.log.Warn("не удалось перечитать состояние после подтверждения", "error", err)
	}

	return &Result{
		Action:     action,
		GameID:     gameID,
		Signature:  sig,
		Message:    confirmMessage(action, gameID),
		Dispatched: true,
	}, nil
}

// createGame: случайный идентификатор, создание и сразу авто-join
func (d *Dispatcher) createGame(ctx context.Context, action domain.Action) (*Result, error) {
	gameID := d.randID()

	createIx, err := d.buildInstruction(domain.ActionCreateGame, gameID, action)
	if err != nil {
		return nil, err
	}
	createSig, err := d.gateway.SubmitInstruction(ctx, createIx)
	d.record(ctx, string(domain.ActionCreateGame), gameID, createSig, err)
	if err != nil {
		return nil, err
	}

	// join зависит от созданного аккаунта игры, дожидаемся его
	if err := d.gateway.WaitForTransaction(ctx, createSig, chain.ConfirmTimeout); err != nil {
		d.log.Warn("создание не дождалось подтверждения", "signature", createSig, "error", err)
	}

	joinIx, err := d.buildInstruction(domain.ActionJoinGame, gameID, domain.Action{Kind: domain.ActionJoinGame})
	if err != nil {
		return nil, err
	}
	joinSig, err := d.gateway.SubmitInstruction(ctx, joinIx)
	d.record(ctx, string(domain.ActionJoinGame), gameID, joinSig, err)
	if err != nil {
		return nil, err
	}

	if err := d.gateway.WaitForTransaction(ctx, joinSig, chain.ConfirmTimeout); err != nil {
		d.log.Warn("авто-join не дождался подтверждения", "signature", joinSig, "error", err)
	}

	d.SetGameID(gameID)
	if err := d.Refresh(ctx); err != nil {
		d.log.Warn("не удалось перечитать состояние после создания", "error", err)
	}

	gameAddr, _, _ := chain.DeriveGameAddress(gameID)
	msg := fmt.Sprintf("✅ Game created! Game ID: %d\n   Game address: %s\n   Share Game ID %d with other players so they can join.",
		gameID, gameAddr, gameID)

	return &Result{
		Action:     action,
		GameID:     gameID,
		Signature:  createSig,
		JoinTxSig:  joinSig,
		Message:    msg,
		Dispatched: true,
	}, nil
}

// precheck гоняет те же предикаты, что и интерфейс, по кэшированному
// снимку. Снимок может быть устаревшим - тогда последнее слово за
// программой, её отказ здесь штатный исход, не ошибка клиента.
func (d *Dispatcher) precheck(action domain.Action) error {
	snap := d.Current()

	switch action.Kind {
	case domain.ActionMoveUnits:
		if !engine.InBounds(action.From) || !engine.InBounds(action.To) {
			return fmt.Errorf("координаты вне поля %dx%d", domain.GridSize, domain.GridSize)
		}
		if !engine.IsAdjacent(action.From, action.To) {
			return fmt.Errorf("клетки (%d,%d) и (%d,%d) не соседние", action.From.X, action.From.Y, action.To.X, action.To.Y)
		}
		if snap.Game == nil || snap.Player == nil {
			return nil // состояния еще нет, решит программа
		}
		tile := snap.Game.Grid[action.From.Y][action.From.X]
		if !engine.IsLegalMoveSource(tile, snap.Player.PlayerIndex) {
			return fmt.Errorf("клетка (%d,%d) не ваша или на ней нет юнитов", action.From.X, action.From.Y)
		}

	case domain.ActionTrainUnits:
		if !engine.InBounds(action.At) {
			return fmt.Errorf("координаты вне поля %dx%d", domain.GridSize, domain.GridSize)
		}
		if snap.Player == nil {
			return nil
		}
		if need := int64(domain.UnitCostGold * action.Count); snap.Player.Gold < need {
			return fmt.Errorf("не хватает золота: нужно %d, есть %d", need, snap.Player.Gold)
		}
		if snap.Player.Units+action.Count > domain.MaxUnits {
			return fmt.Errorf("лимит юнитов %d будет превышен", domain.MaxUnits)
		}

	case domain.ActionBuildDefense:
		if !engine.InBounds(action.At) {
			return fmt.Errorf("координаты вне поля %dx%d", domain.GridSize, domain.GridSize)
		}
		if snap.Player != nil && snap.Player.Wood < domain.DefenseCostWood {
			return fmt.Errorf("не хватает дерева: нужно %d, есть %d", domain.DefenseCostWood, snap.Player.Wood)
		}
	}
	return nil
}

// buildInstruction выводит адреса и кодирует аргументы инструкции
func (d *Dispatcher) buildInstruction(kind domain.ActionKind, gameID int64, action domain.Action) (chain.Instruction, error) {
	gameAddr, _, err := chain.DeriveGameAddress(gameID)
	if err != nil {
		return chain.Instruction{}, err
	}

	ix := chain.Instruction{
		Kind:     string(kind),
		GameID:   gameID,
		Signer:   d.player.String(),
		Accounts: map[string]string{"game": gameAddr.String()},
		Args:     map[string]any{},
	}

	needsPlayerAccount := true
	switch kind {
	case domain.ActionCreateGame, domain.ActionStartGame, domain.ActionEndGame:
		needsPlayerAccount = false
	}
	if needsPlayerAccount {
		playerAddr, _, err := chain.DerivePlayerAddress(gameID, d.player)
		if err != nil {
			return chain.Instruction{}, err
		}
		ix.Accounts["playerState"] = playerAddr.String()
	}

	switch kind {
	case domain.ActionCreateGame:
		ix.Args["gameId"] = gameID
		ix.Args["stakeAmount"] = action.Stake
	case domain.ActionJoinGame:
		ix.Args["gameId"] = gameID
	case domain.ActionMoveUnits:
		ix.Args["fromX"] = action.From.X
		ix.Args["fromY"] = action.From.Y
		ix.Args["toX"] = action.To.X
		ix.Args["toY"] = action.To.Y
		ix.Args["unitCount"] = action.Units
	case domain.ActionTrainUnits:
		ix.Args["x"] = action.At.X
		ix.Args["y"] = action.At.Y
		ix.Args["count"] = action.Count
	case domain.ActionBuildDefense:
		ix.Args["x"] = action.At.X
		ix.Args["y"] = action.At.Y
	case domain.ActionSetStrategy:
		ix.Args["mode"] = codec.EncodeStrategy(action.Mode)
	}

	return ix, nil
}

// Refresh перечитывает и декодирует оба аккаунта и заменяет снимок
// целиком. Гонка с периодическим обновлением допустима: последний
// завершившийся заменяет снимок атомарно.
func (d *Dispatcher) Refresh(ctx context.Context) error {
	gameID := d.GameID()
	if gameID == 0 {
		return nil
	}

	gameAddr, _, err := chain.DeriveGameAddress(gameID)
	if err != nil {
		return err
	}

	rawGame, err := d.gateway.GetGameAccount(ctx, gameAddr)
	if err != nil {
		return err
	}

	snap := Snapshot{FetchedAt: time.Now()}
	if rawGame != nil {
		game, err := codec.DecodeGame(rawGame)
		if err != nil {
			return err
		}
		snap.Game = game
	}

	playerAddr, _, err := chain.DerivePlayerAddress(gameID, d.player)
	if err != nil {
		return err
	}
	rawPlayer, err := d.gateway.GetPlayerAccount(ctx, playerAddr)
	if err != nil {
		return err
	}
	if rawPlayer != nil {
		player, err := codec.DecodePlayer(rawPlayer)
		if err != nil {
			return err
		}
		snap.Player = player
	}

	d.snapMu.Lock()
	d.snapshot = snap
	update := d.onUpdate
	d.snapMu.Unlock()

	if update != nil {
		update(snap)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, kind string, gameID int64, sig string, submitErr error) {
	submissionsTotal.WithLabelValues(kind).Inc()
	if submitErr != nil {
		rejectionsTotal.WithLabelValues(kind).Inc()
	}
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordSubmission(ctx, kind, gameID, sig, submitErr); err != nil {
		d.log.Warn("не удалось записать журнал отправки", "error", err)
	}
}

// statusReport собирает текстовый отчет о состоянии игры и участника
func (d *Dispatcher) statusReport(ctx context.Context, gameID int64) (string, error) {
	if gameID == 0 {
		gameID = d.GameID()
	}
	if gameID == 0 {
		return "", &chain.MissingParameterError{Flag: "game"}
	}

	if d.GameID() != gameID {
		d.SetGameID(gameID)
	}
	if err := d.Refresh(ctx); err != nil {
		return "", err
	}

	snap := d.Current()
	if snap.Game == nil {
		return fmt.Sprintf("❌ Game #%d not found.", gameID), nil
	}

	var b strings.Builder
	game := snap.Game
	fmt.Fprintf(&b, "📊 Game #%d Status\n", gameID)
	fmt.Fprintf(&b, "   Status: %s\n", game.Status)
	fmt.Fprintf(&b, "   Players: %d\n", game.PlayerCount)
	fmt.Fprintf(&b, "   Turn: %d\n", game.Turn)
	fmt.Fprintf(&b, "   Stake: %d lamports (%.3f SOL)\n", game.StakeAmount, chain.LamportsToSOL(game.StakeAmount))
	fmt.Fprintf(&b, "   Creator: %s\n", game.Creator)

	counts := engine.TerritoryCounts(&game.Grid)
	if len(counts) > 0 {
		b.WriteString("\n   🗺 Territory:\n")
		for idx := 0; idx < domain.MaxPlayers; idx++ {
			if n, ok := counts[idx]; ok {
				fmt.Fprintf(&b, "      P%d: %d tiles\n", idx, n)
			}
		}
	}

	if snap.Player != nil {
		p := snap.Player
		b.WriteString("\n   👤 Your State:\n")
		fmt.Fprintf(&b, "      Gold: %d\n", p.Gold)
		fmt.Fprintf(&b, "      Wood: %d\n", p.Wood)
		fmt.Fprintf(&b, "      Units: %d/%d\n", p.Units, domain.MaxUnits)
		fmt.Fprintf(&b, "      Score: %d\n", p.Score)
		fmt.Fprintf(&b, "      Alive: %t\n", p.IsAlive)
		fmt.Fprintf(&b, "      Strategy: %s\n", p.StrategyMode)
		if corner, ok := domain.StartCorner(p.PlayerIndex); ok {
			fmt.Fprintf(&b, "      Start corner: (%d,%d)\n", corner.X, corner.Y)
		}
	} else {
		b.WriteString("\n   ⚠ You haven't joined this game yet.\n")
	}

	return b.String(), nil
}

func confirmMessage(action domain.Action, gameID int64) string {
	switch action.Kind {
	case domain.ActionJoinGame:
		return fmt.Sprintf("✅ Joined game #%d!", gameID)
	case domain.ActionStartGame:
		return fmt.Sprintf("✅ Game #%d started!", gameID)
	case domain.ActionMoveUnits:
		return fmt.Sprintf("✅ Moved %d units from (%d,%d) to (%d,%d)",
			action.Units, action.From.X, action.From.Y, action.To.X, action.To.Y)
	case domain.ActionTrainUnits:
		return fmt.Sprintf("✅ Trained %d units at (%d,%d)", action.Count, action.At.X, action.At.Y)
	case domain.ActionBuildDefense:
		return fmt.Sprintf("✅ Defense built at (%d,%d)", action.At.X, action.At.Y)
	case domain.ActionCollect:
		return "✅ Resources collected!"
	case domain.ActionSetStrategy:
		return fmt.Sprintf("✅ Strategy set to: %s", action.Mode)
	case domain.ActionEndGame:
		return fmt.Sprintf("🏁 Game #%d ended!", gameID)
	}
	return "✅ Done"
}

// FormatUserError приводит ошибку к показу: текст как есть,
// обрезанный до разумной длины. Граница считается в рунах:
// срез по байтам порвал бы многобайтовый символ посередине.
func FormatUserError(err error) string {
	msg := err.Error()
	runes := []rune(msg)
	if len(runes) > MaxErrorDisplayLen {
		msg = string(runes[:MaxErrorDisplayLen]) + "…"
	}
	return msg
}

// тексты агентских ответов
const (
	UnrecognizedReply = "🤖 Understood, but I couldn't match that to a command. Try \"help\"."

	HelpText = "Available commands:\n" +
		"• \"attack\" / \"aggressive\" — aggressive mode\n" +
		"• \"defend\" / \"defensive\" — defensive mode\n" +
		"• \"resource\" / \"farm\" — economic mode\n" +
		"• \"balance\" — balanced mode\n" +
		"• \"move N units from x,y to x,y\" — move units\n" +
		"• \"train N units at x,y\" — train units\n" +
		"• \"defend at x,y\" — build defense\n" +
		"• \"collect\" — collect resources\n" +
		"• \"status\" — status report"
)
