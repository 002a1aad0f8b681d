package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"ghostnet_client/internal/chain"
	"ghostnet_client/internal/domain"
)

// fakeGateway - скриптуемый гейтвей для тестов диспетчера
type fakeGateway struct {
	mu         sync.Mutex
	submits    []chain.Instruction
	submitSig  string
	submitErr  error
	gameJSON   json.RawMessage
	playerJSON json.RawMessage

	// если заданы, submit сигналит о входе и блокируется до закрытия blockCh
	enteredOnce sync.Once
	enteredCh   chan struct{}
	blockCh     chan struct{}
}

func (g *fakeGateway) GetGameAccount(ctx context.Context, _ chain.PublicKey) (json.RawMessage, error) {
	return g.gameJSON, nil
}

func (g *fakeGateway) GetPlayerAccount(ctx context.Context, _ chain.PublicKey) (json.RawMessage, error) {
	return g.playerJSON, nil
}

func (g *fakeGateway) SubmitInstruction(ctx context.Context, ix chain.Instruction) (string, error) {
	if g.enteredCh != nil {
		g.enteredOnce.Do(func() { close(g.enteredCh) })
	}
	if g.blockCh != nil {
		<-g.blockCh
	}
	g.mu.Lock()
	g.submits = append(g.submits, ix)
	g.mu.Unlock()
	if g.submitErr != nil {
		return "", g.submitErr
	}
	return g.submitSig, nil
}

func (g *fakeGateway) WaitForTransaction(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func (g *fakeGateway) submitted() []chain.Instruction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]chain.Instruction(nil), g.submits...)
}

// fakeRecorder запоминает записи журнала
type fakeRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *fakeRecorder) RecordSubmission(_ context.Context, kind string, gameID int64, sig string, submitErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, fmt.Sprintf("%s/%d/%s/%v", kind, gameID, sig, submitErr != nil))
	return nil
}

func testPlayerKey(t *testing.T) chain.PublicKey {
	t.Helper()
	pk, err := chain.ParseAddress("9LuS7xu5DLUac1sbFsF2uBYAdnfJrrs1C2JHgdYfjmtQ")
	if err != nil {
		t.Fatalf("тестовый адрес: %v", err)
	}
	return pk
}

// плоское поле 8x8: все клетки пустые, кроме (0,0) у участника 0
func testGameJSON(gameID int64) json.RawMessage {
	tiles := make([]string, domain.GridSize*domain.GridSize)
	for i := range tiles {
		tiles[i] = `{"empty":{}}`
	}
	tiles[0] = `{"owned":{"player":0,"units":5,"hasDefense":false,"hasMine":false}}`
	return json.RawMessage(fmt.Sprintf(`{
		"gameId": %d, "creator": "c", "stakeAmount": 0, "playerCount": 2,
		"status": {"active": {}}, "turn": 1, "winner": null,
		"grid": [%s], "createdAt": 0, "startedAt": 0, "finishedAt": 0
	}`, gameID, strings.Join(tiles, ",")))
}

func testPlayerJSON(gameID int64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"gameId": %d, "player": "p", "playerIndex": 0, "gold": 100,
		"wood": 50, "units": 5, "score": 1, "isAlive": true,
		"strategyMode": {"balanced": {}}
	}`, gameID))
}

func newTestDispatcher(t *testing.T, gw *fakeGateway) (*Dispatcher, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	d := NewDispatcher(gw, rec, testPlayerKey(t), true)
	return d, rec
}

func TestDoMoveSubmitsAndRefreshes(t *testing.T) {
	gw := &fakeGateway{
		submitSig:  "sig-move",
		gameJSON:   testGameJSON(7),
		playerJSON: testPlayerJSON(7),
	}
	d, rec := newTestDispatcher(t, gw)
	d.SetGameID(7)

	result, err := d.Do(context.Background(), domain.Action{
		Kind:  domain.ActionMoveUnits,
		Units: 2,
		From:  domain.Coord{X: 0, Y: 0},
		To:    domain.Coord{X: 1, Y: 0},
	})
	if err != nil {
		t.Fatalf("Do(move): %v", err)
	}

	subs := gw.submitted()
	if len(subs) != 1 {
		t.Fatalf("ожидали одну отправку, получили %d", len(subs))
	}
	ix := subs[0]
	if ix.Kind != "move" || ix.GameID != 7 {
		t.Fatalf("инструкция: %+v", ix)
	}
	// адреса выведены из id игры и участника
	gameAddr, _, _ := chain.DeriveGameAddress(7)
	if ix.Accounts["game"] != gameAddr.String() {
		t.Fatalf("адрес игры: %s", ix.Accounts["game"])
	}
	playerAddr, _, _ := chain.DerivePlayerAddress(7, d.Player())
	if ix.Accounts["playerState"] != playerAddr.String() {
		t.Fatalf("адрес участника: %s", ix.Accounts["playerState"])
	}
	if ix.Args["fromX"] != 0 || ix.Args["toX"] != 1 || ix.Args["unitCount"] != 2 {
		t.Fatalf("аргументы: %v", ix.Args)
	}

	if !result.Dispatched || result.Signature != "sig-move" {
		t.Fatalf("результат: %+v", result)
	}
	if !strings.Contains(result.Message, "Moved 2 units from (0,0) to (1,0)") {
		t.Fatalf("сообщение: %q", result.Message)
	}

	// после подтверждения состояние перечитано целиком
	snap := d.Current()
	if snap.Game == nil || snap.Game.GameID != 7 || snap.Player == nil {
		t.Fatalf("снимок после подтверждения: %+v", snap)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.entries) != 1 || !strings.HasPrefix(rec.entries[0], "move/7/sig-move") {
		t.Fatalf("журнал: %v", rec.entries)
	}
}

func TestDoRejectionKeepsSnapshot(t *testing.T) {
	gw := &fakeGateway{
		submitSig:  "sig",
		gameJSON:   testGameJSON(7),
		playerJSON: testPlayerJSON(7),
	}
	d, _ := newTestDispatcher(t, gw)
	d.SetGameID(7)

	// прогреваем кэш состояния
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := d.Current()

	rejection := &chain.ProgramRejection{
		Reason: "Error: Not enough gold",
		Logs:   []string{"Program log: Instruction: TrainUnits", "Program log: Error: Not enough gold"},
	}
	gw.submitErr = rejection

	_, err := d.Do(context.Background(), domain.Action{
		Kind:  domain.ActionTrainUnits,
		Count: 3,
		At:    domain.Coord{X: 0, Y: 0},
	})
	if err == nil {
		t.Fatal("отказ программы должен вернуться как ошибка")
	}
	var got *chain.ProgramRejection
	if !errors.As(err, &got) || got.Reason != rejection.Reason {
		t.Fatalf("причина отказа должна дойти дословно: %v", err)
	}

	// кэш не мутирован: тот же снимок, никаких оптимистичных правок
	after := d.Current()
	if after.FetchedAt != before.FetchedAt || after.Game != before.Game {
		t.Fatal("отказ программы не должен трогать снимок состояния")
	}
}

func TestDoBusyRejectsOverlap(t *testing.T) {
	gw := &fakeGateway{
		submitSig:  "sig",
		gameJSON:   testGameJSON(7),
		playerJSON: testPlayerJSON(7),
		enteredCh:  make(chan struct{}),
		blockCh:    make(chan struct{}),
	}
	d, _ := newTestDispatcher(t, gw)
	d.SetGameID(7)

	done := make(chan error, 1)
	go func() {
		_, err := d.Do(context.Background(), domain.Action{Kind: domain.ActionCollect})
		done <- err
	}()

	// ждем пока первое действие дойдет до отправки и займет busy-флаг
	<-gw.enteredCh

	_, overlapErr := d.Do(context.Background(), domain.Action{Kind: domain.ActionCollect})
	if overlapErr == nil || !strings.Contains(overlapErr.Error(), "еще выполняется") {
		t.Fatalf("перекрытие действий должно отклоняться: %v", overlapErr)
	}

	close(gw.blockCh)
	if err := <-done; err != nil {
		t.Fatalf("первое действие должно завершиться успешно: %v", err)
	}
}

func TestCreateGameAutoJoins(t *testing.T) {
	gw := &fakeGateway{
		submitSig:  "sig",
		gameJSON:   testGameJSON(12345),
		playerJSON: testPlayerJSON(12345),
	}
	d, rec := newTestDispatcher(t, gw)
	d.randID = func() int64 { return 12345 }

	result, err := d.Do(context.Background(), domain.Action{Kind: domain.ActionCreateGame, Stake: 500})
	if err != nil {
		t.Fatalf("Do(create): %v", err)
	}

	subs := gw.submitted()
	if len(subs) != 2 {
		t.Fatalf("создание должно отправлять create и join, получили %d", len(subs))
	}
	if subs[0].Kind != "create" || subs[1].Kind != "join" {
		t.Fatalf("порядок инструкций: %s, %s", subs[0].Kind, subs[1].Kind)
	}
	if subs[0].Args["gameId"] != int64(12345) || subs[0].Args["stakeAmount"] != int64(500) {
		t.Fatalf("аргументы create: %v", subs[0].Args)
	}
	// у create нет аккаунта участника, у join есть
	if _, ok := subs[0].Accounts["playerState"]; ok {
		t.Fatal("create не должен требовать аккаунт участника")
	}
	if _, ok := subs[1].Accounts["playerState"]; !ok {
		t.Fatal("join должен требовать аккаунт участника")
	}

	if result.GameID != 12345 || result.JoinTxSig == "" {
		t.Fatalf("результат: %+v", result)
	}
	if d.GameID() != 12345 {
		t.Fatalf("игра сессии: %d", d.GameID())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.entries) != 2 {
		t.Fatalf("журнал: %v", rec.entries)
	}
}

func TestDoMovePrecheck(t *testing.T) {
	gw := &fakeGateway{
		submitSig:  "sig",
		gameJSON:   testGameJSON(7),
		playerJSON: testPlayerJSON(7),
	}
	d, _ := newTestDispatcher(t, gw)
	d.SetGameID(7)
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// не соседние клетки
	_, err := d.Do(context.Background(), domain.Action{
		Kind: domain.ActionMoveUnits, Units: 1,
		From: domain.Coord{X: 0, Y: 0}, To: domain.Coord{X: 3, Y: 3},
	})
	if err == nil || !strings.Contains(err.Error(), "не соседние") {
		t.Fatalf("ожидали отказ по соседству: %v", err)
	}

	// чужая или пустая клетка-источник
	_, err = d.Do(context.Background(), domain.Action{
		Kind: domain.ActionMoveUnits, Units: 1,
		From: domain.Coord{X: 5, Y: 5}, To: domain.Coord{X: 5, Y: 6},
	})
	if err == nil || !strings.Contains(err.Error(), "не ваша") {
		t.Fatalf("ожидали отказ по источнику: %v", err)
	}

	// вне поля
	_, err = d.Do(context.Background(), domain.Action{
		Kind: domain.ActionMoveUnits, Units: 1,
		From: domain.Coord{X: 7, Y: 7}, To: domain.Coord{X: 8, Y: 7},
	})
	if err == nil || !strings.Contains(err.Error(), "вне поля") {
		t.Fatalf("ожидали отказ по границе: %v", err)
	}

	// прочеки не доходят до гейтвея
	if len(gw.submitted()) != 0 {
		t.Fatalf("отклоненные прочеками действия не должны отправляться: %v", gw.submitted())
	}
}

func TestDoResourcePrechecks(t *testing.T) {
	gw := &fakeGateway{
		submitSig: "sig",
		gameJSON:  testGameJSON(7),
		playerJSON: json.RawMessage(`{
			"gameId": 7, "player": "p", "playerIndex": 0, "gold": 100,
			"wood": 10, "units": 19, "score": 0, "isAlive": true,
			"strategyMode": {"balanced": {}}
		}`),
	}
	d, _ := newTestDispatcher(t, gw)
	d.SetGameID(7)
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// 5 юнитов стоят 125 золота, есть 100
	_, err := d.Do(context.Background(), domain.Action{
		Kind: domain.ActionTrainUnits, Count: 5, At: domain.Coord{X: 0, Y: 0},
	})
	if err == nil || !strings.Contains(err.Error(), "золота") {
		t.Fatalf("ожидали отказ по золоту: %v", err)
	}

	// 19 юнитов + 2 превышают лимит в 20
	_, err = d.Do(context.Background(), domain.Action{
		Kind: domain.ActionTrainUnits, Count: 2, At: domain.Coord{X: 0, Y: 0},
	})
	if err == nil || !strings.Contains(err.Error(), "лимит") {
		t.Fatalf("ожидали отказ по лимиту юнитов: %v", err)
	}

	// защита стоит 30 дерева, есть 10
	_, err = d.Do(context.Background(), domain.Action{
		Kind: domain.ActionBuildDefense, At: domain.Coord{X: 0, Y: 0},
	})
	if err == nil || !strings.Contains(err.Error(), "дерева") {
		t.Fatalf("ожидали отказ по дереву: %v", err)
	}

	if len(gw.submitted()) != 0 {
		t.Fatalf("отклоненные прочеками действия не должны отправляться: %v", gw.submitted())
	}
}

func TestDoWithoutGameID(t *testing.T) {
	d, _ := newTestDispatcher(t, &fakeGateway{})
	_, err := d.Do(context.Background(), domain.Action{Kind: domain.ActionCollect})
	var missing *chain.MissingParameterError
	if !errors.As(err, &missing) || missing.Flag != "game" {
		t.Fatalf("без игры сессии должен требоваться --game: %v", err)
	}
}

func TestFormatUserErrorTruncates(t *testing.T) {
	long := errors.New(strings.Repeat("x", MaxErrorDisplayLen+50))
	got := FormatUserError(long)
	if len([]rune(got)) != MaxErrorDisplayLen+1 || !strings.HasSuffix(got, "…") {
		t.Fatalf("длина обрезанного сообщения: %d", len(got))
	}

	short := errors.New("короткая причина")
	if FormatUserError(short) != "короткая причина" {
		t.Fatal("короткое сообщение должно пройти без изменений")
	}
}

// обрезка кириллического текста не должна рвать руну посередине
func TestFormatUserErrorCyrillic(t *testing.T) {
	long := errors.New(strings.Repeat("ю", MaxErrorDisplayLen+50))
	got := FormatUserError(long)
	if !utf8.ValidString(got) {
		t.Fatal("обрезанное сообщение содержит битый UTF-8")
	}
	runes := []rune(got)
	if len(runes) != MaxErrorDisplayLen+1 || runes[len(runes)-1] != '…' {
		t.Fatalf("обрезка по рунам: длина %d, хвост %q", len(runes), string(runes[len(runes)-1]))
	}
	for _, r := range runes[:MaxErrorDisplayLen] {
		if r != 'ю' {
			t.Fatalf("руна искажена: %q", r)
		}
	}
}
