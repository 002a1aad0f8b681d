package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ghostnet_client/internal/chain"
	"ghostnet_client/internal/config"
	"ghostnet_client/internal/dispatch"
	"ghostnet_client/internal/domain"
	"ghostnet_client/internal/history"
	"ghostnet_client/internal/interpreter"
	"ghostnet_client/internal/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT") == "json")
	cfg := config.Load()

	if len(os.Args) < 2 {
		showHelp()
		os.Exit(0)
	}

	if os.Args[1] == "history" {
		showHistory(cfg)
		return
	}

	action, err := parseArgs(os.Args[1:])
	if err != nil {
		fail(err)
	}
	if action.Kind == domain.ActionHelp {
		showHelp()
		return
	}

	player, err := chain.ParseAddress(cfg.Player)
	if err != nil {
		fail(fmt.Errorf("GHOSTNET_PLAYER: %w", err))
	}

	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		fail(err)
	}
	defer store.Close()

	endpoint := chain.Endpoint(cfg.RPCURL, cfg.HeliusAPIKey)
	client := chain.NewClient(endpoint, cfg.HeliusAPIKey, cfg.SigningKey)
	dispatcher := dispatch.NewDispatcher(client, store, player, cfg.FogOfWar)
	if cfg.GameID != 0 {
		dispatcher.SetGameID(cfg.GameID)
	}

	fmt.Printf("🎮 Ghostnet Territories\n")
	fmt.Printf("Player: %s\n", player.String())
	fmt.Printf("Program: %s\n", chain.ProgramID())
	fmt.Printf("RPC: %s (%s)\n\n", endpoint, cfg.Network)

	// отправляемым действиям нужен запас на подтверждение транзакции
	timeout := 30 * time.Second
	if action.Submits() {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := dispatcher.Do(ctx, action)
	if err != nil {
		var rejection *chain.ProgramRejection
		if errors.As(err, &rejection) {
			fmt.Fprintf(os.Stderr, "❌ %s\n", dispatch.FormatUserError(err))
			for _, line := range rejection.Logs {
				fmt.Fprintln(os.Stderr, "   "+line)
			}
			os.Exit(1)
		}
		fail(err)
	}

	fmt.Println(result.Message)
	if result.Dispatched {
		fmt.Printf("TX: %s\n", result.Signature)
		if result.JoinTxSig != "" {
			fmt.Printf("Join TX: %s\n", result.JoinTxSig)
		}
	}
}

// parseArgs превращает argv в действие: известная подкоманда
// разбирается флагами, все остальное уходит интерпретатору как
// свободный текст
func parseArgs(args []string) (domain.Action, error) {
	cmd := args[0]
	rest := args[1:]

	// слова вместо флагов после подкоманды - это фраза
	// ("move 3 units from 0,0 to 1,0"), отдаем её интерпретатору целиком
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		return interpreter.Parse(strings.Join(args, " ")), nil
	}

	switch cmd {
	case "create":
		fs := newFlagSet("create")
		stake := fs.Float64("stake", 0, "ставка в SOL")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionCreateGame, Stake: chain.SOLToLamports(*stake)}, nil

	case "join":
		fs := newFlagSet("join")
		game := fs.Int64("game", 0, "id игры")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		if *game == 0 {
			return domain.Action{}, &chain.MissingParameterError{Flag: "game"}
		}
		return domain.Action{Kind: domain.ActionJoinGame, GameID: *game}, nil

	case "start":
		fs := newFlagSet("start")
		game := fs.Int64("game", 0, "id игры")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionStartGame, GameID: *game}, nil

	case "move":
		fs := newFlagSet("move")
		game := fs.Int64("game", 0, "id игры")
		from := fs.String("from", "", "клетка-источник x,y")
		to := fs.String("to", "", "клетка-назначение x,y")
		units := fs.Int("units", 1, "сколько юнитов")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		if *from == "" {
			return domain.Action{}, &chain.MissingParameterError{Flag: "from"}
		}
		if *to == "" {
			return domain.Action{}, &chain.MissingParameterError{Flag: "to"}
		}
		fromCoord, err := interpreter.ParseCoord(*from)
		if err != nil {
			return domain.Action{}, err
		}
		toCoord, err := interpreter.ParseCoord(*to)
		if err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionMoveUnits, GameID: *game, From: fromCoord, To: toCoord, Units: *units}, nil

	case "train":
		fs := newFlagSet("train")
		game := fs.Int64("game", 0, "id игры")
		at := fs.String("at", "", "клетка x,y")
		count := fs.Int("count", 1, "сколько юнитов")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		if *at == "" {
			return domain.Action{}, &chain.MissingParameterError{Flag: "at"}
		}
		coord, err := interpreter.ParseCoord(*at)
		if err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionTrainUnits, GameID: *game, At: coord, Count: *count}, nil

	case "defend":
		fs := newFlagSet("defend")
		game := fs.Int64("game", 0, "id игры")
		at := fs.String("at", "", "клетка x,y")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		if *at == "" {
			return domain.Action{}, &chain.MissingParameterError{Flag: "at"}
		}
		coord, err := interpreter.ParseCoord(*at)
		if err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionBuildDefense, GameID: *game, At: coord}, nil

	case "collect":
		fs := newFlagSet("collect")
		game := fs.Int64("game", 0, "id игры")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionCollect, GameID: *game}, nil

	case "strategy":
		fs := newFlagSet("strategy")
		game := fs.Int64("game", 0, "id игры")
		mode := fs.String("mode", "", "aggressive|defensive|balanced|economic")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		if *mode == "" {
			return domain.Action{}, &chain.MissingParameterError{Flag: "mode"}
		}
		return domain.Action{Kind: domain.ActionSetStrategy, GameID: *game, Mode: domain.StrategyMode(*mode)}, nil

	case "end":
		fs := newFlagSet("end")
		game := fs.Int64("game", 0, "id игры")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionEndGame, GameID: *game}, nil

	case "status":
		fs := newFlagSet("status")
		game := fs.Int64("game", 0, "id игры")
		if err := fs.Parse(rest); err != nil {
			return domain.Action{}, err
		}
		return domain.Action{Kind: domain.ActionStatus, GameID: *game}, nil

	case "help", "-h", "--help":
		return domain.Action{Kind: domain.ActionHelp}, nil
	}

	// не подкоманда - пробуем как свободный текст
	return interpreter.Parse(strings.Join(args, " ")), nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// showHistory печатает последние записи локального журнала отправок
func showHistory(cfg *config.Config) {
	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		fail(err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subs, err := store.RecentSubmissions(ctx, 20)
	if err != nil {
		fail(err)
	}
	if len(subs) == 0 {
		fmt.Println("No submissions recorded yet.")
		return
	}
	fmt.Println("📜 Recent submissions:")
	for _, sub := range subs {
		line := fmt.Sprintf("   %s  %-8s game #%d", sub.CreatedAt.Format("2006-01-02 15:04:05"), sub.ActionKind, sub.GameID)
		if sub.Error != "" {
			line += "  ❌ " + sub.Error
		} else if sub.Signature != "" {
			line += "  " + sub.Signature
		}
		fmt.Println(line)
	}
}

func showHelp() {
	fmt.Print(`🎮 Ghostnet Territories CLI

Usage: ghostnet <command> [flags]
       ghostnet "<free-form order>"

Commands:
  create   [--stake <sol>]                      create a game (auto-joins)
  join     --game <id>                          join an existing game
  start    [--game <id>]                        start the game (creator only)
  move     --from x,y --to x,y [--units <n>]    move units to adjacent tile
  train    --at x,y [--count <n>]               train units (25 gold each)
  defend   --at x,y                             build a defense (30 wood)
  collect                                       collect resources
  strategy --mode <m>                           aggressive|defensive|balanced|economic
  end      [--game <id>]                        finish the game
  status                                        show game state
  history                                       recent local submissions
  help                                          this message

Every action command also accepts --game <id>; without it the session
game from GHOSTNET_GAME_ID is used.

Free-form orders go through the same interpreter as the agent chat:
  ghostnet "move 3 units from 0,0 to 1,0"
  ghostnet "switch to farm mode"

Environment: GHOSTNET_PLAYER, GHOSTNET_GAME_ID, GHOSTNET_RPC_URL,
HELIUS_API_KEY, SOLANA_PRIVATE_KEY, GHOSTNET_FOG
`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "❌ %s\n", dispatch.FormatUserError(err))
	os.Exit(1)
}
