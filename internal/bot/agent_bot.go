package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ghostnet_client/internal/dispatch"
	"ghostnet_client/internal/domain"
	"ghostnet_client/internal/interpreter"
	"ghostnet_client/internal/logger"
)

// AgentBot - чат-поверхность агента: свободный текст из Telegram
// проходит через тот же интерпретатор и диспетчер, что и CLI
type AgentBot struct {
	bot        *tgbotapi.BotAPI
	dispatcher *dispatch.Dispatcher
	chatIDs    []int64 // кому разрешено командовать агентом
	stopCh     chan struct{}
	wg         sync.WaitGroup
	log        *slog.Logger
}

// NewAgentBot создает бота агента
func NewAgentBot(token string, dispatcher *dispatch.Dispatcher, chatIDs []int64) (*AgentBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.Component("agent_bot")
	log.Info("agent bot authorized", "username", api.Self.UserName)

	return &AgentBot{
		bot:        api,
		dispatcher: dispatcher,
		chatIDs:    chatIDs,
		stopCh:     make(chan struct{}),
		log:        log,
	}, nil
}

// Start запускает прослушивание сообщений
func (b *AgentBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting agent update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping agent update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if !b.allowed(update.Message.Chat.ID) {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(msg)
			}(update.Message)
		}
	}
}

// Stop плавно останавливает бота
func (b *AgentBot) Stop() {
	b.log.Info("stopping agent bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("agent bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("agent bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AgentBot) allowed(chatID int64) bool {
	for _, id := range b.chatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// handleMessage ведет одно сообщение через интерпретатор и диспетчер
func (b *AgentBot) handleMessage(msg *tgbotapi.Message) {
	text := msg.Text
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(msg.Chat.ID, dispatch.HelpText)
			return
		default:
			text = msg.CommandArguments()
			if text == "" {
				b.reply(msg.Chat.ID, dispatch.UnrecognizedReply)
				return
			}
		}
	}

	action := interpreter.Parse(text)
	b.log.Info("команда агенту", "chat", msg.Chat.ID, "kind", action.Kind)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	result, err := b.dispatcher.Do(ctx, action)
	if err != nil {
		// отказ программы - штатный исход, показываем причину как есть
		b.reply(msg.Chat.ID, "❌ "+dispatch.FormatUserError(err))
		return
	}

	b.reply(msg.Chat.ID, agentReply(action, result))
}

// agentReply формулирует ответ агента в духе чата на доске
func agentReply(action domain.Action, result *dispatch.Result) string {
	if action.Kind == domain.ActionSetStrategy {
		switch action.Mode {
		case domain.StrategyAggressive:
			return "🔥 Switching to aggressive mode. Prioritizing enemy territory capture."
		case domain.StrategyDefensive:
			return "🛡 Switching to defensive mode. Building defenses and holding territory."
		case domain.StrategyEconomic:
			return "💰 Switching to economic mode. Focusing on resource collection."
		default:
			return "⚖ Switching to balanced mode. Equal focus on attack and defense."
		}
	}

	msg := result.Message
	if result.Dispatched && result.Signature != "" {
		msg = fmt.Sprintf("%s\nTX: %s", msg, result.Signature)
	}
	return msg
}

func (b *AgentBot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.bot.Send(msg); err != nil {
		b.log.Error("не удалось отправить ответ", "chat", chatID, "error", err)
	}
}
