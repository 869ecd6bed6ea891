package notifier

import (
	"go-raffle-engine/config"
	"go-raffle-engine/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier posts operator alerts (milestones hit, prize numbers won)
// to a configured chat. It is optional: with no token it becomes a no-op.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(cfg config.NotifierConfig) *TelegramNotifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return &TelegramNotifier{}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.WithComponent("notifier").Warn("telegram bot init failed", zap.Error(err))
		return &TelegramNotifier{}
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.TelegramChatID,
	}
}

func (n *TelegramNotifier) NotifyOperator(text string) {
	if n.bot == nil {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		logger.WithComponent("notifier").Warn("telegram send failed", zap.Error(err))
	}
}
