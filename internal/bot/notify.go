package bot

import (
	"go.uber.org/zap"
	"group-trade-bot/internal/models"
	"group-trade-bot/internal/telegram"
)

// notifyAdmins sends the lock notification to every registered admin of
// the group as a direct message. Delivery failures are isolated per
// recipient: one blocked admin never prevents the others from being
// notified, and the trade stays agreed regardless.
func (b *Bot) notifyAdmins(chatTitle string, trade *models.Trade) {
	members, err := b.registry.ListMembers(trade.GroupID)
	if err != nil {
		b.logger.Error("Failed to load admin registrations",
			zap.Int64("group_id", trade.GroupID),
			zap.Error(err),
		)
		return
	}
	if len(members) == 0 {
		return
	}

	text := lockNotification(chatTitle, trade)
	opts := &telegram.SendOptions{
		ReplyMarkup: &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{{
				{Text: "📄 Trade Description", URL: messageLink(trade.GroupID, trade.MessageID)},
			}},
		},
	}

	for _, adminID := range members {
		if _, err := b.api.SendMessage(adminID, text, opts); err != nil {
			b.logger.Warn("Failed to DM admin",
				zap.Int64("admin_id", adminID),
				zap.String("trade_id", trade.TradeID),
				zap.Error(err),
			)
			continue
		}
	}
}
