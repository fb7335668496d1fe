package bot

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"group-trade-bot/internal/ledger"
	"group-trade-bot/internal/telegram"
)

// handleTrade creates a new trade and announces it with Agree/Cancel
// buttons. Malformed requests get a usage reply and never reach the
// ledger.
func (b *Bot) handleTrade(msg *telegram.Message, args []string) {
	if len(args) < 5 {
		b.reply(msg, tradeUsage)
		return
	}

	buyer, seller, amount := args[1], args[2], args[3]
	details := strings.Join(args[4:], " ")

	trade, err := b.ledger.CreateTrade(msg.Chat.ID, buyer, seller, amount, details)
	if err != nil {
		b.logger.Error("Failed to create trade", zap.Int64("group_id", msg.Chat.ID), zap.Error(err))
		b.reply(msg, "⚠️ Could not create the trade, please try again.")
		return
	}

	sent, err := b.api.SendMessage(msg.Chat.ID, tradeAnnouncement(trade), &telegram.SendOptions{
		ReplyToMessageID: msg.MessageID,
		ReplyMarkup:      confirmKeyboard(trade.TradeID),
	})
	if err != nil {
		b.logger.Error("Failed to announce trade",
			zap.String("trade_id", trade.TradeID),
			zap.Int64("group_id", msg.Chat.ID),
			zap.Error(err),
		)
		return
	}

	if err := b.ledger.SetOriginMessage(msg.Chat.ID, trade.TradeID, sent.MessageID); err != nil {
		b.logger.Error("Failed to link announcement to trade",
			zap.String("trade_id", trade.TradeID),
			zap.Error(err),
		)
	}
}

// handleDone marks a trade complete. Only group administrators may use
// it; the capability check is delegated to the gateway.
func (b *Bot) handleDone(msg *telegram.Message, args []string) {
	isAdmin, err := b.api.IsGroupAdmin(msg.Chat.ID, msg.From.ID)
	if err != nil {
		b.reply(msg, adminVerifyFailText)
		return
	}
	if !isAdmin {
		b.reply(msg, adminsOnlyText)
		return
	}

	if len(args) < 2 {
		b.reply(msg, doneUsage)
		return
	}

	trade, err := b.ledger.Complete(msg.Chat.ID, args[1])
	if errors.Is(err, ledger.ErrNotFound) {
		b.reply(msg, tradeNotFoundText)
		return
	}
	if err != nil {
		b.logger.Error("Failed to complete trade", zap.String("trade_id", args[1]), zap.Error(err))
		b.reply(msg, "⚠️ Could not complete the trade, please try again.")
		return
	}

	b.reply(msg, doneText(trade, msg.From.Mention()))
}

// handleSetAdmin registers the sender for lock notifications, gated on
// the same admin capability check as /done.
func (b *Bot) handleSetAdmin(msg *telegram.Message) {
	isAdmin, err := b.api.IsGroupAdmin(msg.Chat.ID, msg.From.ID)
	if err != nil {
		b.reply(msg, adminVerifyFailText)
		return
	}
	if !isAdmin {
		b.reply(msg, adminsOnlyText)
		return
	}

	if err := b.registry.Register(msg.Chat.ID, msg.From.ID); err != nil {
		b.logger.Error("Failed to register admin", zap.Int64("group_id", msg.Chat.ID), zap.Error(err))
		return
	}
	b.reply(msg, adminRegisteredText)
}

// handleUnsetAdmin removes the sender from the notification set. No
// admin check: anyone may unregister themselves.
func (b *Bot) handleUnsetAdmin(msg *telegram.Message) {
	if err := b.registry.Unregister(msg.Chat.ID, msg.From.ID); err != nil {
		b.logger.Error("Failed to unregister admin", zap.Int64("group_id", msg.Chat.ID), zap.Error(err))
		return
	}
	b.reply(msg, adminRemovedText)
}

// handleListAdmins lists the registered notification recipients.
// Members that can no longer be resolved are skipped.
func (b *Bot) handleListAdmins(msg *telegram.Message) {
	members, err := b.registry.ListMembers(msg.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to list admins", zap.Int64("group_id", msg.Chat.ID), zap.Error(err))
		return
	}
	if len(members) == 0 {
		b.reply(msg, noAdminsText)
		return
	}

	var sb strings.Builder
	sb.WriteString("👮‍♂️ <b>Registered Trade Admins:</b>\n")
	for _, id := range members {
		member, err := b.api.GetChatMember(msg.Chat.ID, id)
		if err != nil {
			b.logger.Warn("Failed to resolve registered admin",
				zap.Int64("group_id", msg.Chat.ID),
				zap.Int64("admin_id", id),
				zap.Error(err),
			)
			continue
		}
		sb.WriteString("• " + member.User.Mention() + "\n")
	}

	b.reply(msg, sb.String())
}

// handleCallback processes Agree/Cancel button presses. Authorization is
// checked by the ledger against the handles recorded on the trade row.
func (b *Bot) handleCallback(cq *telegram.CallbackQuery) {
	if cq.Message == nil || cq.From == nil {
		return
	}

	action, tradeID, _ := strings.Cut(cq.Data, "|")
	groupID := cq.Message.Chat.ID

	switch action {
	case "agree":
		b.handleAgree(cq, groupID, tradeID)
	case "cancel":
		b.handleCancel(cq, groupID, tradeID)
	case "locked":
		b.answer(cq, alreadyLockedAlert, true)
	}
}

func (b *Bot) handleAgree(cq *telegram.CallbackQuery, groupID int64, tradeID string) {
	outcome, trade, err := b.ledger.Confirm(groupID, tradeID, cq.From.Handle())
	if err != nil {
		b.answer(cq, callbackErrorText(err), true)
		return
	}

	if outcome == ledger.Waiting {
		b.reply(cq.Message, waitingText(trade.TradeID, cq.From.Mention()))
		return
	}

	// Both parties confirmed: the trade just locked.
	if err := b.api.EditMessageReplyMarkup(groupID, trade.MessageID, lockedKeyboard()); err != nil {
		b.logger.Warn("Failed to update trade keyboard",
			zap.String("trade_id", trade.TradeID),
			zap.Error(err),
		)
	}
	b.reply(cq.Message, lockedText(trade.TradeID))
	b.notifyAdmins(cq.Message.Chat.Title, trade)
}

func (b *Bot) handleCancel(cq *telegram.CallbackQuery, groupID int64, tradeID string) {
	trade, err := b.ledger.Cancel(groupID, tradeID, cq.From.Handle())
	if err != nil {
		b.answer(cq, callbackErrorText(err), true)
		return
	}

	if err := b.api.EditMessageReplyMarkup(groupID, trade.MessageID, nil); err != nil {
		b.logger.Warn("Failed to clear trade keyboard",
			zap.String("trade_id", trade.TradeID),
			zap.Error(err),
		)
	}
	b.reply(cq.Message, cancelledText(trade.TradeID, cq.From.Mention()))
}

// answer acknowledges a callback query, optionally as a popup alert.
func (b *Bot) answer(cq *telegram.CallbackQuery, text string, showAlert bool) {
	if err := b.api.AnswerCallbackQuery(cq.ID, text, showAlert); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.String("callback_id", cq.ID), zap.Error(err))
	}
}

// callbackErrorText maps ledger errors to the alert shown to the user.
func callbackErrorText(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return notFoundAlert
	case errors.Is(err, ledger.ErrNotAuthorized):
		return notPartyAlert
	case errors.Is(err, ledger.ErrInvalidState):
		return notPendingAlert
	default:
		return "Something went wrong, please try again."
	}
}
