package bot

import (
	"fmt"
	"strconv"
	"strings"

	"group-trade-bot/internal/models"
	"group-trade-bot/internal/telegram"
)

const helpText = `👋 Hello! I'm your Trade Bot.

Use me in a group to manage safe trades between buyers and sellers.

📌 Commands:
/trade <buyer> <seller> <amount> <details>
/done <trade_id> — Mark trade as completed (admins only)
/setadmin — Register to receive trade notifications (run in group)
/unsetadmin — Stop receiving trade notifications (run in group)
/listadmins — List registered trade admins in this group`

const (
	tradeUsage = "Usage: /trade <buyer> <seller> <amount> <details>"
	doneUsage  = "Usage: /done <trade_id>"

	adminsOnlyText      = "❌ Only group admins can use this command."
	adminVerifyFailText = "⚠️ Could not verify admin status."
	adminRegisteredText = "✅ You are now registered to receive trade notifications for this group."
	adminRemovedText    = "🛑 You will no longer receive trade notifications for this group."
	noAdminsText        = "❌ No trade admins have registered in this group."

	notPartyAlert      = "Only the buyer or seller can respond."
	tradeNotFoundText  = "❌ Trade ID not found."
	notFoundAlert      = "Trade not found."
	notPendingAlert    = "Trade is already completed or cancelled."
	alreadyLockedAlert = "✅ This trade is already locked."
)

func tradeAnnouncement(t *models.Trade) string {
	return fmt.Sprintf(`<b>🆕 New Trade Created</b>

🆔 <b>Trade ID:</b> <code>%s</code>
👤 <b>Buyer:</b> %s
🧑‍💼 <b>Seller:</b> %s
💰 <b>Amount:</b> %s
📦 <b>Details:</b> %s

Please confirm the trade.`, t.TradeID, t.Buyer, t.Seller, t.Amount, t.Details)
}

func confirmKeyboard(tradeID string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "✅ Agree", CallbackData: "agree|" + tradeID},
			{Text: "❌ Cancel", CallbackData: "cancel|" + tradeID},
		}},
	}
}

func lockedKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "✅ Trade Locked", CallbackData: "locked"},
		}},
	}
}

func waitingText(tradeID, mention string) string {
	return fmt.Sprintf("🤝 Trade <code>%s</code> confirmed by %s.\nWaiting for the other party...", tradeID, mention)
}

func lockedText(tradeID string) string {
	return fmt.Sprintf("✅ Both parties agreed on trade <code>%s</code>.\nThe deal is now locked! @admin", tradeID)
}

func cancelledText(tradeID, mention string) string {
	return fmt.Sprintf("❌ Trade <code>%s</code> cancelled by %s.", tradeID, mention)
}

func doneText(t *models.Trade, mention string) string {
	return fmt.Sprintf("✅ Trade <code>%s</code> marked as done by %s\n\n👤 Buyer: <b>%s</b>\n🧑‍💼 Seller: <b>%s</b>\n\nThanks for the deal!",
		t.TradeID, mention, t.Buyer, t.Seller)
}

func lockNotification(chatTitle string, t *models.Trade) string {
	return fmt.Sprintf(`📢 <b>Trade Locked</b> in <b>%s</b>

🆔 <b>Trade ID:</b> <code>%s</code>
👤 <b>Buyer:</b> %s
🧑‍💼 <b>Seller:</b> %s
💰 <b>Amount:</b> %s
📦 <b>Details:</b> %s

✅ Both parties agreed on this trade.`, chatTitle, t.TradeID, t.Buyer, t.Seller, t.Amount, t.Details)
}

// messageLink builds a t.me deep link to a message in a supergroup. The
// public link form drops the -100 prefix of the chat id.
func messageLink(groupID, messageID int64) string {
	linkGroupID := strings.TrimPrefix(strconv.FormatInt(groupID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", linkGroupID, messageID)
}
