package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"group-trade-bot/internal/config"
	"group-trade-bot/internal/ledger"
	"group-trade-bot/internal/registry"
	"group-trade-bot/internal/telegram"
)

// Bot receives updates from the Telegram gateway and dispatches them to
// the trade ledger and admin registry. Each update is handled as an
// independent unit of work; the store is the only shared state.
type Bot struct {
	logger   *zap.Logger
	cfg      *config.Config
	api      telegram.BotAPI
	ledger   *ledger.Ledger
	registry *registry.Registry

	Username  string
	StartTime time.Time
}

// NewBot creates a new bot dispatcher.
func NewBot(logger *zap.Logger, cfg *config.Config, api telegram.BotAPI, l *ledger.Ledger, r *registry.Registry) *Bot {
	return &Bot{
		logger:    logger,
		cfg:       cfg,
		api:       api,
		ledger:    l,
		registry:  r,
		StartTime: time.Now(),
	}
}

// Run starts the long-poll loop and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("Starting update loop", zap.Int("poll_timeout", b.cfg.Telegram.PollTimeout))

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot...")
			return
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.cfg.Telegram.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("Stopping bot...")
				return
			}
			b.logger.Error("Failed to get updates", zap.Error(err))
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go b.handleUpdate(update)
		}
	}
}

// handleUpdate routes one inbound event to the matching handler.
func (b *Bot) handleUpdate(update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil && strings.HasPrefix(update.Message.Text, "/"):
		b.handleCommand(update.Message)
	}
}

// handleCommand parses a slash command and dispatches it. The command
// token may carry a "@botname" suffix in groups.
func (b *Bot) handleCommand(msg *telegram.Message) {
	args := strings.Fields(msg.Text)
	if len(args) == 0 || msg.From == nil {
		return
	}
	command, _, _ := strings.Cut(args[0], "@")

	switch command {
	case "/start":
		if msg.Chat.Type == telegram.ChatTypePrivate {
			b.reply(msg, helpText)
		}
	case "/trade":
		if msg.Chat.IsGroup() {
			b.handleTrade(msg, args)
		}
	case "/done":
		if msg.Chat.IsGroup() {
			b.handleDone(msg, args)
		}
	case "/setadmin":
		if msg.Chat.IsGroup() {
			b.handleSetAdmin(msg)
		}
	case "/unsetadmin":
		if msg.Chat.IsGroup() {
			b.handleUnsetAdmin(msg)
		}
	case "/listadmins":
		if msg.Chat.IsGroup() {
			b.handleListAdmins(msg)
		}
	}
}

// reply sends a message back into the chat the command came from.
func (b *Bot) reply(msg *telegram.Message, text string) {
	opts := &telegram.SendOptions{ReplyToMessageID: msg.MessageID}
	if _, err := b.api.SendMessage(msg.Chat.ID, text, opts); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
	}
}
