package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"group-trade-bot/internal/config"
)

// BotAPI defines the interface for the Telegram Bot API client.
type BotAPI interface {
	GetMe() (*User, error)
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error)
	SendMessage(chatID int64, text string, opts *SendOptions) (*Message, error)
	EditMessageReplyMarkup(chatID, messageID int64, markup *InlineKeyboardMarkup) error
	AnswerCallbackQuery(callbackID, text string, showAlert bool) error
	GetChatMember(chatID, userID int64) (*ChatMember, error)
	IsGroupAdmin(chatID, userID int64) (bool, error)
}

// SendOptions are the optional parameters of SendMessage.
type SendOptions struct {
	ReplyToMessageID int64
	ReplyMarkup      *InlineKeyboardMarkup
}

// Client is a client for the Telegram Bot API.
// It implements the BotAPI interface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ BotAPI = (*Client)(nil)

// apiResponse is the envelope every Bot API method responds with.
type apiResponse struct {
	Ok          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// NewClient creates a new Telegram Bot API client.
func NewClient(cfg *config.Telegram, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(fmt.Sprintf("%s/bot%s", cfg.ApiURL, cfg.Token))

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// call executes a Bot API method with rate limiting and retry logic and
// unmarshals the envelope's result field into out (when out is non-nil).
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	const maxRetries = 3

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Calling Bot API method", zap.String("method", method))
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(params.Encode()).
			Execute(http.MethodPost, "/"+method)

		var env apiResponse
		if err == nil {
			if uerr := json.Unmarshal(resp.Body(), &env); uerr != nil {
				err = fmt.Errorf("failed to decode %s response: %w", method, uerr)
			}
		}

		if err == nil && env.Ok {
			if out != nil {
				if uerr := json.Unmarshal(env.Result, out); uerr != nil {
					return fmt.Errorf("failed to decode %s result: %w", method, uerr)
				}
			}
			return nil
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		switch {
		case err != nil:
			// Network or decoding errors
			shouldRetry = true
			lastErr = err
		case resp.StatusCode() == http.StatusTooManyRequests:
			shouldRetry = true
			if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
				retryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
			} else if seconds, aerr := strconv.Atoi(resp.Header().Get("Retry-After")); aerr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
			lastErr = fmt.Errorf("%s rate limited: %s", method, env.Description)
		case resp.StatusCode() >= 500:
			shouldRetry = true
			lastErr = fmt.Errorf("%s failed with status %s", method, resp.Status())
		default:
			// Logical API error (bad request, forbidden, ...): not retryable.
			return fmt.Errorf("%s failed: %s (error_code %d)", method, env.Description, env.ErrorCode)
		}

		if !shouldRetry {
			return lastErr
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Bot API call failed, retrying...",
			zap.String("method", method),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(lastErr),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s failed after retries: %w", method, lastErr)
}

// GetMe fetches the bot's own account.
// This is a good method to test connectivity and the token.
func (c *Client) GetMe() (*User, error) {
	var me User
	if err := c.call(context.Background(), "getMe", url.Values{}, &me); err != nil {
		return nil, fmt.Errorf("failed to get bot identity: %w", err)
	}
	return &me, nil
}

// GetUpdates long-polls for new updates starting at offset.
// timeout is the server-side long-poll timeout in seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))
	params.Set("allowed_updates", `["message","callback_query"]`)

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}
	return updates, nil
}

// SendMessage sends an HTML-formatted message to a chat.
func (c *Client) SendMessage(chatID int64, text string, opts *SendOptions) (*Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)
	params.Set("parse_mode", "HTML")

	if opts != nil {
		if opts.ReplyToMessageID != 0 {
			params.Set("reply_to_message_id", strconv.FormatInt(opts.ReplyToMessageID, 10))
		}
		if opts.ReplyMarkup != nil {
			markup, err := json.Marshal(opts.ReplyMarkup)
			if err != nil {
				return nil, fmt.Errorf("failed to encode reply markup: %w", err)
			}
			params.Set("reply_markup", string(markup))
		}
	}

	var sent Message
	if err := c.call(context.Background(), "sendMessage", params, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

// EditMessageReplyMarkup replaces the inline keyboard of a sent message.
// A nil markup removes the keyboard.
func (c *Client) EditMessageReplyMarkup(chatID, messageID int64, markup *InlineKeyboardMarkup) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	if markup != nil {
		encoded, err := json.Marshal(markup)
		if err != nil {
			return fmt.Errorf("failed to encode reply markup: %w", err)
		}
		params.Set("reply_markup", string(encoded))
	}

	return c.call(context.Background(), "editMessageReplyMarkup", params, nil)
}

// AnswerCallbackQuery acknowledges a button press, optionally with an alert.
func (c *Client) AnswerCallbackQuery(callbackID, text string, showAlert bool) error {
	params := url.Values{}
	params.Set("callback_query_id", callbackID)
	if text != "" {
		params.Set("text", text)
	}
	if showAlert {
		params.Set("show_alert", "true")
	}

	return c.call(context.Background(), "answerCallbackQuery", params, nil)
}

// GetChatMember fetches a user's membership info in a chat.
func (c *Client) GetChatMember(chatID, userID int64) (*ChatMember, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("user_id", strconv.FormatInt(userID, 10))

	var member ChatMember
	if err := c.call(context.Background(), "getChatMember", params, &member); err != nil {
		return nil, fmt.Errorf("failed to get chat member: %w", err)
	}
	return &member, nil
}

// IsGroupAdmin reports whether the user is an administrator or the owner
// of the chat. Both the admin-registration and mark-done commands gate on
// this capability check.
func (c *Client) IsGroupAdmin(chatID, userID int64) (bool, error) {
	member, err := c.GetChatMember(chatID, userID)
	if err != nil {
		return false, err
	}
	return member.Status == MemberStatusAdministrator || member.Status == MemberStatusCreator, nil
}
