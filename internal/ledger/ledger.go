package ledger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"group-trade-bot/internal/models"
)

// Errors surfaced by ledger operations. The command layer converts these
// into user-facing messages; none of them is fatal.
var (
	ErrNotFound      = errors.New("trade not found")
	ErrNotAuthorized = errors.New("actor is not a party to this trade")
	ErrInvalidState  = errors.New("trade is not in a state that allows this action")
)

// ConfirmOutcome is the result of a successful Confirm call.
type ConfirmOutcome int

const (
	// Waiting means the actor's confirmation was recorded but the other
	// party has not confirmed yet.
	Waiting ConfirmOutcome = iota
	// Locked means both parties have now confirmed and the trade
	// transitioned to agreed.
	Locked
)

// tradeIDFormat renders counter values as the human-readable trade ids
// shown in chat, e.g. "Trd-0001".
const tradeIDFormat = "Trd-%04d"

// Ledger owns the trade lifecycle: creation, the two-party confirmation
// protocol, cancellation, and completion. All state lives in the store;
// the per-key atomicity the protocol needs comes from running each
// operation inside a single transaction.
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLedger creates a new trade ledger on top of db.
func NewLedger(db *gorm.DB, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// CreateTrade allocates the group's next trade number and inserts a new
// pending trade. The counter bump and the insert happen in one
// transaction so a failed insert never burns a number.
func (l *Ledger) CreateTrade(groupID int64, buyer, seller, amount, details string) (*models.Trade, error) {
	if buyer == "" || seller == "" {
		return nil, fmt.Errorf("buyer and seller handles must be non-empty")
	}

	var trade models.Trade
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var counter models.GroupCounter
		if err := tx.Where(models.GroupCounter{GroupID: groupID}).FirstOrCreate(&counter).Error; err != nil {
			return fmt.Errorf("failed to load group counter: %w", err)
		}

		counter.LastTradeNumber++
		if err := tx.Save(&counter).Error; err != nil {
			return fmt.Errorf("failed to bump group counter: %w", err)
		}

		trade = models.Trade{
			TradeID: fmt.Sprintf(tradeIDFormat, counter.LastTradeNumber),
			GroupID: groupID,
			Buyer:   buyer,
			Seller:  seller,
			Amount:  amount,
			Details: details,
			Status:  models.StatusPending,
		}
		if err := tx.Create(&trade).Error; err != nil {
			return fmt.Errorf("failed to create trade: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Trade created",
		zap.String("trade_id", trade.TradeID),
		zap.Int64("group_id", groupID),
		zap.String("buyer", buyer),
		zap.String("seller", seller),
	)
	return &trade, nil
}

// SetOriginMessage links a trade to the group message that announced it.
// The announcement is posted after creation, so the reference arrives in
// a second step.
func (l *Ledger) SetOriginMessage(groupID int64, tradeID string, messageID int64) error {
	res := l.db.Model(&models.Trade{}).
		Where("group_id = ? AND trade_id = ?", groupID, tradeID).
		Update("message_id", messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get looks up a trade by its (group, trade id) pair.
func (l *Ledger) Get(groupID int64, tradeID string) (*models.Trade, error) {
	var trade models.Trade
	err := l.db.Where("group_id = ? AND trade_id = ?", groupID, tradeID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// Confirm records actor's agreement to the trade. Confirming twice as the
// same party is a no-op. When the second party confirms, the trade locks:
// status moves to agreed and the outcome is Locked — exactly once, since
// the read-check-write runs in one transaction.
func (l *Ledger) Confirm(groupID int64, tradeID, actor string) (ConfirmOutcome, *models.Trade, error) {
	outcome := Waiting
	var trade models.Trade

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND trade_id = ?", groupID, tradeID).First(&trade).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		switch actor {
		case trade.Buyer:
			trade.BuyerAgree = true
		case trade.Seller:
			trade.SellerAgree = true
		default:
			return ErrNotAuthorized
		}

		if trade.Status != models.StatusPending {
			return ErrInvalidState
		}

		if trade.BuyerAgree && trade.SellerAgree {
			trade.Status = models.StatusAgreed
			outcome = Locked
		}

		return tx.Save(&trade).Error
	})
	if err != nil {
		return Waiting, nil, err
	}

	l.logger.Info("Trade confirmed",
		zap.String("trade_id", trade.TradeID),
		zap.Int64("group_id", groupID),
		zap.String("actor", actor),
		zap.Bool("locked", outcome == Locked),
	)
	return outcome, &trade, nil
}

// Cancel aborts a pending trade. Only the buyer or seller may cancel,
// and only while the trade is still pending: once locked, a trade can
// only be completed.
func (l *Ledger) Cancel(groupID int64, tradeID, actor string) (*models.Trade, error) {
	var trade models.Trade

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND trade_id = ?", groupID, tradeID).First(&trade).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if actor != trade.Buyer && actor != trade.Seller {
			return ErrNotAuthorized
		}
		if trade.Status != models.StatusPending {
			return ErrInvalidState
		}

		trade.Status = models.StatusCancelled
		return tx.Save(&trade).Error
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Trade cancelled",
		zap.String("trade_id", trade.TradeID),
		zap.Int64("group_id", groupID),
		zap.String("actor", actor),
	)
	return &trade, nil
}

// Complete marks a trade done. Authorization is the caller's job (group
// admin capability check). There is no status guard and re-completing is
// a harmless no-op.
func (l *Ledger) Complete(groupID int64, tradeID string) (*models.Trade, error) {
	var trade models.Trade

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND trade_id = ?", groupID, tradeID).First(&trade).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		trade.Status = models.StatusDone
		return tx.Save(&trade).Error
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Trade completed",
		zap.String("trade_id", trade.TradeID),
		zap.Int64("group_id", groupID),
	)
	return &trade, nil
}
