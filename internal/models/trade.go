package models

import "gorm.io/gorm"

// Trade status values. Transitions are one-directional:
// pending -> agreed -> done, or pending -> cancelled.
const (
	StatusPending   = "pending"
	StatusAgreed    = "agreed"
	StatusCancelled = "cancelled"
	StatusDone      = "done"
)

// Trade represents one buyer/seller transaction tracked inside a group chat.
// TradeID is only unique within its group; lookups must always qualify by
// (group_id, trade_id) together.
type Trade struct {
	gorm.Model
	TradeID     string `gorm:"uniqueIndex:idx_group_trade;not null" json:"trade_id"`
	GroupID     int64  `gorm:"uniqueIndex:idx_group_trade;not null" json:"group_id"`
	Buyer       string `gorm:"not null" json:"buyer"`
	Seller      string `gorm:"not null" json:"seller"`
	Amount      string `json:"amount"`
	Details     string `json:"details"`
	MessageID   int64  `json:"message_id"` // the announcement message in the group
	Status      string `gorm:"default:pending" json:"status"`
	BuyerAgree  bool   `gorm:"default:false" json:"buyer_agree"`
	SellerAgree bool   `gorm:"default:false" json:"seller_agree"`
}
