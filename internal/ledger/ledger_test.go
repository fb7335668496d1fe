package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"group-trade-bot/internal/models"
)

// setupLedger creates a ledger over a fresh in-memory database.
func setupLedger(t *testing.T) (*Ledger, *gorm.DB) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Trade{}, &models.GroupCounter{}, &models.GroupAdmin{})
	assert.NoError(t, err)

	return NewLedger(db, zap.NewNop()), db
}

func createTestTrade(t *testing.T, l *Ledger, groupID int64) *models.Trade {
	trade, err := l.CreateTrade(groupID, "@alice", "@bob", "50 USDT", "iPhone charger")
	assert.NoError(t, err)
	return trade
}

func TestCreateTrade_SequentialIDs(t *testing.T) {
	l, db := setupLedger(t)

	for i := 1; i <= 3; i++ {
		trade := createTestTrade(t, l, 100)
		assert.Equal(t, fmt.Sprintf("Trd-%04d", i), trade.TradeID)
		assert.Equal(t, models.StatusPending, trade.Status)
		assert.False(t, trade.BuyerAgree)
		assert.False(t, trade.SellerAgree)
	}

	var counter models.GroupCounter
	assert.NoError(t, db.First(&counter, "group_id = ?", int64(100)).Error)
	assert.Equal(t, int64(3), counter.LastTradeNumber)
}

func TestCreateTrade_CountersAreScopedPerGroup(t *testing.T) {
	l, _ := setupLedger(t)

	first := createTestTrade(t, l, 100)
	other := createTestTrade(t, l, 200)
	second := createTestTrade(t, l, 100)

	// Identical-looking ids across groups are legitimate.
	assert.Equal(t, "Trd-0001", first.TradeID)
	assert.Equal(t, "Trd-0001", other.TradeID)
	assert.Equal(t, "Trd-0002", second.TradeID)
}

func TestCreateTrade_SecondTradeIndependentOfFirst(t *testing.T) {
	l, _ := setupLedger(t)

	first := createTestTrade(t, l, 100)
	_, err := l.Cancel(100, first.TradeID, "@alice")
	assert.NoError(t, err)

	second := createTestTrade(t, l, 100)
	assert.Equal(t, "Trd-0002", second.TradeID)
	assert.Equal(t, models.StatusPending, second.Status)
}

func TestCreateTrade_RejectsEmptyHandles(t *testing.T) {
	l, db := setupLedger(t)

	_, err := l.CreateTrade(100, "", "@bob", "50 USDT", "charger")
	assert.Error(t, err)
	_, err = l.CreateTrade(100, "@alice", "", "50 USDT", "charger")
	assert.Error(t, err)

	var count int64
	db.Model(&models.Trade{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestConfirm_BothPartiesLockTheTrade(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	outcome, afterBuyer, err := l.Confirm(100, trade.TradeID, "@alice")
	assert.NoError(t, err)
	assert.Equal(t, Waiting, outcome)
	assert.True(t, afterBuyer.BuyerAgree)
	assert.False(t, afterBuyer.SellerAgree)
	assert.Equal(t, models.StatusPending, afterBuyer.Status)

	outcome, afterSeller, err := l.Confirm(100, trade.TradeID, "@bob")
	assert.NoError(t, err)
	assert.Equal(t, Locked, outcome)
	assert.True(t, afterSeller.BuyerAgree)
	assert.True(t, afterSeller.SellerAgree)
	assert.Equal(t, models.StatusAgreed, afterSeller.Status)
}

func TestConfirm_ThirdPartyNotAuthorized(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	_, _, err := l.Confirm(100, trade.TradeID, "@carol")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	unchanged, err := l.Get(100, trade.TradeID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, unchanged.Status)
	assert.False(t, unchanged.BuyerAgree)
	assert.False(t, unchanged.SellerAgree)
}

func TestConfirm_SameRoleTwiceIsIdempotent(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	outcome, first, err := l.Confirm(100, trade.TradeID, "@alice")
	assert.NoError(t, err)
	assert.Equal(t, Waiting, outcome)

	outcome, second, err := l.Confirm(100, trade.TradeID, "@alice")
	assert.NoError(t, err)
	assert.Equal(t, Waiting, outcome)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.BuyerAgree, second.BuyerAgree)
	assert.Equal(t, first.SellerAgree, second.SellerAgree)
}

func TestConfirm_UnknownTrade(t *testing.T) {
	l, _ := setupLedger(t)

	_, _, err := l.Confirm(100, "Trd-9999", "@alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirm_LookupIsScopedToGroup(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	_, _, err := l.Confirm(200, trade.TradeID, "@alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAgreedTradeRejectsFurtherActions(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	_, _, err := l.Confirm(100, trade.TradeID, "@alice")
	assert.NoError(t, err)
	outcome, _, err := l.Confirm(100, trade.TradeID, "@bob")
	assert.NoError(t, err)
	assert.Equal(t, Locked, outcome)

	_, _, err = l.Confirm(100, trade.TradeID, "@alice")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = l.Cancel(100, trade.TradeID, "@bob")
	assert.ErrorIs(t, err, ErrInvalidState)

	unchanged, err := l.Get(100, trade.TradeID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAgreed, unchanged.Status)
}

func TestCancel_PendingTrade(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	cancelled, err := l.Cancel(100, trade.TradeID, "@bob")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// Cancelled is terminal.
	_, _, err = l.Confirm(100, trade.TradeID, "@alice")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = l.Cancel(100, trade.TradeID, "@alice")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancel_ThirdPartyNotAuthorized(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	_, err := l.Cancel(100, trade.TradeID, "@carol")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestComplete_MarksTradeDone(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	_, _, err := l.Confirm(100, trade.TradeID, "@alice")
	assert.NoError(t, err)
	_, _, err = l.Confirm(100, trade.TradeID, "@bob")
	assert.NoError(t, err)

	done, err := l.Complete(100, trade.TradeID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDone, done.Status)
}

func TestComplete_NoStatusGuardAndIdempotent(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	// Completion is allowed straight from pending and may be repeated.
	done, err := l.Complete(100, trade.TradeID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDone, done.Status)

	again, err := l.Complete(100, trade.TradeID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDone, again.Status)
}

func TestComplete_UnknownTrade(t *testing.T) {
	l, _ := setupLedger(t)

	_, err := l.Complete(100, "Trd-0042")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetOriginMessage(t *testing.T) {
	l, _ := setupLedger(t)
	trade := createTestTrade(t, l, 100)

	assert.NoError(t, l.SetOriginMessage(100, trade.TradeID, 777))

	linked, err := l.Get(100, trade.TradeID)
	assert.NoError(t, err)
	assert.Equal(t, int64(777), linked.MessageID)

	assert.ErrorIs(t, l.SetOriginMessage(100, "Trd-9999", 777), ErrNotFound)
}
