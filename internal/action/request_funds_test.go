package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorcore/pkg/domain"
)

func TestRequestOffchainFundsRejectsUnsupportedProtocol(t *testing.T) {
	f := newFixture()
	h := NewRequestOffchainFunds(f.deps)

	for _, p := range []domain.Protocol{"100", domain.ProtocolSep31} {
		for _, status := range []domain.Status{domain.StatusIncomplete, domain.StatusCompleted, "bogus"} {
			txn := depositTxn(status)
			txn.Protocol = p
			_, err := h.Handle(context.Background(), txn, fullAmounts(Request{TransactionID: txn.ID}))

			var perr domain.UnsupportedProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, p, perr.Protocol)
			assert.EqualError(t, err, "Protocol["+string(p)+"] is not supported by action[request_offchain_funds]")
		}
	}
	_, saves := f.sep24.counts()
	assert.Zero(t, saves)
}

func TestRequestOffchainFundsRejectsUnsupportedStatus(t *testing.T) {
	f := newFixture()
	h := NewRequestOffchainFunds(f.deps)
	allowed := domain.StatusSet(domain.StatusIncomplete, domain.StatusPendingAnchor)

	for _, status := range domain.ProtocolSep24.Statuses() {
		if _, ok := allowed[status]; ok {
			continue
		}
		_, err := h.Handle(context.Background(), depositTxn(status), fullAmounts(Request{TransactionID: "tx-deposit"}))
		assert.EqualError(t, err, "Action[request_offchain_funds] is not supported for status["+string(status)+"]")
	}

	// Allowed statuses under a kind the action does not serve still report
	// the current status.
	for _, kind := range []domain.Kind{domain.KindWithdrawal, "swap"} {
		txn := depositTxn(domain.StatusIncomplete)
		txn.Kind = kind
		_, err := h.Handle(context.Background(), txn, fullAmounts(Request{TransactionID: txn.ID}))
		var serr domain.UnsupportedStatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, domain.StatusIncomplete, serr.Status)
	}

	received := fixedNow
	txn := depositTxn(domain.StatusPendingAnchor)
	txn.TransferReceivedAt = &received
	_, err := h.Handle(context.Background(), txn, fullAmounts(Request{TransactionID: txn.ID}))
	assert.EqualError(t, err, "Action[request_offchain_funds] is not supported for status[pending_anchor]")

	_, saves := f.sep24.counts()
	assert.Zero(t, saves)
}

func TestRequestOffchainFundsStructuralErrorsAreAggregated(t *testing.T) {
	f := newFixture()
	h := NewRequestOffchainFunds(f.deps)

	req := Request{
		TransactionID: "tx-deposit",
		AmountIn:      amountReq("abc", ""),
		AmountOut:     amountReq("0.9", usd),
		AmountFee:     amountReq("0.1", usdc),
	}
	_, err := h.Handle(context.Background(), depositTxn(domain.StatusIncomplete), req)

	var ierr domain.InvalidParamsError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, []string{"amount_in.amount is not a valid decimal", "amount_in.asset is required"}, ierr.Messages)
	assert.EqualError(t, err, "amount_in.amount is not a valid decimal\namount_in.asset is required")
}

func TestRequestOffchainFundsRejectsOversizedDecimals(t *testing.T) {
	f := newFixture()
	h := NewRequestOffchainFunds(f.deps)
	txn := depositTxn(domain.StatusIncomplete)
	f.sep24.seed(t, txn)

	req := fullAmounts(Request{TransactionID: txn.ID, AmountExpected: strPtr("1e-400")})
	req.AmountIn = amountReq("1e3000000", usdc)
	_, err := h.Handle(context.Background(), txn, req)

	var ierr domain.InvalidParamsError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, []string{"amount_in.amount is not a valid decimal", "amount_expected is not a valid decimal"}, ierr.Messages)
	_, saves := f.sep24.counts()
	assert.Zero(t, saves)

	req = fullAmounts(Request{TransactionID: txn.ID})
	req.AmountIn = amountReq("123456789012345678901234567890123456789", usdc)
	_, err = h.Handle(context.Background(), txn, req)
	assert.EqualError(t, err, "amount_in.amount is not a valid decimal")
}

func TestRequestOffchainFundsAmountRules(t *testing.T) {
	cases := []struct {
		name   string
		stored func(*domain.Transaction) *domain.Transaction
		req    Request
		want   string
	}{
		{
			name: "nothing on request or record",
			req:  Request{TransactionID: "tx-deposit"},
			want: "amount_in is required",
		},
		{
			name: "only amount_in supplied",
			req:  Request{TransactionID: "tx-deposit", AmountIn: amountReq("1", usdc)},
			want: allOrNoneMessage,
		},
		{
			name: "only amount_out and amount_fee supplied",
			req:  Request{TransactionID: "tx-deposit", AmountOut: amountReq("1", usd), AmountFee: amountReq("0", usdc)},
			want: allOrNoneMessage,
		},
		{
			name: "partial record",
			stored: func(txn *domain.Transaction) *domain.Transaction {
				in := domain.MustParseAmount("1", usdc)
				txn.AmountIn = &in
				return txn
			},
			req:  Request{TransactionID: "tx-deposit"},
			want: allOrNoneMessage,
		},
		{
			name: "unsupported asset",
			req: Request{
				TransactionID: "tx-deposit",
				AmountIn:      amountReq("1", "stellar:FOO:GFOO"),
				AmountOut:     amountReq("0.9", usd),
				AmountFee:     amountReq("0.1", usdc),
			},
			want: "'stellar:FOO:GFOO' is not a supported asset.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			txn := depositTxn(domain.StatusIncomplete)
			if tc.stored != nil {
				txn = tc.stored(txn)
			}
			_, err := NewRequestOffchainFunds(f.deps).Handle(context.Background(), txn, tc.req)
			var ierr domain.InvalidParamsError
			require.ErrorAs(t, err, &ierr)
			assert.EqualError(t, err, tc.want)
			_, saves := f.sep24.counts()
			assert.Zero(t, saves)
		})
	}
}

func TestRequestOffchainFundsSignViolationsSurfaceInTurn(t *testing.T) {
	f := newFixture()
	h := NewRequestOffchainFunds(f.deps)
	txn := depositTxn(domain.StatusIncomplete)

	req := Request{
		TransactionID:  txn.ID,
		AmountIn:       amountReq("-1", usdc),
		AmountOut:      amountReq("-0.9", usd),
		AmountFee:      amountReq("-0.1", usdc),
		AmountExpected: strPtr("0"),
	}
	steps := []struct {
		want string
		fix  func(*Request)
	}{
		{"amount_in.amount should be positive", func(r *Request) { r.AmountIn = amountReq("1", usdc) }},
		{"amount_out.amount should be positive", func(r *Request) { r.AmountOut = amountReq("0.9", usd) }},
		{"amount_fee.amount should be non-negative", func(r *Request) { r.AmountFee = amountReq("0", usdc) }},
		{"amount_expected.amount should be positive", func(r *Request) { r.AmountExpected = strPtr("1") }},
	}
	for _, step := range steps {
		_, err := h.Handle(context.Background(), txn, req)
		require.EqualError(t, err, step.want)
		step.fix(&req)
	}

	got, err := h.Handle(context.Background(), txn, req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingUsrTransferStart, got.Status)
	assert.Equal(t, "0", got.AmountFee.Amount)
}

func TestRequestOffchainFundsSuccess(t *testing.T) {
	f := newFixture()
	txn := depositTxn(domain.StatusIncomplete)
	f.sep24.seed(t, txn)

	got, err := NewRequestOffchainFunds(f.deps).Handle(context.Background(), txn, fullAmounts(Request{TransactionID: txn.ID}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingUsrTransferStart, got.Status)
	assert.Equal(t, domain.ProtocolSep24, got.Sep)
	assert.Equal(t, domain.KindDeposit, got.Kind)
	require.NotNil(t, got.AmountExpected)
	assert.Equal(t, "1", got.AmountExpected.Amount)
	assert.Equal(t, usdc, got.AmountExpected.Asset)
	assert.Equal(t, "0.9", got.AmountOut.Amount)
	assert.Equal(t, usd, got.AmountOut.Asset)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(fixedNow))
	assert.Nil(t, got.CompletedAt)

	_, saves24 := f.sep24.counts()
	_, saves31 := f.sep31.counts()
	assert.Equal(t, 1, saves24)
	assert.Zero(t, saves31)

	stored, err := f.sep24.Store.FindByTransactionID(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingUsrTransferStart, stored.Status)
	assert.True(t, stored.AmountExpected.Equal(stored.AmountIn.Value))

	// the caller's copy is untouched
	assert.Equal(t, domain.StatusIncomplete, txn.Status)
	assert.Nil(t, txn.AmountIn)
}

func TestRequestOffchainFundsUpdatedAtUsesWallClock(t *testing.T) {
	f := newFixture()
	f.deps.Now = nil
	txn := depositTxn(domain.StatusIncomplete)
	txn.UpdatedAt = time.Now().Add(-time.Minute)

	start := time.Now()
	got, err := NewRequestOffchainFunds(f.deps).Handle(context.Background(), txn, fullAmounts(Request{TransactionID: txn.ID}))
	end := time.Now()
	require.NoError(t, err)

	require.NotNil(t, got.UpdatedAt)
	assert.False(t, got.UpdatedAt.Before(start), "updated_at %s before start %s", got.UpdatedAt, start)
	assert.False(t, got.UpdatedAt.After(end), "updated_at %s after end %s", got.UpdatedAt, end)
}

func TestRequestOffchainFundsRederivesFromStoredAmounts(t *testing.T) {
	fromRequest := newFixture()
	viaRequest, err := NewRequestOffchainFunds(fromRequest.deps).Handle(context.Background(),
		depositTxn(domain.StatusIncomplete), fullAmounts(Request{TransactionID: "tx-deposit"}))
	require.NoError(t, err)

	fromRecord := newFixture()
	viaRecord, err := NewRequestOffchainFunds(fromRecord.deps).Handle(context.Background(),
		storeAmounts(depositTxn(domain.StatusIncomplete)), Request{TransactionID: "tx-deposit"})
	require.NoError(t, err)

	assert.Equal(t, viaRequest, viaRecord)
	_, saves := fromRecord.sep24.counts()
	assert.Equal(t, 1, saves)
}

func TestRequestOffchainFundsFromPendingAnchor(t *testing.T) {
	f := newFixture()
	req := fullAmounts(Request{TransactionID: "tx-deposit", AmountExpected: strPtr("2"), Message: "send it"})

	stored, err := NewRequestOffchainFunds(f.deps).Handle(context.Background(), depositTxn(domain.StatusPendingAnchor), req)
	require.NoError(t, err)
	assert.Equal(t, "2", stored.AmountExpected.Amount)
	assert.Equal(t, usdc, stored.AmountExpected.Asset)
	assert.Equal(t, "send it", stored.Message)
}

func TestRequestOffchainFundsPropagatesSaveFailure(t *testing.T) {
	f := newFixture()
	f.deps.Stores = []domain.TransactionStore{failingStore{newCountingStore(domain.ProtocolSep24)}}

	_, err := NewRequestOffchainFunds(f.deps).Handle(context.Background(), depositTxn(domain.StatusIncomplete), fullAmounts(Request{TransactionID: "tx-deposit"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Contains(t, err.Error(), "save transaction tx-deposit")
}

func TestRequestOffchainFundsWithoutOwningStore(t *testing.T) {
	f := newFixture()
	f.deps.Stores = []domain.TransactionStore{f.sep31}

	_, err := NewRequestOffchainFunds(f.deps).Handle(context.Background(), depositTxn(domain.StatusIncomplete), fullAmounts(Request{TransactionID: "tx-deposit"}))
	assert.EqualError(t, err, "no transaction store for protocol 24")
}

func TestRequestOnchainFunds(t *testing.T) {
	f := newFixture()
	h := NewRequestOnchainFunds(f.deps)

	req := fullAmounts(Request{
		TransactionID:      "tx-withdrawal",
		DestinationAccount: "GDEST",
		Memo:               "42",
		MemoType:           "id",
	})
	got, err := h.Handle(context.Background(), withdrawalTxn(domain.StatusIncomplete), req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingUsrTransferStart, got.Status)
	assert.Equal(t, domain.KindWithdrawal, got.Kind)

	stored, err := f.sep24.Store.FindByTransactionID(context.Background(), "tx-withdrawal")
	require.NoError(t, err)
	assert.Equal(t, "GDEST", stored.ToAccount)
	assert.Equal(t, "42", stored.Memo)
	assert.Equal(t, "id", stored.MemoType)

	_, err = h.Handle(context.Background(), depositTxn(domain.StatusIncomplete), fullAmounts(Request{TransactionID: "tx-deposit"}))
	assert.EqualError(t, err, "Action[request_onchain_funds] is not supported for status[incomplete]")
}

func TestRequestOnchainFundsKeepsStoredExpectedAmount(t *testing.T) {
	f := newFixture()
	txn := storeAmounts(withdrawalTxn(domain.StatusPendingAnchor))
	expected := domain.MustParseAmount("5", usdc).Value
	txn.AmountExpected = &expected

	got, err := NewRequestOnchainFunds(f.deps).Handle(context.Background(), txn, Request{TransactionID: txn.ID})
	require.NoError(t, err)
	assert.Equal(t, "5", got.AmountExpected.Amount)
}

func TestRequestOnchainFundsRejectsBadMemoType(t *testing.T) {
	f := newFixture()
	req := fullAmounts(Request{TransactionID: "tx-withdrawal", Memo: "x", MemoType: "base64"})

	_, err := NewRequestOnchainFunds(f.deps).Handle(context.Background(), withdrawalTxn(domain.StatusIncomplete), req)
	assert.EqualError(t, err, "memo_type must be one of [text id hash]")
}

var errDiskFull = errors.New("disk full")

type failingStore struct {
	*countingStore
}

func (failingStore) Save(context.Context, *domain.Transaction) (*domain.Transaction, error) {
	return nil, errDiskFull
}
