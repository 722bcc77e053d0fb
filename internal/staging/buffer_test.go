package staging

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	calls [][]core.Row
	table core.Table
	err   error
}

func (f *fakeAppender) Append(_ context.Context, table core.Table, rows []core.Row) error {
	f.calls = append(f.calls, rows)
	f.table = table
	return f.err
}

func sampleTx(day int, typ core.TxType, cents int64) core.Transaction {
	return core.Transaction{Date: core.NewDate(2024, 6, day), Type: typ, Amount: core.Money{Cents: cents}}
}

func TestAppendPreservesOrder(t *testing.T) {
	b := New[core.Transaction]()
	b.Append(sampleTx(1, core.Income, 100))
	b.AppendBatch([]core.Transaction{sampleTx(2, core.Expense, 200), sampleTx(3, core.Expense, 300)})
	b.Append(sampleTx(4, core.Income, 400))

	items := b.Items()
	require.Len(t, items, 4)
	for i, it := range items {
		assert.Equal(t, i+1, it.Date.Day())
	}
}

func TestAppendBatchEmptyIsNoop(t *testing.T) {
	b := New[core.Transaction]()
	b.Append(sampleTx(1, core.Income, 100))
	gen := b.Generation()

	b.AppendBatch(nil)
	b.AppendBatch([]core.Transaction{})

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, gen, b.Generation())
}

func TestAppendNormalizesFields(t *testing.T) {
	b := New[core.Bill]()
	b.Append(core.Bill{Name: "  Rent ", Category: " Housing", DueDay: 1, Recurring: core.Monthly})

	got := b.Items()[0]
	assert.Equal(t, "Rent", got.Name)
	assert.Equal(t, "Housing", got.Category)
	assert.Equal(t, core.BillsTable, b.Table())
}

func TestClearBumpsGeneration(t *testing.T) {
	b := New[core.Transaction]()
	b.Append(sampleTx(1, core.Income, 100))
	before := b.Generation()

	b.Clear()

	assert.Zero(t, b.Len())
	assert.Equal(t, before+1, b.Generation())
}

func TestSubmitClearsOnSuccess(t *testing.T) {
	b := New[core.Transaction]()
	b.AppendBatch([]core.Transaction{sampleTx(1, core.Income, 200000), sampleTx(15, core.Expense, 50000)})
	app := &fakeAppender{}

	n, err := b.Submit(context.Background(), app)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, b.Len())

	require.Len(t, app.calls, 1, "submit must be a single append call")
	assert.Equal(t, core.TransactionsTable, app.table)
	assert.Equal(t, "2024-06-01", app.calls[0][0][core.ColDate])
	assert.Equal(t, "500.00", app.calls[0][1][core.ColAmount])
}

func TestSubmitKeepsBufferOnFailure(t *testing.T) {
	b := New[core.Transaction]()
	b.Append(sampleTx(1, core.Income, 100))
	gen := b.Generation()
	app := &fakeAppender{err: errors.New("quota exceeded")}

	n, err := b.Submit(context.Background(), app)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Zero(t, n)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, gen, b.Generation())

	app.err = nil
	n, err = b.Submit(context.Background(), app)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, app.calls, 2)
}

func TestSubmitEmptyBufferSkipsStore(t *testing.T) {
	b := New[core.Bill]()
	app := &fakeAppender{}

	n, err := b.Submit(context.Background(), app)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, app.calls)
}
