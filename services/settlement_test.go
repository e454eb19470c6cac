package services

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-tournament-system/models"
)

func ptr[T any](v T) *T { return &v }

type flow struct {
	from, to string
	amount   int64
}

func flows(ts []Transfer) []flow {
	out := make([]flow, 0, len(ts))
	for _, t := range ts {
		to := "jackpot"
		if t.To != nil {
			to = *t.To
		}
		out = append(out, flow{t.From, to, t.Amount})
	}
	return out
}

func TestComputeSettlement(t *testing.T) {
	tests := []struct {
		name     string
		balances []PlayerBalance
		jackpot  int64
		want     []flow
	}{
		{
			name:     "single creditor absorbs both debts",
			balances: []PlayerBalance{{PlayerID: "a", Balance: -150}, {PlayerID: "b", Balance: -50}, {PlayerID: "c", Balance: 200}},
			want:     []flow{{"a", "c", 150}, {"b", "c", 50}},
		},
		{
			name:     "greedy split when nothing matches",
			balances: []PlayerBalance{{PlayerID: "a", Balance: -100}, {PlayerID: "b", Balance: 60}, {PlayerID: "c", Balance: 40}},
			want:     []flow{{"a", "b", 60}, {"a", "c", 40}},
		},
		{
			name: "exact matches first, smallest debt first",
			balances: []PlayerBalance{
				{PlayerID: "a", Balance: -70}, {PlayerID: "b", Balance: -30},
				{PlayerID: "c", Balance: 70}, {PlayerID: "d", Balance: 30},
			},
			want: []flow{{"b", "d", 30}, {"a", "c", 70}},
		},
		{
			name: "absorption picks the smallest creditor that fits",
			balances: []PlayerBalance{
				{PlayerID: "a", Balance: -90},
				{PlayerID: "b", Balance: 200}, {PlayerID: "c", Balance: 100}, {PlayerID: "d", Balance: -210},
			},
			want: []flow{{"a", "c", 90}, {"d", "b", 200}, {"d", "c", 10}},
		},
		{
			name:     "jackpot pool is a creditor without a player",
			balances: []PlayerBalance{{PlayerID: "a", Balance: -120}, {PlayerID: "b", Balance: 100}},
			jackpot:  20,
			want:     []flow{{"a", "b", 100}, {"a", "jackpot", 20}},
		},
		{
			name:     "extra credit from rounding lands on the largest debtor",
			balances: []PlayerBalance{{PlayerID: "a", Balance: -99}, {PlayerID: "b", Balance: -10}, {PlayerID: "c", Balance: 110}},
			want:     []flow{{"a", "c", 100}, {"b", "c", 10}},
		},
		{
			name:     "extra debt from rounding lands on the largest player creditor",
			balances: []PlayerBalance{{PlayerID: "a", Balance: -101}, {PlayerID: "b", Balance: 100}},
			jackpot:  0,
			want:     []flow{{"a", "b", 101}},
		},
		{
			name:     "nothing to settle",
			balances: []PlayerBalance{{PlayerID: "a", Balance: 0}, {PlayerID: "b", Balance: 0}},
			want:     []flow{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeSettlement(SettlementInput{Balances: tc.balances, Jackpot: tc.jackpot})
			require.NoError(t, err)
			assert.Equal(t, tc.want, flows(got))
		})
	}
}

func TestComputeSettlement_PaymentTagging(t *testing.T) {
	got, err := ComputeSettlement(SettlementInput{
		Balances: []PlayerBalance{{PlayerID: "a", Balance: -120}, {PlayerID: "b", Balance: 100}},
		Jackpot:  20,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.PaymentTypePoker, got[0].Type)
	assert.Equal(t, PokerResultSummary, got[0].Description)
	assert.Equal(t, models.PaymentTypeJackpot, got[1].Type)
	assert.Nil(t, got[1].To)
	assert.Equal(t, JackpotPayeeName, got[1].Description)
}

func TestComputeSettlement_Expenses(t *testing.T) {
	got, err := ComputeSettlement(SettlementInput{
		Balances: []PlayerBalance{{PlayerID: "a", Balance: -50}, {PlayerID: "b", Balance: 50}},
		Expenses: []ExpenseInput{{
			ExpenseID:   "e-1",
			PaidBy:      "a",
			Description: "Pizza",
			Shares: []ExpenseShareInput{
				{PlayerID: "a", Amount: decimal.RequireFromString("10.00")},
				{PlayerID: "b", Amount: decimal.RequireFromString("10.40")},
				{PlayerID: "c", Amount: decimal.RequireFromString("10.50")},
				{PlayerID: "d", Amount: decimal.RequireFromString("0.40")},
			},
		}},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, flow{"a", "b", 50}, flows(got)[0])
	assert.Equal(t, []flow{{"b", "a", 10}, {"c", "a", 11}}, flows(got)[1:])
	for _, tr := range got[1:] {
		assert.Equal(t, models.PaymentTypeExpense, tr.Type)
		assert.Equal(t, "Pizza", tr.Description)
		require.NotNil(t, tr.ExpenseID)
		assert.Equal(t, "e-1", *tr.ExpenseID)
	}
}

func TestRoundMoney(t *testing.T) {
	cases := map[string]int64{
		"2.5":   3,
		"-2.5":  -3,
		"2.49":  2,
		"-0.5":  -1,
		"10.00": 10,
	}
	for in, want := range cases {
		assert.Equal(t, want, RoundMoney(decimal.RequireFromString(in)), in)
	}
}

// Every debtor pays exactly what they owe and every creditor, the jackpot
// pool included, receives exactly their balance.
func TestComputeSettlement_Conservation(t *testing.T) {
	faker := gofakeit.New(20260314)

	for run := 0; run < 200; run++ {
		n := faker.IntRange(2, 12)
		balances := make([]PlayerBalance, 0, n)
		var sum int64
		for i := 0; i < n-1; i++ {
			b := int64(faker.IntRange(-40, 40)) * 10
			balances = append(balances, PlayerBalance{PlayerID: fmt.Sprintf("p%d", i), Name: faker.FirstName(), Balance: b})
			sum += b
		}
		jackpot := int64(faker.IntRange(0, 5)) * 10
		// The last player closes the books so credit equals debt.
		balances = append(balances, PlayerBalance{PlayerID: fmt.Sprintf("p%d", n-1), Balance: -sum - jackpot})

		got, err := ComputeSettlement(SettlementInput{Balances: balances, Jackpot: jackpot})
		require.NoError(t, err, "run %d", run)

		paid := map[string]int64{}
		received := map[string]int64{}
		for _, tr := range got {
			require.Positive(t, tr.Amount)
			paid[tr.From] += tr.Amount
			to := "jackpot"
			if tr.To != nil {
				to = *tr.To
			}
			received[to] += tr.Amount
		}

		parties := 0
		for _, b := range balances {
			switch {
			case b.Balance < 0:
				parties++
				assert.Equal(t, -b.Balance, paid[b.PlayerID], "run %d debtor %s", run, b.PlayerID)
			case b.Balance > 0:
				parties++
				assert.Equal(t, b.Balance, received[b.PlayerID], "run %d creditor %s", run, b.PlayerID)
			}
		}
		if jackpot > 0 {
			parties++
		}
		assert.Equal(t, jackpot, received["jackpot"], "run %d jackpot", run)
		assert.LessOrEqual(t, len(got), parties, "run %d", run)
	}
}

func TestComputeSettlement_IsDeterministic(t *testing.T) {
	in := SettlementInput{
		Balances: []PlayerBalance{
			{PlayerID: "a", Balance: -35}, {PlayerID: "b", Balance: -65}, {PlayerID: "c", Balance: -100},
			{PlayerID: "d", Balance: 120}, {PlayerID: "e", Balance: 55},
		},
		Jackpot: 25,
	}
	first, err := ComputeSettlement(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ComputeSettlement(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, ptr("d"), first[0].To)
}
