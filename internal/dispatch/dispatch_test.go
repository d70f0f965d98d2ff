package dispatch

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(party, amount string) Record {
	return Record{PartyName: party, Amount: ParseNumber(amount)}
}

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := ParseDateBound(s)
	require.NoError(t, err)
	return d
}

func sampleRecords() []Record {
	return []Record{
		{PartyName: "Acme", State: "Gujarat", Salesperson: "Ravi", ItemName: "Coil", Timestamp: "01/08/2025 09:00:00", Amount: decimal.NewFromInt(100)},
		{PartyName: "Bharat", State: "Punjab", Salesperson: "Meena", ItemName: "Sheet", Timestamp: "15/08/2025", Amount: decimal.NewFromInt(50)},
		{PartyName: "Acme", State: "Punjab", Salesperson: "Ravi", ItemName: "Sheet", Timestamp: "2025-09-01", Amount: decimal.NewFromInt(30)},
		{PartyName: "", State: "Gujarat", Salesperson: "", ItemName: "Coil", Timestamp: "", Amount: decimal.NewFromInt(7)},
		{PartyName: "Chetak", State: "", Salesperson: "Meena", ItemName: "", Timestamp: "not a date", Amount: decimal.NewFromInt(1)},
	}
}

func TestTopCustomers_RanksByAmount(t *testing.T) {
	records := []Record{rec("A", "100"), rec("B", "50"), rec("A", "30")}

	rows := TopCustomers(records, TopN)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "A", rows[0].Name)
	assert.True(t, rows[0].TotalAmount.Equal(decimal.NewFromInt(130)))
	assert.Equal(t, "₹130", rows[0].Amount)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, "B", rows[1].Name)
	assert.True(t, rows[1].TotalAmount.Equal(decimal.NewFromInt(50)))
}

func TestTopCustomers_NonNumericAmountIsZero(t *testing.T) {
	records := []Record{rec("A", "abc"), rec("A", "20")}

	rows := TopCustomers(records, TopN)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].TotalAmount.Equal(decimal.NewFromInt(20)))
}

func TestTopCustomers_Projection(t *testing.T) {
	records := []Record{
		{PartyName: "A", ItemName: "Coil", Quantity: ParseNumber("1.5"), DispatchDate: "02/08/2025", BalanceAmount: ParseNumber("1,000")},
		{PartyName: "A", ItemName: "Sheet", Quantity: ParseNumber("2"), BalanceAmount: ParseNumber("250.5")},
		{PartyName: "A", ItemName: "Coil", Quantity: ParseNumber("0.25"), DispatchDate: "03/08/2025"},
	}

	rows := TopCustomers(records, TopN)

	require.Len(t, rows, 1)
	assert.Equal(t, "Coil, Sheet", rows[0].ItemNames)
	assert.Equal(t, "3.75", rows[0].TotalQty)
	assert.Equal(t, 2, rows[0].Dispatches)
	assert.Equal(t, "₹1,250.5", rows[0].BalanceAmount)
}

func TestTopCustomers_TiesKeepFirstSeenOrder(t *testing.T) {
	records := []Record{rec("Z", "10"), rec("M", "10"), rec("A", "10"), rec("Q", "5")}

	rows := TopCustomers(records, TopN)

	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Z", "M", "A", "Q"}, names)
}

func TestTopCustomers_TruncatesToN(t *testing.T) {
	var records []Record
	for i := 0; i < 15; i++ {
		records = append(records, rec(fmt.Sprintf("P%02d", i), fmt.Sprint(i+1)))
	}

	rows := TopCustomers(records, TopN)

	require.Len(t, rows, TopN)
	assert.Equal(t, "P14", rows[0].Name)
	assert.Equal(t, "P05", rows[TopN-1].Name)
}

func TestTopCustomers_Idempotent(t *testing.T) {
	records := sampleRecords()

	first := TopCustomers(records, TopN)
	second := TopCustomers(records, TopN)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Rank, second[i].Rank)
		assert.Equal(t, first[i].Amount, second[i].Amount)
	}
}

func TestAggregate_SumMatchesPartyRecords(t *testing.T) {
	records := sampleRecords()

	aggTotal := decimal.Zero
	for _, a := range Aggregate(records) {
		aggTotal = aggTotal.Add(a.TotalAmount)
	}
	recTotal := decimal.Zero
	for _, r := range records {
		if r.PartyName != "" {
			recTotal = recTotal.Add(r.Amount)
		}
	}

	assert.True(t, aggTotal.Equal(recTotal), "aggregate %s != records %s", aggTotal, recTotal)
}

func TestFilter_DateRange(t *testing.T) {
	records := []Record{
		{OrderNo: "1", Timestamp: "2025-09-01"},
		{OrderNo: "2", Timestamp: "2025-08-15"},
		{OrderNo: "3", Timestamp: "31/08/2025 23:59:59"},
		{OrderNo: "4", Timestamp: ""},
	}
	c := Criteria{From: date(t, "2025-08-01"), To: date(t, "2025-08-31")}

	got := Filter(records, c)

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].OrderNo)
	assert.Equal(t, "3", got[1].OrderNo)
}

func TestFilter_UnparseableDateIncludedWithoutBounds(t *testing.T) {
	records := []Record{{OrderNo: "1", Timestamp: "garbage"}}

	assert.Len(t, Filter(records, Criteria{}), 1)
	assert.Empty(t, Filter(records, Criteria{To: date(t, "2030-01-01")}))
}

func TestFilter_Sentinels(t *testing.T) {
	records := sampleRecords()

	for _, c := range []Criteria{
		{},
		{Party: "All Parties"},
		{State: "All States", Salesperson: "All Salespersons", Item: "All Items"},
		{Party: "All"},
		{Party: "   "},
	} {
		assert.Len(t, Filter(records, c), len(records), "%+v", c)
		assert.False(t, c.HasActive())
		s, _ := Summarize(records, c)
		assert.False(t, s.Filtered)
	}

	s, _ := Summarize(records, Criteria{Item: "TMT"})
	assert.True(t, s.Filtered)
}

func TestFilter_EmptyValueNeverMatchesActiveFilter(t *testing.T) {
	records := sampleRecords()

	got := Filter(records, Criteria{State: "Gujarat"})

	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "Gujarat", r.State)
	}
	assert.Empty(t, Filter([]Record{{PartyName: ""}}, Criteria{Party: "Acme"}))
}

func TestFilter_CombinesDimensions(t *testing.T) {
	got := Filter(sampleRecords(), Criteria{Party: "Acme", State: "Punjab"})

	require.Len(t, got, 1)
	assert.Equal(t, "Sheet", got[0].ItemName)
}

func TestFilter_InactiveIsSuperset(t *testing.T) {
	records := sampleRecords()
	all := Filter(records, Criteria{})

	for _, party := range []string{"Acme", "Bharat", "Chetak", "Nobody"} {
		subset := Filter(records, Criteria{Party: party})
		assert.LessOrEqual(t, len(subset), len(all))
		for _, r := range subset {
			assert.Contains(t, all, r)
		}
	}
}

func TestParseDateBound(t *testing.T) {
	d, err := ParseDateBound("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDateBound("2025-13-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCriteria_Applied(t *testing.T) {
	c := Criteria{Party: "Acme", State: "All States", From: date(t, "2025-08-01")}

	assert.Equal(t, []AppliedFilter{
		{Label: "Party", Value: "Acme"},
		{Label: "From", Value: "01/08/2025"},
	}, c.Applied())
}

func TestDistribution_OthersBucket(t *testing.T) {
	var records []Record
	total := 0
	for i := 0; i < 12; i++ {
		for j := 0; j < 12-i; j++ {
			records = append(records, Record{PartyName: fmt.Sprintf("P%02d", i)})
			total++
		}
	}
	records = append(records, Record{PartyName: ""})

	got := Distribution(records, TopN)

	require.Len(t, got, TopN+1)
	assert.Equal(t, Slice{Name: "P00", Value: 12}, got[0])
	last := got[len(got)-1]
	assert.Equal(t, OthersLabel, last.Name)

	topSum := 0
	for _, s := range got[:TopN] {
		topSum += s.Value
	}
	assert.Equal(t, total-topSum, last.Value)
	assert.Equal(t, 3, last.Value)
}

func TestDistribution_NoOthersWhenFew(t *testing.T) {
	records := []Record{{PartyName: "B"}, {PartyName: "A"}, {PartyName: "A"}}

	got := Distribution(records, TopN)

	want := []Slice{{Name: "A", Value: 2}, {Name: "B", Value: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Distribution mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeMetrics(t *testing.T) {
	records := []Record{
		{GateIn: "x", WBIn: "x", LoadingStart: "x", Amount: ParseNumber("100"), PaymentsReceived: ParseNumber("40"), BalanceAmount: ParseNumber("60")},
		{GateIn: "x", WBIn: "x", WBOut: "x", LoadingStart: "x", LoadingEnd: "x", DispatchDate: "x", GateOut: "x", Amount: ParseNumber("abc")},
		{},
	}

	m := ComputeMetrics(records)

	assert.Equal(t, 2, m.TotalGateIn)
	assert.Equal(t, 1, m.TotalGateOut)
	assert.Equal(t, 2, m.TotalPendingGateOut)
	assert.Equal(t, 1, m.LoadingPending)
	assert.Equal(t, 1, m.TotalDispatch)
	assert.Equal(t, 2, m.WBIn)
	assert.Equal(t, 1, m.WBOut)
	assert.Equal(t, 2, m.WBPending)
	assert.True(t, m.TotalAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, m.TotalPaymentsReceived.Equal(decimal.NewFromInt(40)))
	assert.True(t, m.PendingPayments.Equal(decimal.NewFromInt(60)))
}

func TestCollectOptions(t *testing.T) {
	opts := CollectOptions(sampleRecords())

	assert.Equal(t, []string{"Acme", "Bharat", "Chetak"}, opts.Parties)
	assert.Equal(t, []string{"Gujarat", "Punjab"}, opts.States)
	assert.Equal(t, []string{"Meena", "Ravi"}, opts.Salespersons)
	assert.Equal(t, []string{"Coil", "Sheet"}, opts.Items)
}

func TestSummarize(t *testing.T) {
	s, filtered := Summarize(sampleRecords(), Criteria{Salesperson: "Ravi"})

	assert.Len(t, filtered, 2)
	assert.Equal(t, 2, s.TotalRecords)
	require.Len(t, s.TopCustomers, 1)
	assert.Equal(t, "Acme", s.TopCustomers[0].Name)
	assert.Equal(t, []Slice{{Name: "Acme", Value: 2}}, s.Distribution)
	assert.True(t, s.Metrics.TotalAmount.Equal(decimal.NewFromInt(130)))
}
