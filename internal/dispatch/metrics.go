package dispatch

import "github.com/shopspring/decimal"

// Metrics are the dashboard KPIs. They are independent counters, not a
// partition: one row usually feeds several of them.
type Metrics struct {
	TotalGateIn           int             `json:"total_gate_in"`
	TotalGateOut          int             `json:"total_gate_out"`
	TotalPendingGateOut   int             `json:"total_pending_gate_out"`
	LoadingPending        int             `json:"loading_pending"`
	TotalDispatch         int             `json:"total_dispatch"`
	WBIn                  int             `json:"wb_in"`
	WBOut                 int             `json:"wb_out"`
	WBPending             int             `json:"wb_pending"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	TotalPaymentsReceived decimal.Decimal `json:"total_payments_received"`
	PendingPayments       decimal.Decimal `json:"pending_payments"`
}

func ComputeMetrics(records []Record) Metrics {
	m := Metrics{
		TotalAmount:           decimal.Zero,
		TotalPaymentsReceived: decimal.Zero,
		PendingPayments:       decimal.Zero,
	}
	for _, r := range records {
		if r.GateIn != "" {
			m.TotalGateIn++
		}
		if r.GateOut != "" {
			m.TotalGateOut++
		} else {
			m.TotalPendingGateOut++
		}
		if r.LoadingStart != "" && r.LoadingEnd == "" {
			m.LoadingPending++
		}
		if r.DispatchDate != "" {
			m.TotalDispatch++
		}
		if r.WBIn != "" {
			m.WBIn++
		}
		if r.WBOut != "" {
			m.WBOut++
		} else {
			m.WBPending++
		}
		m.TotalAmount = m.TotalAmount.Add(r.Amount)
		m.TotalPaymentsReceived = m.TotalPaymentsReceived.Add(r.PaymentsReceived)
		m.PendingPayments = m.PendingPayments.Add(r.BalanceAmount)
	}
	return m
}
