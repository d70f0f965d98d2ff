package dispatch

import "github.com/shopspring/decimal"

// Record is one FMS sheet row mapped to named fields.
// RowIndex is the 1-based sheet row, used when posting updates back.
type Record struct {
	RowIndex    int    `json:"row_index"`
	Timestamp   string `json:"timestamp"`
	OrderNo     string `json:"order_no"`
	GateEntryNo string `json:"gate_entry_no"`
	PartyName   string `json:"party_name"`
	TruckNo     string `json:"truck_no"`

	ItemName     string `json:"item_name"`
	Salesperson  string `json:"salesperson"`
	State        string `json:"state"`
	DispatchDate string `json:"dispatch_date"`

	Quantity         decimal.Decimal `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentsReceived decimal.Decimal `json:"payments_received"`
	BalanceAmount    decimal.Decimal `json:"balance_amount"`

	// stage markers
	GateIn              string `json:"gate_in"`
	FirstWeightPlanned  string `json:"first_weight_planned"`
	WBIn                string `json:"wb_in"`
	WBSlipNo            string `json:"wb_slip_no"`
	LoadingStart        string `json:"loading_start"`
	LoadingEnd          string `json:"loading_end"`
	Supervisor          string `json:"supervisor"`
	Remarks             string `json:"remarks"`
	SecondWeightPlanned string `json:"second_weight_planned"`
	WBOut               string `json:"wb_out"`
	GateOutPlanned      string `json:"gate_out_planned"`
	GateOut             string `json:"gate_out"`
}

// Value returns the string value of a field. Numeric fields come back
// in their canonical decimal form.
func (r Record) Value(f Field) string {
	switch f {
	case FieldTimestamp:
		return r.Timestamp
	case FieldOrderNo:
		return r.OrderNo
	case FieldGateEntryNo:
		return r.GateEntryNo
	case FieldParty:
		return r.PartyName
	case FieldTruckNo:
		return r.TruckNo
	case FieldItem:
		return r.ItemName
	case FieldSalesperson:
		return r.Salesperson
	case FieldState:
		return r.State
	case FieldDispatchDate:
		return r.DispatchDate
	case FieldQuantity:
		return r.Quantity.String()
	case FieldAmount:
		return r.Amount.String()
	case FieldPaymentsReceived:
		return r.PaymentsReceived.String()
	case FieldBalance:
		return r.BalanceAmount.String()
	case FieldGateIn:
		return r.GateIn
	case FieldFirstWeightPlanned:
		return r.FirstWeightPlanned
	case FieldWBIn:
		return r.WBIn
	case FieldWBSlipNo:
		return r.WBSlipNo
	case FieldLoadingStart:
		return r.LoadingStart
	case FieldLoadingEnd:
		return r.LoadingEnd
	case FieldSupervisor:
		return r.Supervisor
	case FieldRemarks:
		return r.Remarks
	case FieldSecondWeightPlanned:
		return r.SecondWeightPlanned
	case FieldWBOut:
		return r.WBOut
	case FieldGateOutPlanned:
		return r.GateOutPlanned
	case FieldGateOut:
		return r.GateOut
	}
	return ""
}

// HasIdentity reports whether the row carries any of the identifying
// columns. Rows without them are spreadsheet noise.
func (r Record) HasIdentity() bool {
	return r.OrderNo != "" || r.GateEntryNo != "" || r.PartyName != "" || r.TruckNo != ""
}
