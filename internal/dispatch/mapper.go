package dispatch

// ParseRows maps raw sheet rows to records. Rows before the layout's data
// start row and rows with no content are skipped.
func ParseRows(rows [][]any, l Layout) []Record {
	if l.DataStartRow >= len(rows) {
		return []Record{}
	}
	records := make([]Record, 0, len(rows)-l.DataStartRow)
	for i := l.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		records = append(records, l.Record(row, i+1))
	}
	return records
}

// Header returns the header row of rows as text.
func Header(rows [][]any, l Layout) []string {
	if l.HeaderRow < 0 || l.HeaderRow >= len(rows) {
		return nil
	}
	row := rows[l.HeaderRow]
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = CellString(v)
	}
	return out
}

// Record maps a single raw row. rowIndex is the 1-based sheet row.
func (l Layout) Record(row []any, rowIndex int) Record {
	get := func(f Field) string {
		i, ok := l.Columns[f]
		if !ok {
			return ""
		}
		return CellAt(row, i)
	}

	return Record{
		RowIndex:    rowIndex,
		Timestamp:   get(FieldTimestamp),
		OrderNo:     get(FieldOrderNo),
		GateEntryNo: get(FieldGateEntryNo),
		PartyName:   get(FieldParty),
		TruckNo:     get(FieldTruckNo),

		ItemName:     get(FieldItem),
		Salesperson:  get(FieldSalesperson),
		State:        get(FieldState),
		DispatchDate: get(FieldDispatchDate),

		Quantity:         ParseNumber(get(FieldQuantity)),
		Amount:           ParseNumber(get(FieldAmount)),
		PaymentsReceived: ParseNumber(get(FieldPaymentsReceived)),
		BalanceAmount:    ParseNumber(get(FieldBalance)),

		GateIn:              get(FieldGateIn),
		FirstWeightPlanned:  get(FieldFirstWeightPlanned),
		WBIn:                get(FieldWBIn),
		WBSlipNo:            get(FieldWBSlipNo),
		LoadingStart:        get(FieldLoadingStart),
		LoadingEnd:          get(FieldLoadingEnd),
		Supervisor:          get(FieldSupervisor),
		Remarks:             get(FieldRemarks),
		SecondWeightPlanned: get(FieldSecondWeightPlanned),
		WBOut:               get(FieldWBOut),
		GateOutPlanned:      get(FieldGateOutPlanned),
		GateOut:             get(FieldGateOut),
	}
}

func isBlank(row []any) bool {
	for _, v := range row {
		if CellString(v) != "" {
			return false
		}
	}
	return true
}
