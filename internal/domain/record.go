package domain

// TabRecord is the stored form of a tab. The account index is derived state
// and is rebuilt by TabFromRecord.
type TabRecord struct {
	ID              TabID       `json:"id"`
	Name            string      `json:"name"`
	WorkingCurrency string      `json:"working_currency"`
	Users           []User      `json:"users"`
	Expenses        []Expense   `json:"expenses"`
	Actions         []TabAction `json:"actions,omitempty"`
}

// Record returns the stored form of the tab.
func (t *Tab) Record() TabRecord {
	return TabRecord{
		ID:              t.ID,
		Name:            t.Name,
		WorkingCurrency: t.WorkingCurrency,
		Users:           t.Users(),
		Expenses:        t.Expenses(),
		Actions:         t.Actions(),
	}
}

// TabFromRecord rebuilds a tab, including its account index and action log,
// from a record.
func TabFromRecord(r TabRecord) (*Tab, error) {
	t, err := NewTab(r.ID, r.Name, r.WorkingCurrency, r.Users, r.Expenses)
	if err != nil {
		return nil, err
	}
	t.actions = append([]TabAction(nil), r.Actions...)
	return t, nil
}
