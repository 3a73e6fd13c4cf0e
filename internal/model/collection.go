package model

// CollectionRecord is the body sent to the remote collection endpoint.
// Field names follow the remote API's wire format.
type CollectionRecord struct {
	Date         string       `json:"fecha"` // YYYY-MM-DD
	ClientID     int64        `json:"idclipro"`
	AccountID    int64        `json:"idcuenta"` // ledger account of the first payment line
	Memo         string       `json:"memo"`
	Reference    *string      `json:"referencia"`
	CostCenterID *int64       `json:"idcentrocosto"`
	ProvinceIIBB *int64       `json:"idprovinciaiibb"`
	Allocations  []Allocation `json:"imputaciones"`
}

// Allocation is one payment slice booked against a ledger account.
type Allocation struct {
	Amount    string `json:"fv"` // fixed two decimals, e.g. "1000.00"
	AccountID int64  `json:"cuid"`
}

// SubmissionResult is the parsed response to a successful submission.
type SubmissionResult struct {
	ID       int64
	Assigned bool // response carried an "id"
	Body     map[string]any
}

// NoNumber marks a receipt whose number could not be resolved.
const NoNumber = "NO NUMBER"
