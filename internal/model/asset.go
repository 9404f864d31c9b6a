package model

// Holder identifies who currently has an asset. Set iff the asset status
// is Loaned or Assigned.
type Holder struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Asset is a trackable physical item. Mobile assets are loaned out and
// come back; Immobile assets are assigned to a fixed holder.
type Asset struct {
	ID              string  `json:"id"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Type            string  `json:"type"`
	AcquisitionDate string  `json:"acquisitionDate"`
	Status          string  `json:"status"`
	CurrentHolder   *Holder `json:"currentHolder,omitempty"`
}

// Asset types.
const (
	AssetTypeMobile   = "Mobile"
	AssetTypeImmobile = "Immobile"
)

// Asset statuses.
const (
	AssetStatusAvailable   = "Available"
	AssetStatusLoaned      = "Loaned"
	AssetStatusAssigned    = "Assigned"
	AssetStatusMaintenance = "Maintenance"
)

// ValidAssetType reports whether t is a known asset type.
func ValidAssetType(t string) bool {
	return t == AssetTypeMobile || t == AssetTypeImmobile
}

// AssetTransaction is one entry in the append-only ledger. AssetName and
// UserName are snapshots taken at recording time. A return is recorded
// twice: the open Loan/Assignment entry gets its ReturnDate stamped and a
// separate Return entry is appended.
type AssetTransaction struct {
	ID         string `json:"id"`
	AssetID    string `json:"assetId"`
	AssetName  string `json:"assetName"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	ReturnDate string `json:"returnDate,omitempty"`
}

// Transaction types.
const (
	TransactionTypeLoan       = "Loan"
	TransactionTypeAssignment = "Assignment"
	TransactionTypeReturn     = "Return"
)
