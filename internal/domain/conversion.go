package domain

import "time"

type Status string

const (
	StatusLead Status = "lead"
	StatusSale Status = "sale"
)

// tracker status aliases normalized onto the two-status model
var statusAliases = map[string]Status{
	"lead":                StatusLead,
	"lead_confirmed":      StatusLead,
	"sale":                StatusSale,
	"dep":                 StatusSale,
	"dep_confirmed":       StatusSale,
	"first_dep_confirmed": StatusSale,
}

// NormalizeStatus maps a raw tracker status onto lead/sale.
// Unknown statuses come back with ok=false and are counted nowhere.
func NormalizeStatus(raw string) (Status, bool) {
	s, ok := statusAliases[raw]
	return s, ok
}

// a single attributed conversion pulled from the tracker log
type ConversionEvent struct {
	ID           string    `json:"conversion_id"`
	BuyerKey     string    `json:"buyer_key"`
	SourceID     string    `json:"source_id"`
	Status       Status    `json:"status"`
	Revenue      float64   `json:"revenue"`
	ClickTime    time.Time `json:"click_time"`
	PostbackTime time.Time `json:"postback_time"`
	SaleTime     time.Time `json:"sale_time,omitempty"`
}

func (e ConversionEvent) IsLead() bool {
	return e.Status == StatusLead
}

func (e ConversionEvent) IsSale() bool {
	return e.Status == StatusSale
}

// bucket key for events whose buyer attribute is empty
const UnknownBuyer = "unknown"
