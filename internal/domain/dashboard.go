package domain

// DashboardSummary is a menu entry.
type DashboardSummary struct {
	ID    string `json:"uuid"`
	Title string `json:"title"`
}

// Dashboard is the full state of one dashboard as served by the catalog.
type Dashboard struct {
	ID          string  `json:"uuid"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Blocks      []Block `json:"views"`
}

// Summary returns the menu entry for d.
func (d Dashboard) Summary() DashboardSummary {
	return DashboardSummary{ID: d.ID, Title: d.Title}
}
