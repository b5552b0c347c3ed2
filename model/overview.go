// model/overview.go
package model

// Badge is one billing/usage indicator on the portal shell.
type Badge struct {
	Count     int    `json:"count"`
	Severity  string `json:"severity"`
	Available bool   `json:"available"`
	Route     string `json:"route"`
}

// OverviewSummary is the billing/usage overview fetched once per poll cycle.
type OverviewSummary struct {
	Badges map[string]Badge `json:"badges"`
}
