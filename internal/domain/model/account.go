package model

// AccountValue is one tag/value row of an account summary.
type AccountValue struct {
	Account  string `json:"account"`
	Tag      string `json:"tag"`
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// AccountSnapshot is the cached payload for one managed account. Values is
// keyed by tag, then by currency ("" when the broker reports none).
type AccountSnapshot struct {
	ManagedAccounts []string                     `json:"managed_accounts"`
	Values          map[string]map[string]string `json:"values"`
}
