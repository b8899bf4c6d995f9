package core

import (
	"sort"
	"strings"
)

// Account is a single credential record. Name is the unique key.
type Account struct {
	Name     string `json:"name"`
	User     string `json:"user"`
	Password string `json:"password"`
	URL      string `json:"url"`
	Notes    string `json:"notes"`
}

// SortAccounts orders accounts by name, ignoring case. Equal keys keep
// their relative order.
func SortAccounts(accounts []Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return strings.ToLower(accounts[i].Name) < strings.ToLower(accounts[j].Name)
	})
}
