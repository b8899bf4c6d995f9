package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry is the JSON form of an account without its password
type listEntry struct {
	Name string `json:"name"`
	User string `json:"user"`
	URL  string `json:"url,omitempty"`
}

// runList prints accounts in case-insensitive name order
func runList(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	accounts := s.db.Accounts()

	if listJSON {
		entries := make([]listEntry, 0, len(accounts))
		for _, a := range accounts {
			entries = append(entries, listEntry{Name: a.Name, User: a.User, URL: a.URL})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(accounts) == 0 {
		fmt.Println("No accounts")
		fmt.Println("Use 'upm add' to add one")
		return nil
	}

	fmt.Printf("%s %s\n", Bold("%-28s", "ACCOUNT"), Bold("USERNAME"))
	for _, a := range accounts {
		fmt.Printf("%-28s %s\n", a.Name, a.User)
	}
	fmt.Printf("\n%s\n", Dim("%d accounts", len(accounts)))
	return nil
}
