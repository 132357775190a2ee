package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/coster/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "coster",
		Short:        "Coster CLI tool",
		Long:         `Settle shared expenses from a tab file or through the Coster API.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(settleCmd(), verifyCmd(), tabCmd())
	return rootCmd
}

// tabFile is a tab record with optional settlements to verify.
type tabFile struct {
	domain.TabRecord
	Settlements []domain.Settlement `json:"settlements,omitempty"`
}

func loadTabFile(path string) (*domain.Tab, []domain.Settlement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var f tabFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	tab, err := domain.TabFromRecord(f.TabRecord)
	if err != nil {
		return nil, nil, err
	}
	return tab, f.Settlements, nil
}

func settleCmd() *cobra.Command {
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Compute the payments that settle a tab file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, _, err := loadTabFile(file)
			if err != nil {
				return err
			}

			settlements, err := tab.BalanceTransactions()
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), settlements)
			}
			printSettlements(cmd.OutOrStdout(), tab, settlements)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a tab JSON file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print settlements as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func verifyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a tab file's ledger and settlements",
		Long: `Checks that the tab's ledgers balance and that its settlements leave every
user at their fair share. Settlements are computed when the file has none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, settlements, err := loadTabFile(file)
			if err != nil {
				return err
			}

			actual, shared, err := tab.CheckConsistency()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ledger consistent (actual %s, shared %s)\n", actual, shared)

			if settlements == nil {
				if settlements, err = tab.BalanceTransactions(); err != nil {
					return err
				}
			}
			if err := tab.VerifySettlements(settlements); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d settlement(s) verified\n", len(settlements))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a tab JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func tabCmd() *cobra.Command {
	var baseURL string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "tab",
		Short: "Query tabs on a Coster server",
	}
	cmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Coster API")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	remote := func(use, short, resource string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <tab-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client := &http.Client{Timeout: timeout}
				return getJSON(cmd.OutOrStdout(), client, strings.TrimRight(baseURL, "/")+"/api/v1/tabs/"+args[0]+"/"+resource)
			},
		}
	}

	cmd.AddCommand(
		remote("settle", "Fetch the payments that settle a tab", "settlements"),
		remote("balances", "Fetch each user's difference from their fair share", "balances"),
		remote("consistency", "Check a tab's ledger on the server", "consistency"),
		remote("actions", "Fetch the log of changes made to a tab", "actions"),
	)
	return cmd
}

func getJSON(out io.Writer, client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return printJSON(out, result)
}

func printSettlements(out io.Writer, tab *domain.Tab, settlements []domain.Settlement) {
	if len(settlements) == 0 {
		fmt.Fprintln(out, "Nothing to settle")
		return
	}

	for _, s := range settlements {
		fmt.Fprintf(out, "%s pays %s %s\n", userName(tab, s.Sender), userName(tab, s.Receiver), s.Amount.Display())
	}
}

func userName(tab *domain.Tab, id domain.UserID) string {
	u, err := tab.User(id)
	if err != nil || u.Name == "" {
		return fmt.Sprintf("user %d", id)
	}
	return u.Name
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
