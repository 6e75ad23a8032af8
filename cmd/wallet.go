package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"authhandler/internal/wallet"
)

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect and clean up stored credentials",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts with stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openWallet()
			if err != nil {
				return err
			}
			defer store.Close()
			renderWallet(cmd.OutOrStdout(), store)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "forget <account-id> [entry]",
		Short: "Remove an account's password, or one named entry",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openWallet()
			if err != nil {
				return err
			}
			defer store.Close()
			entry := ""
			if len(args) == 2 {
				entry = args[1]
			}
			return forget(cmd.OutOrStdout(), store, args[0], entry)
		},
	})
	return cmd
}

func openWallet() (wallet.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return wallet.OpenFile(wallet.FileConfig{
		Path:       cfg.Wallet.Path,
		KeyFile:    cfg.Wallet.KeyFile,
		Passphrase: cfg.Wallet.Passphrase,
	})
}

func forget(out io.Writer, store wallet.Store, account, entry string) error {
	if entry != "" {
		if !store.HasEntry(account, entry) {
			return fmt.Errorf("no entry %q stored for %s", entry, account)
		}
		if err := store.RemoveEntry(account, entry); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s for %s\n", text.FgGreen.Sprint("Removed"), entry, account)
		return nil
	}

	if !store.HasPassword(account) {
		return fmt.Errorf("no password stored for %s", account)
	}
	if err := store.RemovePassword(account); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s password for %s\n", text.FgGreen.Sprint("Removed"), account)
	return nil
}

func renderWallet(out io.Writer, store wallet.Store) {
	accounts := store.Accounts()
	if len(accounts) == 0 {
		fmt.Fprintln(out, text.FgYellow.Sprint("Wallet is empty"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("ACCOUNT"),
		text.FgHiCyan.Sprint("PASSWORD"),
		text.FgHiCyan.Sprint("ENTRIES"),
	})
	for _, account := range accounts {
		password := "no"
		if store.HasPassword(account) {
			password = "yes"
		}
		t.AppendRow(table.Row{account, password, len(store.Entries(account))})
	}
	t.Render()
}
