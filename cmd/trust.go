package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"authhandler/internal/trust"
)

func newTrustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage remembered certificate exceptions",
		Long: `Certificate exceptions are created when the user accepts an untrusted
server certificate for this session or forever. These commands list and revoke
them. A running daemon picks up changes when trust rule watching is enabled.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the active certificate exceptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTrustStore()
			if err != nil {
				return err
			}
			renderRules(cmd.OutOrStdout(), store.List(), time.Now())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <hostname> [fingerprint]",
		Short: "Revoke the certificate exceptions for a host",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTrustStore()
			if err != nil {
				return err
			}
			fingerprint := ""
			if len(args) == 2 {
				fingerprint = args[1]
			}
			return revokeRules(cmd.OutOrStdout(), store, args[0], fingerprint)
		},
	})
	return cmd
}

func openTrustStore() (*trust.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store := trust.NewStore(cfg.Trust.RulesFile, nil)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

func revokeRules(out io.Writer, store *trust.Store, hostname, fingerprint string) error {
	n, err := store.Revoke(hostname, fingerprint)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no certificate exception for %s", hostname)
	}
	fmt.Fprintf(out, "%s %d exception(s) for %s\n", text.FgGreen.Sprint("Revoked"), n, hostname)
	return nil
}

func renderRules(out io.Writer, rules []trust.Rule, now time.Time) {
	if len(rules) == 0 {
		fmt.Fprintln(out, text.FgYellow.Sprint("No certificate exceptions"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("HOSTNAME"),
		text.FgHiCyan.Sprint("FINGERPRINT"),
		text.FgHiCyan.Sprint("EXPIRES"),
	})
	for _, r := range rules {
		t.AppendRow(table.Row{r.Hostname, r.Fingerprint, expiry(r, now)})
	}
	t.Render()
}

// expiry describes when a rule lapses. Permanent rules expire centuries out.
func expiry(r trust.Rule, now time.Time) string {
	if r.Expiry.After(now.AddDate(100, 0, 0)) {
		return "never"
	}
	return r.Expiry.Local().Format(time.DateTime)
}
