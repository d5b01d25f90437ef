package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"saral/pkg/answer"
	"saral/pkg/auth"
	"saral/pkg/navigation"
	"saral/pkg/store"
	"saral/services/gateway/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "saralctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "saralctl",
		Short:        "SARAL operator CLI",
		Long:         `saralctl runs the SARAL responder, credential table and history store from a terminal.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Gateway config file (defaults to SARAL_CONFIG or config.yaml)")
	cmd.AddCommand(
		newAskCmd(),
		newLoginCmd(&configPath),
		newHistoryCmd(&configPath),
		newConfigCmd(&configPath),
	)
	return cmd
}

func newAskCmd() *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a query with the keyword responder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := answer.NewKeywordResponder(delay).Answer(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, a.Response)
			if len(a.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for i, src := range a.Sources {
					fmt.Fprintf(out, "  %d. %s\n", i+1, src)
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "Simulated answer delay")
	return cmd
}

func newLoginCmd(configPath *string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a credential pair against the configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts := auth.DemoAccounts()
			if *configPath != "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				accounts = cfg.Accounts
			}
			table, err := auth.NewCredentialTable(accounts)
			if err != nil {
				return err
			}
			user, err := table.Authenticate(email, password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s> %s\n", user.Name, user.Email, navigation.PortalLabel(user.Role))
			for _, item := range navigation.Menu(user.Role) {
				fmt.Fprintf(out, "  - %s\n", item.Label)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newHistoryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "history [uploads|queries]",
		Short:     "Print the upload or query history",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"uploads", "queries"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := store.Options{Driver: "memory", Seed: true}
			if *configPath != "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				opts = store.Options{Driver: cfg.StoreDriver, DSN: cfg.DatabaseURL, Seed: cfg.Seed()}
			}
			st, err := store.Open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer st.Close()
			if len(args) == 1 && args[0] == "queries" {
				return printQueries(cmd.Context(), cmd.OutOrStdout(), st)
			}
			return printUploads(cmd.Context(), cmd.OutOrStdout(), st)
		},
	}
	return cmd
}

func printUploads(ctx context.Context, out io.Writer, h store.HistoryStore) error {
	records, err := h.ListUploads(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tDATE\tTIME\tSTATUS\tSIZE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Type, r.Date, r.Time, r.Status, r.Size)
	}
	return w.Flush()
}

func printQueries(ctx context.Context, out io.Writer, h store.HistoryStore) error {
	records, err := h.ListQueries(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUERY\tDATE\tTIME\tSOURCES")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Query, r.Date, r.Time, r.SourcesCount)
	}
	return w.Flush()
}

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect gateway configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Load and validate a gateway config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			sessions := "memory"
			switch {
			case cfg.JWTSecret != "":
				sessions = "jwt"
			case cfg.RedisAddr != "":
				sessions = "redis"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: port=%s store=%s sessions=%s responder=%s accounts=%d\n",
				cfg.Port, cfg.StoreDriver, sessions, cfg.Responder, len(cfg.Accounts))
			return nil
		},
	})
	return cmd
}
