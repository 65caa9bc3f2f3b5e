package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"schematics/internal/auth"
	"schematics/internal/catalog"
	"schematics/internal/debounce"
	"schematics/internal/kvstore"
	"schematics/internal/server"
	"schematics/internal/tracker"
	"schematics/internal/transfer"
	"schematics/pkg/database"
	"schematics/pkg/utils"
)

var (
	dbPath   string
	source   string
	logLevel string
)

func main() {
	appCfg := utils.LoadAppConfig(utils.AppConfig{
		CatalogSource: catalog.DefaultSource,
		NoteDebounce:  debounce.DefaultInterval,
	})

	rootCmd := &cobra.Command{
		Use:          "schematics",
		Short:        "Track owned catalog items and notes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := utils.SetupLogger(logLevel)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", database.DefaultConfig().Path, "overlay database path")
	rootCmd.PersistentFlags().StringVar(&source, "catalog", appCfg.CatalogSource, "catalog CSV path or URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(ownCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveCmd(appCfg))
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openSession starts a session on the local store. Only one session should
// use a store at a time; do not run write commands while the server is up.
func openSession(ctx context.Context) (*tracker.Session, error) {
	store := kvstore.New(kvstore.NewSQLite(database.Config{Path: dbPath}))
	s, err := tracker.Start(ctx, catalog.NewLoader(), store, tracker.Options{Source: source})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

func listCmd() *cobra.Command {
	var (
		search    string
		hideOwned bool
		desc      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items with ownership and notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			v := s.SetSearch(search)
			if hideOwned {
				v = s.ToggleHideOwned()
			}
			if desc {
				v = s.ToggleSort()
			}
			printView(v)
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by title or note")
	cmd.Flags().BoolVar(&hideOwned, "hide-owned", false, "hide owned items")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort titles descending")
	return cmd
}

func printView(v tracker.View) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OWNED\tTITLE\tNOTE")
	for _, r := range v.Items {
		mark := " "
		if r.Owned {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s]\t%s\t%s\n", mark, r.Title, truncate(r.Note, 60))
	}
	_ = w.Flush()
	fmt.Printf("%d items\n", v.Total)
}

func ownCmd() *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "own [title]",
		Short: "Mark an item as owned",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			title := strings.Join(args, " ")
			if _, err := s.SetOwned(ctx, title, !unset); err != nil {
				return err
			}
			if unset {
				fmt.Printf("✅ %s marked not owned\n", title)
			} else {
				fmt.Printf("✅ %s marked owned\n", title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unset, "unset", false, "mark as not owned")
	return cmd
}

func noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note [title] [text]",
		Short: "Set the note for an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}

			s.EditNote(args[0], strings.Join(args[1:], " "))
			// Close flushes the pending write.
			if err := s.Close(ctx); err != nil {
				return err
			}
			fmt.Printf("✅ note saved for %s\n", args[0])
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import owned items (Title and optional Notes columns) from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			res, _, err := s.Import(ctx, string(b))
			if err != nil {
				return err
			}
			fmt.Println(res.Message())
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export owned items to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			if out == "-" {
				fmt.Println(s.Export())
				return nil
			}
			if err := os.WriteFile(out, []byte(s.Export()), 0o644); err != nil {
				return err
			}
			fmt.Printf("✅ exported owned items to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", transfer.ExportFilename, "output file, - for stdout")
	return cmd
}

func serveCmd(appCfg utils.AppConfig) *cobra.Command {
	var (
		addr     string
		syncAddr string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and sync feed on the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.Run(ctx, server.Config{
				Addr:         addr,
				SyncAddr:     syncAddr,
				Source:       source,
				DBPath:       dbPath,
				NoteDebounce: interval,
				Auth:         utils.LoadAuthConfig(),
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", appCfg.Addr, "HTTP listen address")
	cmd.Flags().StringVar(&syncAddr, "sync-addr", appCfg.SyncAddr, "TCP sync listen address (empty disables)")
	cmd.Flags().DurationVar(&interval, "note-debounce", appCfg.NoteDebounce, "note write debounce interval")
	return cmd
}

func tokenCmd() *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token (needs SCHEMATICS_API_SECRET)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := utils.LoadAuthConfig()
			if cfg.Secret == "" {
				return fmt.Errorf("SCHEMATICS_API_SECRET is not set")
			}
			ts := auth.TokenService{Secret: []byte(cfg.Secret), Issuer: cfg.Issuer, Duration: cfg.Duration}
			tok, exp, err := ts.Sign(client)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			fmt.Fprintf(os.Stderr, "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "cli", "client name stored in the token")
	return cmd
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
