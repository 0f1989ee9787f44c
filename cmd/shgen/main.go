// shgen derives spherical-harmonics coefficient tables ahead of time and
// inspects cached ones, so services start with a warm persistent cache
// instead of paying the symbolic derivation on first use.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/equigo/harmonics/legendre"
	"github.com/equigo/harmonics/rsh"
	"github.com/equigo/harmonics/sqlitejar"
)

var (
	verbose    bool
	cacheDir   string
	sqlitePath string

	warmLmax   int
	dumpDegree int
	dumpJSON   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shgen",
	Short: "Manage spherical-harmonics coefficient tables",
	Long: `shgen derives the per-degree Legendre coefficient tables used by the
harmonics engine and stores them in a persistent cache, either a directory
of files (--cache) or a shared SQLite database (--sqlite).

Examples:
  shgen warm --lmax 10 --cache /var/cache/harmonics
  shgen warm --lmax 8 --sqlite /var/cache/harmonics.db
  shgen dump --degree 3`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Derive and persist tables for all degrees up to --lmax",
	RunE:  runWarm,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the coefficient table for one degree",
	RunE:  runDump,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache", "", "Directory for per-degree table files")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "SQLite database for tables (takes precedence over --cache)")

	warmCmd.Flags().IntVar(&warmLmax, "lmax", 10, "Largest degree to derive")
	dumpCmd.Flags().IntVar(&dumpDegree, "degree", 0, "Degree to print")
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "Print the table as JSON")

	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(dumpCmd)
}

// openStore picks the persistent backend from the global flags. The second
// return value closes it, and is a no-op for the file jar.
func openStore() (legendre.Store, func() error, error) {
	if sqlitePath != "" {
		store, err := sqlitejar.Open(sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	if cacheDir != "" {
		jar, err := legendre.NewJar(cacheDir)
		if err != nil {
			return nil, nil, err
		}
		return jar, func() error { return nil }, nil
	}
	return nil, func() error { return nil }, nil
}

func runWarm(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	if store == nil {
		logger.Warn("no --cache or --sqlite given, derived tables will not outlive this run")
	}

	engine, err := rsh.New(rsh.WithStore(store), rsh.WithLogger(logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Prewarm(warmLmax); err != nil {
		return fmt.Errorf("warm to degree %d: %w", warmLmax, err)
	}
	logger.Info("tables warm", zap.Int("lmax", warmLmax))
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	table, err := legendre.NewCache(store, legendre.WithLogger(logger)).Lookup(dumpDegree)
	if err != nil {
		return err
	}

	if dumpJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	fmt.Printf("degree %d, %d orders\n", table.L, len(table.Orders))
	for m, terms := range table.Orders {
		fmt.Printf("  m=%d: %s\n", m, formatTerms(terms))
	}
	return nil
}

func formatTerms(terms []legendre.Term) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		s := fmt.Sprintf("%+.17g", t.Coef)
		if t.ZExp > 0 {
			s += fmt.Sprintf("·z^%d", t.ZExp)
		}
		if t.YExp > 0 {
			s += fmt.Sprintf("·y^%d", t.YExp)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
