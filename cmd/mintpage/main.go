// Package main provides the mint page server:
// - serve: renders the NFT drop mint page and submits claims
// - inspect: prints the derived page state once
// - networks: lists the supported networks
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"drop-mint/internal/chain"
	"drop-mint/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string
	network    string
	contract   string
	httpAddr   string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mintpage",
	Short: "NFT drop mint page",
	Long: `mintpage serves a single-page mint front-end for an NFT drop contract.

The page shows the collection, the minted/total counter and one of four
states: loading, sold out, phase not ready, or a mint button.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd)

		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mint page",
	RunE:  runServe,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Fetch the drop once and print the derived page state",
	RunE:  runInspect,
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List supported networks",
	// Needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCHAIN ID\tCURRENCY\tTESTNET")
		for _, n := range chain.Networks() {
			fmt.Fprintf(w, "%s\t%d\t%s\t%v\n", n.Network, n.ChainID, n.Currency.Symbol, n.Testnet)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("MINTPAGE_CONFIG"), "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&network, "network", "", "Network name or chain id (overrides NETWORK)")
	rootCmd.PersistentFlags().StringVar(&contract, "contract", "", "Drop contract address (overrides CONTRACT_ADDRESS)")
	serveCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(networksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlagOverrides lets explicitly set flags win over file and environment.
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("network") {
		cfg.Network = network
	}
	if flags.Changed("contract") {
		cfg.ContractAddress = contract
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = httpAddr
	}
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
