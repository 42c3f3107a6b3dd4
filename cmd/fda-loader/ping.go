package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fda-label-loader/internal/config"
	"github.com/pdiddy/fda-label-loader/internal/store"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the database connection",
	Long: `Ping opens the configured database, reports whether the connection
succeeded, and prints the row count of the destination table when it exists.
It never creates or modifies tables.`,
	SilenceUsage: true,
	RunE:         runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper(), loadedSecrets, nil)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Database, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %s (%s)\n", cfg.Database.Name, cfg.Database.Driver)

	n, err := st.Count(ctx, cfg.Database.Table)
	if err != nil {
		fmt.Fprintf(out, "Table %s not readable: %v\n", cfg.Database.Table, err)
		return nil
	}
	fmt.Fprintf(out, "Table %s holds %d rows\n", cfg.Database.Table, n)
	return nil
}
