package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var boundsCmd = &cobra.Command{
	Use:   "bounds",
	Short: "Print the dataset bounds as JSON",
	Long: `Computes first_date, last_date, year_before and the most active station
the same way the server does at startup, prints them, and exits.`,
	RunE: runBounds,
}

func init() {
	rootCmd.AddCommand(boundsCmd)
}

func runBounds(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	st, bounds, err := openStore(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer st.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(bounds)
}
