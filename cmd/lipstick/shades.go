package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/lipstick/internal/shade"
	"github.com/ayusman/lipstick/internal/store"
)

var shadesCmd = &cobra.Command{
	Use:   "shades",
	Short: "List the shade catalog",
	Long:  `Lists the shades stored in the database, or the built-in catalog when there is none yet.`,
	RunE:  runShades,
}

func init() {
	rootCmd.AddCommand(shadesCmd)
}

func runShades(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog := shade.DefaultCatalog()
	dbPath, err := resolveDBPath(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(dbPath); statErr == nil {
		st, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		if list, err := st.Shades().List(); err != nil {
			return fmt.Errorf("list shades: %w", err)
		} else if len(list) > 0 {
			catalog = list
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tCOLOR")
	for _, sh := range catalog {
		fmt.Fprintf(w, "%d\t%s\t%s\n", sh.ID, sh.Label(), sh.ColorHex)
	}
	return w.Flush()
}
