package main

import (
	"fmt"

	"github.com/git-warp/warp/pkg/storage"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a bbolt store at --data-dir/warp.db",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		store, err := storage.Open(dataDir)
		if err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}
		defer store.Close()
		fmt.Printf("initialized warp store at %s/warp.db\n", dataDir)
		return nil
	},
}
