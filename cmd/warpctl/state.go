package main

import (
	"context"
	"fmt"

	"github.com/git-warp/warp/pkg/canon"
	"github.com/git-warp/warp/pkg/metrics"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect a writer's replayed state",
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
}

var stateShowCmd = &cobra.Command{
	Use:   "show <writer>",
	Short: "Replay a writer's patch ref chain and print its canonical visible projection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		writer := args[0]
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := context.Background()
		timer := metrics.NewTimer()
		state, patches, _, err := replayWriter(ctx, d, writer)
		timer.ObserveDuration(metrics.ReduceDuration)
		if err != nil {
			return err
		}
		metrics.PatchesReduced.Add(float64(len(patches)))

		proj := canon.Project(state)
		hash, err := canon.StateHash(d.crypt, d.codec, state)
		if err != nil {
			return fmt.Errorf("hashing state: %w", err)
		}
		metrics.StateHashesComputed.Inc()

		fmt.Printf("writer=%s patches=%d hash=%s\n", writer, len(patches), hash)
		fmt.Println("nodes:")
		for _, n := range proj.Nodes {
			fmt.Printf("  %s\n", n)
		}
		fmt.Println("edges:")
		for _, e := range proj.Edges {
			fmt.Printf("  %s -[%s]-> %s\n", e.From, e.Label, e.To)
		}
		fmt.Println("props:")
		for _, p := range proj.Props {
			fmt.Printf("  %s = %v\n", p.Key, p.Value)
		}
		return nil
	},
}
