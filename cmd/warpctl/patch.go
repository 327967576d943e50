package main

import (
	"context"
	"fmt"

	"github.com/git-warp/warp/pkg/metrics"
	"github.com/git-warp/warp/pkg/patch"
	"github.com/git-warp/warp/pkg/warperr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Stage and commit a single-op patch via PatchBuilder",
}

func init() {
	patchCmd.PersistentFlags().String("writer", "", "Writer id (a uuid is minted if omitted)")

	patchCmd.AddCommand(patchAddNodeCmd)
	patchCmd.AddCommand(patchAddEdgeCmd)
	patchCmd.AddCommand(patchRemoveNodeCmd)
	patchCmd.AddCommand(patchRemoveEdgeCmd)
	patchCmd.AddCommand(patchSetPropCmd)
}

func writerID(cmd *cobra.Command) (string, error) {
	w, err := cmd.Flags().GetString("writer")
	if err != nil {
		return "", err
	}
	if w == "" {
		w = uuid.NewString()
		fmt.Printf("no --writer given, minted %s\n", w)
	}
	return w, nil
}

// commitSingleOp opens the store, replays writer's own chain to resolve
// observed dots, stages one op via stage, and commits it, printing the
// resulting commit sha.
func commitSingleOp(cmd *cobra.Command, stage func(b *patch.Builder) error) error {
	writer, err := writerID(cmd)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	state, _, vv, err := replayWriter(ctx, d, writer)
	if err != nil {
		return err
	}

	b := patch.New(d.graph, writer, vv, state)
	if err := stage(b); err != nil {
		return fmt.Errorf("staging op: %w", err)
	}

	timer := metrics.NewTimer()
	sha, err := patch.Commit(ctx, b, d.store, d.codec)
	timer.ObserveDuration(metrics.PatchCommitDuration)
	if err != nil {
		if warperr.Is(err, warperr.ECASConflict) {
			metrics.PatchCommitConflicts.WithLabelValues(writer).Inc()
		}
		return fmt.Errorf("committing patch: %w", err)
	}
	metrics.PatchesCommitted.WithLabelValues(writer).Inc()

	fmt.Printf("committed %s (lamport=%d)\n", sha, b.Lamport)
	return nil
}

var patchAddNodeCmd = &cobra.Command{
	Use:   "add-node <node>",
	Short: "Stage and commit a NodeAdd",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitSingleOp(cmd, func(b *patch.Builder) error {
			return b.AddNode(args[0])
		})
	},
}

var patchAddEdgeCmd = &cobra.Command{
	Use:   "add-edge <from> <to> <label>",
	Short: "Stage and commit an EdgeAdd",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitSingleOp(cmd, func(b *patch.Builder) error {
			return b.AddEdge(args[0], args[1], args[2])
		})
	},
}

var patchRemoveNodeCmd = &cobra.Command{
	Use:   "remove-node <node>",
	Short: "Stage and commit a NodeRemove",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitSingleOp(cmd, func(b *patch.Builder) error {
			return b.RemoveNode(args[0])
		})
	},
}

var patchRemoveEdgeCmd = &cobra.Command{
	Use:   "remove-edge <from> <to> <label>",
	Short: "Stage and commit an EdgeRemove",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitSingleOp(cmd, func(b *patch.Builder) error {
			return b.RemoveEdge(args[0], args[1], args[2])
		})
	},
}

var patchSetPropCmd = &cobra.Command{
	Use:   "set-prop <node> <key> <value>",
	Short: "Stage and commit a PropSet on a node",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitSingleOp(cmd, func(b *patch.Builder) error {
			return b.SetProperty(args[0], args[1], args[2])
		})
	},
}
