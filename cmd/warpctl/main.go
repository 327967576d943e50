package main

import (
	"fmt"
	"os"

	"github.com/git-warp/warp/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "warpctl",
	Short: "warpctl - debug CLI for the git-warp embedded graph engine",
	Long: `warpctl is a thin adapter over the engine's ports: a bbolt-backed
content-addressed store, a deterministic CBOR codec, and the ed25519/HMAC
crypto primitives the trust subsystem and BTR depend on.

It stages and commits patches, replays a graph's state, and manages the
trust record chain and Boundary Transition Records. It contains no engine
logic of its own.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"warpctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", ".", "Directory holding warp.db")
	rootCmd.PersistentFlags().String("graph", "default", "Graph name (ref namespace)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(trustCmd)
	rootCmd.AddCommand(btrCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
