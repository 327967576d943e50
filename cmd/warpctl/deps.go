package main

import (
	"fmt"

	"github.com/git-warp/warp/pkg/codec"
	"github.com/git-warp/warp/pkg/cryptoport"
	"github.com/git-warp/warp/pkg/storage"
	"github.com/spf13/cobra"
)

// deps bundles the port adapters every subcommand needs, opened against the
// persistent --data-dir/--graph flags.
type deps struct {
	store *storage.Store
	codec *codec.CBORCodec
	crypt *cryptoport.Adapter
	graph string
}

func openDeps(cmd *cobra.Command) (*deps, error) {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	graphName, err := cmd.Flags().GetString("graph")
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", dataDir, err)
	}
	c, err := codec.New()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building codec: %w", err)
	}

	return &deps{store: store, codec: c, crypt: cryptoport.New(), graph: graphName}, nil
}

func (d *deps) Close() {
	d.store.Close()
}
