package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/blobkit"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Fetch content to stdout",
	Long:  "Fetch content by canonical id (sha256:...) or alias (sha1:..., blake3:...) and write it to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) (err error) {
	key, err := blobkit.ParseFetchKey(args[0])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	seq, err := store.Fetch(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	for data, err := range seq {
		if err != nil {
			return fmt.Errorf("fetch failed mid-stream: %w", err)
		}
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
	}
	return nil
}
