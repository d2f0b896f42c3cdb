package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweris/blobkit"
)

var statCmd = &cobra.Command{
	Use:   "stat <id>",
	Short: "Show metadata for stored content",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) (err error) {
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

	md, err := store.Metadata(cmd.Context(), key)
	if err != nil {
		return err
	}

	fmt.Printf("content id:\t%s\n", md.ContentID)
	fmt.Printf("total size:\t%d\n", md.TotalSize)
	fmt.Printf("chunks:\t%d\n", len(md.Chunks))
	for _, alias := range md.Aliases {
		fmt.Printf("alias:\t%s\n", alias)
	}
	return nil
}
