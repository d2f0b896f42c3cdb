package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/blobkit"
)

var storeCmd = &cobra.Command{
	Use:   "store <file>",
	Short: "Store a file as content-addressed chunks",
	Long:  "Store a file through the configured stack and print its content id and aliases.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStore,
}

func init() {
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) (err error) {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Storing %s (%d B)...\n", args[0], info.Size())

	md, err := store.Store(cmd.Context(), blobkit.NewStoreRequest(uint64(info.Size())), f)
	if err != nil {
		return fmt.Errorf("store failed: %w", err)
	}

	fmt.Println(md.ContentID)
	for _, alias := range md.Aliases {
		fmt.Println(alias)
	}
	return nil
}
