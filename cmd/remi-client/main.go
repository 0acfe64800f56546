// Command remi-client migrates a set of files to a remi-server instance
// over the loopback transport. It mirrors the original library's
// examples/client.c, with the roots given as flags:
// remi-client [--local-root DIR] [--remote-root DIR] <address> file1 [file2 ...].
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mochi-hpc/go-remi/fileset"
	"github.com/mochi-hpc/go-remi/remi"
	"github.com/mochi-hpc/go-remi/sender"
	"github.com/mochi-hpc/go-remi/transport/loopback"
)

var (
	localRoot  string
	remoteRoot string
	className  string
	chunked    bool
	keepSource bool
)

func main() {
	root := &cobra.Command{
		Use:   "remi-client <address> file...",
		Short: "migrate a fileset to a REMI server",
		Args:  cobra.MinimumNArgs(2),
		RunE:  run,
	}
	root.Flags().StringVar(&localRoot, "local-root", ".", "directory the listed files are relative to")
	root.Flags().StringVar(&remoteRoot, "remote-root", ".", "remote root recorded in the migrated fileset (the server stages files under its own --root/<class>, not here)")
	root.Flags().StringVar(&className, "class", "demo", "migration class to request")
	root.Flags().BoolVar(&chunked, "chunked", false, "use CHUNKED transfer instead of MMAP")
	root.Flags().BoolVar(&keepSource, "keep-source", true, "keep local files after a successful migration")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	address := args[0]
	filenames := args[1:]
	ctx := context.Background()

	absRoot, err := filepath.Abs(localRoot)
	if err != nil {
		return err
	}
	fs, err := fileset.New(className, absRoot)
	if err != nil {
		return err
	}
	for _, name := range filenames {
		if err := fs.RegisterFile(name); err != nil {
			return err
		}
	}
	if err := fs.RegisterMetadata("ABC", "DEF"); err != nil {
		return err
	}

	client := sender.NewClient(loopback.Dialer{})
	handle, err := client.Lookup(ctx, address)
	if err != nil {
		return fmt.Errorf("remi_provider_handle_create failed: %w", err)
	}
	defer client.Release(handle)

	policy := remi.KeepSource
	if !keepSource {
		policy = remi.RemoveSource
	}
	mode := remi.ModeMMAP
	if chunked {
		mode = remi.ModeChunked
	}

	status, err := client.Migrate(ctx, handle, fs, remoteRoot, mode, policy)
	if err != nil {
		if err == remi.ErrUser {
			fmt.Fprintln(os.Stderr, "----- user error:", status)
		}
		return fmt.Errorf("remi_fileset_migrate failed: %w", err)
	}

	fmt.Println("migration completed successfully, status =", status)
	return nil
}
