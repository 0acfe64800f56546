// Command remi-server runs a standalone REMI receiver over the loopback
// transport, registering a single demo migration class that prints the
// files and metadata of every fileset it receives. It mirrors the
// original library's examples/server.c.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mochi-hpc/go-remi/fileset"
	"github.com/mochi-hpc/go-remi/ioprovider"
	"github.com/mochi-hpc/go-remi/persist"
	"github.com/mochi-hpc/go-remi/receiver"
	"github.com/mochi-hpc/go-remi/remi"
	"github.com/mochi-hpc/go-remi/transport/loopback"
)

var (
	listenAddr  string
	stagingRoot string
	className   string
	logPath     string
)

func main() {
	root := &cobra.Command{
		Use:   "remi-server",
		Short: "run a REMI migration receiver",
		RunE:  run,
	}
	root.Flags().StringVar(&listenAddr, "address", "loopback-demo", "loopback address to register under")
	root.Flags().StringVar(&stagingRoot, "root", ".", "local directory to stage received files under")
	root.Flags().StringVar(&className, "class", "demo", "migration class to accept")
	root.Flags().StringVar(&logPath, "log", "remi-server.log", "log file path")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := persist.NewLogger(logPath)
	if err != nil {
		return err
	}
	defer log.Close()

	prov := receiver.New(stagingRoot, ioprovider.Sync{}, log)
	err = prov.RegisterClass(className, remi.AnyProviderID, receiver.ClassHandlers{
		Before: func(fs *fileset.Fileset) int32 {
			fmt.Println("migration starting for class", fs.Class())
			return 0
		},
		After: func(fs *fileset.Fileset) int32 {
			fmt.Println("migration complete, files received:")
			fs.ForeachFile(func(path string) { fmt.Println("   -", path) })
			fmt.Println("metadata:")
			fs.ForeachMetadata(func(k, v string) { fmt.Printf("   - %s\t==>\t%s\n", k, v) })
			return 0
		},
	})
	if err != nil {
		return err
	}

	lb := loopback.NewProvider()
	addr, err := lb.Register(context.Background(), listenAddr, prov)
	if err != nil {
		return err
	}
	fmt.Println("listening at", addr)

	<-cmd.Context().Done()
	return prov.Shutdown(context.Background())
}
