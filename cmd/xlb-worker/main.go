package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/xlb/pkg/client"
	"github.com/cuemby/xlb/pkg/config"
	"github.com/cuemby/xlb/pkg/log"
	"github.com/cuemby/xlb/pkg/transport"
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
	Use:     "xlb-worker",
	Short:   "xlb worker rank: submits and retrieves tasks against its home server",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("xlb-worker version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

// startCmd connects this rank to its home server and drains work of
// --work-type in a loop, logging each unit it receives. Running the task
// itself is outside this runtime's scope (spec's Non-goals: "the
// worker-facing client API wrappers ... treated as an external
// collaborator") — this is the minimal demonstration harness that exercises
// pkg/client's Get and ShutdownWorker against a live cluster.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start one worker rank",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		rank, _ := cmd.Flags().GetInt64("rank")
		workType, _ := cmd.Flags().GetInt32("work-type")

		cluster, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if rank >= int64(cluster.Worker()) {
			return fmt.Errorf("rank %d is not a worker rank (workers are 0..%d)", rank, cluster.Worker()-1)
		}
		home := int64(cluster.HomeServer(int32(rank)))
		listenAddr, ok := cluster.Peers[int32(rank)]
		if !ok {
			return fmt.Errorf("config has no peer address for rank %d", rank)
		}

		tr, err := transport.NewTCPTransport(rank, listenAddr)
		if err != nil {
			return fmt.Errorf("starting transport: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		peers := make(map[int64]string, len(cluster.Peers)-1)
		for r, addr := range cluster.Peers {
			if int64(r) != rank {
				peers[int64(r)] = addr
			}
		}
		if err := tr.Connect(ctx, peers); err != nil {
			return fmt.Errorf("connecting to peers: %w", err)
		}

		c := client.New(tr, rank, home)
		defer c.Close()

		fmt.Printf("xlb-worker rank %d ready, home server %d, watching work type %d\n", rank, home, workType)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				work, err := c.Get(ctx, workType)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					fmt.Fprintf(os.Stderr, "get failed: %v\n", err)
					continue
				}
				fmt.Printf("received unit %d (type %d, %d bytes) from rank %d\n", work.ID, work.WorkType, len(work.Payload), work.Putter)
			}
		}()

		<-sigCh
		fmt.Println("shutting down...")
		cancel()
		<-done
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := c.ShutdownWorker(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown worker notify failed: %v\n", err)
		}
		return tr.Close()
	},
}

func init() {
	startCmd.Flags().String("config", "xlb.yaml", "Cluster topology config file")
	startCmd.Flags().Int64("rank", 0, "This process's rank")
	startCmd.Flags().Int32("work-type", 0, "Work type to drain in the demo receive loop")
	startCmd.MarkFlagRequired("rank")
}
