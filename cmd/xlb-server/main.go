package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/xlb/pkg/checkpoint"
	"github.com/cuemby/xlb/pkg/config"
	"github.com/cuemby/xlb/pkg/events"
	"github.com/cuemby/xlb/pkg/log"
	"github.com/cuemby/xlb/pkg/metrics"
	"github.com/cuemby/xlb/pkg/rpcserver"
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
	Use:     "xlb-server",
	Short:   "xlb server rank: data store, work queue and sync protocol",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("xlb-server version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
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

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start one server rank",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		rank, _ := cmd.Flags().GetInt64("rank")

		cluster, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if rank < int64(cluster.Worker()) || rank >= int64(cluster.Ranks) {
			return fmt.Errorf("rank %d is not a server rank (servers are %d..%d)", rank, cluster.Worker(), cluster.Ranks-1)
		}

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

		var ckpt *checkpoint.Log
		if cluster.Checkpoint.Path != "" {
			ckpt, err = openCheckpoint(cluster, rank)
			if err != nil {
				return fmt.Errorf("opening checkpoint log: %w", err)
			}
		}

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		srv := rpcserver.New(rank, cluster, tr, ckpt, broker, rpcserver.Config{
			StealBudgetBytes: cluster.StealBudgetBytes,
		})

		metrics.SetVersion(Version)
		metrics.RegisterComponent("rpcserver", true, "ready")

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Run(ctx) }()

		fmt.Printf("xlb-server rank %d listening on %s\n", rank, listenAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("shutting down...")
		case err := <-errCh:
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "server loop error: %v\n", err)
			}
		}

		cancel()
		srv.Shutdown()
		<-errCh
		return tr.Close()
	},
}

// openCheckpoint opens (or initializes) the shared checkpoint file this
// rank's stripe lives in (spec §4.6). The first server to see a zero-length
// file writes the block-0 header; every other rank just opens it.
func openCheckpoint(cluster *config.Cluster, rank int64) (*checkpoint.Log, error) {
	f, err := os.OpenFile(cluster.Checkpoint.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		if err := checkpoint.WriteHeader(f, cluster.Checkpoint.BlockSize, cluster.Ranks); err != nil {
			return nil, err
		}
	}
	w := checkpoint.NewWriter(f, cluster.Checkpoint.BlockSize, cluster.Ranks, int32(rank), cluster.Checkpoint.Flush.ToFlushPolicy())
	ix := checkpoint.NewIndex(cluster.InlineThreshold)
	return checkpoint.NewLog(w, ix), nil
}

func init() {
	startCmd.Flags().String("config", "xlb.yaml", "Cluster topology config file")
	startCmd.Flags().Int64("rank", 0, "This process's rank")
	startCmd.MarkFlagRequired("rank")
}
