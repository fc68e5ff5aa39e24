package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DjordjeVuckovic/qstone/internal/domain"
	"github.com/DjordjeVuckovic/qstone/internal/node"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "qpu_node",
		Short:        "Emulated QPU node serving the HTTP and gRPC backend contracts",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         serve,
	}

	rootCmd.Flags().String("address", "0.0.0.0", "Listen address")
	rootCmd.Flags().Int("http-port", 10001, "HTTP port")
	rootCmd.Flags().Int("grpc-port", 50051, "gRPC port, 0 disables the gRPC listener")
	rootCmd.Flags().Int("qubits", 4, "Number of qubits reported by /qpu/config")
	rootCmd.Flags().Int("queue", node.DefaultQueueSize, "Maximum number of pending jobs")
	rootCmd.Flags().Int("rpc-shots", node.DefaultRPCShots, "Repetitions used for gRPC requests")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	address, _ := cmd.Flags().GetString("address")
	httpPort, _ := cmd.Flags().GetInt("http-port")
	grpcPort, _ := cmd.Flags().GetInt("grpc-port")
	qubits, _ := cmd.Flags().GetInt("qubits")
	queue, _ := cmd.Flags().GetInt("queue")
	rpcShots, _ := cmd.Flags().GetInt("rpc-shots")

	logger := slog.Default()
	qpu := node.NewMockQPU(domain.QpuConfiguration{
		NumRequiredQubits: qubits,
		QpuIPAddress:      address,
		QpuPort:           strconv.Itoa(httpPort),
	}, nil)

	n := node.New(qpu,
		node.WithLogger(logger),
		node.WithQueueSize(queue),
		node.WithRPCShots(rpcShots),
	)
	srv := node.NewServer(node.Config{
		Address:  address,
		HTTPPort: httpPort,
		GRPCPort: grpcPort,
	}, n, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting QPU node", "address", address, "http_port", httpPort, "grpc_port", grpcPort, "qubits", qubits)
	return srv.Start(ctx)
}
