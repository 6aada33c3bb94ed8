package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/softcane/asgscaler/internal/capacity"
	"github.com/softcane/asgscaler/internal/config"
	"github.com/softcane/asgscaler/internal/health"
	"github.com/softcane/asgscaler/internal/quantity"
	"github.com/softcane/asgscaler/internal/reconciler"
	"github.com/softcane/asgscaler/internal/record"
	"github.com/softcane/asgscaler/internal/sizing"
	"github.com/softcane/asgscaler/internal/snapshot"
	"github.com/softcane/asgscaler/internal/tick"
)

var flags config.Config

var (
	cloudProvider string
	awsRegion     string
	gcpProject    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the autoscaler tick loop",
	Long: `run starts the periodic tick loop: read cluster state, aggregate
demand, size ASGs, and reconcile desired capacity. Use --once to run a
single tick and exit, or --dry-run to compute and log without writing.`,
	RunE: runAgent,
}

func init() {
	flags = config.Defaults()

	runCmd.Flags().BoolVar(&flags.DryRun, "dry-run", flags.DryRun,
		"Compute and log but skip cloud writes")
	runCmd.Flags().BoolVar(&flags.Once, "once", flags.Once,
		"Exit after one tick")
	runCmd.Flags().IntVar(&flags.IntervalSeconds, "interval", flags.IntervalSeconds,
		"Seconds to sleep between ticks")
	runCmd.Flags().BoolVar(&flags.IncludeMasterNodes, "include-master-nodes", flags.IncludeMasterNodes,
		"Include master-labelled nodes in sizing")
	runCmd.Flags().IntVar(&flags.BufferSpareNodes, "buffer-spare-nodes", flags.BufferSpareNodes,
		"Nodes added to the required count per partition (env BUFFER_SPARE_NODES)")
	runCmd.Flags().BoolVar(&flags.NoScaleDown, "no-scale-down", flags.NoScaleDown,
		"Floor the sizing target at the current node count")
	runCmd.Flags().Float64Var(&flags.BufferCPUPercentage, "buffer-cpu-percentage", flags.BufferCPUPercentage,
		"Multiplicative cpu buffer, percent (env BUFFER_CPU_PERCENTAGE)")
	runCmd.Flags().Float64Var(&flags.BufferMemoryPercentage, "buffer-memory-percentage", flags.BufferMemoryPercentage,
		"Multiplicative memory buffer, percent (env BUFFER_MEMORY_PERCENTAGE)")
	runCmd.Flags().Float64Var(&flags.BufferPodsPercentage, "buffer-pods-percentage", flags.BufferPodsPercentage,
		"Multiplicative pods buffer, percent (env BUFFER_PODS_PERCENTAGE)")
	runCmd.Flags().StringVar(&flags.BufferCPUFixed, "buffer-cpu-fixed", flags.BufferCPUFixed,
		"Additive cpu buffer, quantity string (env BUFFER_CPU_FIXED)")
	runCmd.Flags().StringVar(&flags.BufferMemoryFixed, "buffer-memory-fixed", flags.BufferMemoryFixed,
		"Additive memory buffer, quantity string (env BUFFER_MEMORY_FIXED)")
	runCmd.Flags().StringVar(&flags.BufferPodsFixed, "buffer-pods-fixed", flags.BufferPodsFixed,
		"Additive pods buffer, quantity string (env BUFFER_PODS_FIXED)")
	runCmd.Flags().BoolVar(&flags.EnableHealthcheckEndpoint, "enable-healthcheck-endpoint", flags.EnableHealthcheckEndpoint,
		"Start the liveness HTTP server on port 5000")

	runCmd.Flags().StringVar(&cloudProvider, "cloud-provider", "aws",
		"Cloud ASG binding to use: aws or gcp")
	runCmd.Flags().StringVar(&awsRegion, "aws-region", "",
		"AWS region (empty uses the SDK's default resolution chain)")
	runCmd.Flags().StringVar(&gcpProject, "gcp-project", "",
		"GCP project ID, required when --cloud-provider=gcp")

	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Priority, lowest to highest: built-in default, config file, env var,
	// explicit CLI flag. pflag has already resolved CLI-explicit values
	// into flags; resolve the file/env chain separately and only let it
	// overwrite fields the operator didn't pass explicitly on the CLI.
	resolved := config.Defaults()
	if err := config.ApplyFile(&resolved, cfgFile); err != nil {
		return fmt.Errorf("failed to apply config file: %w", err)
	}
	config.EnvOverrides(&resolved)
	mergeUnflagged(cmd, &flags, resolved)

	buffer, err := buildBuffer(flags)
	if err != nil {
		return fmt.Errorf("invalid buffer configuration: %w", err)
	}

	slog.Info("starting autoscaler agent",
		"dry_run", flags.DryRun, "once", flags.Once, "interval_seconds", flags.IntervalSeconds,
		"cloud_provider", cloudProvider)

	k8sConfig, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			kubeconfig = os.Getenv("HOME") + "/.kube/config"
		}
		k8sConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return fmt.Errorf("failed to load kubernetes config: %w", err)
		}
	}
	k8sClient, err := kubernetes.NewForConfig(k8sConfig)
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	asgClient, err := buildASGClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create ASG client: %w", err)
	}
	asgClient = reconciler.NewDryRunASGClient(asgClient, flags.DryRun, slog.Default())

	reader := snapshot.NewReader(k8sClient, snapshot.Config{IncludeMasterNodes: flags.IncludeMasterNodes}, slog.Default())
	sizingEngine := sizing.NewEngine(sizing.Config{
		Buffer:           buffer,
		BufferSpareNodes: flags.BufferSpareNodes,
		DisableScaleDown: flags.NoScaleDown,
	}, slog.Default())
	recon := reconciler.New(asgClient, slog.Default())
	orchestrator := tick.New(reader, asgClient, sizingEngine, recon, slog.Default())

	// Metrics server, always on.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		slog.Info("starting metrics server", "addr", ":9090")
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	if flags.EnableHealthcheckEndpoint {
		go health.ListenAndServe(":5000", orchestrator, slog.Default())
	}

	if flags.Once {
		return orchestrator.Tick(ctx)
	}

	interval := time.Duration(flags.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = orchestrator.Tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// mergeUnflagged overlays resolved (config file + env var values) onto
// flags for every field whose CLI flag the operator did not pass
// explicitly, preserving the priority CLI > env > file > built-in default.
func mergeUnflagged(cmd *cobra.Command, flags *config.Config, resolved config.Config) {
	changed := cmd.Flags().Changed
	if !changed("buffer-spare-nodes") {
		flags.BufferSpareNodes = resolved.BufferSpareNodes
	}
	if !changed("buffer-cpu-percentage") {
		flags.BufferCPUPercentage = resolved.BufferCPUPercentage
	}
	if !changed("buffer-memory-percentage") {
		flags.BufferMemoryPercentage = resolved.BufferMemoryPercentage
	}
	if !changed("buffer-pods-percentage") {
		flags.BufferPodsPercentage = resolved.BufferPodsPercentage
	}
	if !changed("buffer-cpu-fixed") {
		flags.BufferCPUFixed = resolved.BufferCPUFixed
	}
	if !changed("buffer-memory-fixed") {
		flags.BufferMemoryFixed = resolved.BufferMemoryFixed
	}
	if !changed("buffer-pods-fixed") {
		flags.BufferPodsFixed = resolved.BufferPodsFixed
	}
}

// buildBuffer parses the fixed-buffer quantity strings once at startup so
// the sizing engine never reparses them per tick.
func buildBuffer(cfg config.Config) (sizing.Buffer, error) {
	cpuFixed, err := quantity.Parse(cfg.BufferCPUFixed)
	if err != nil {
		return sizing.Buffer{}, fmt.Errorf("buffer-cpu-fixed: %w", err)
	}
	memFixed, err := quantity.Parse(cfg.BufferMemoryFixed)
	if err != nil {
		return sizing.Buffer{}, fmt.Errorf("buffer-memory-fixed: %w", err)
	}
	podsFixed, err := quantity.Parse(cfg.BufferPodsFixed)
	if err != nil {
		return sizing.Buffer{}, fmt.Errorf("buffer-pods-fixed: %w", err)
	}
	return sizing.Buffer{
		Percentage: record.Resources{CPU: cfg.BufferCPUPercentage, Memory: cfg.BufferMemoryPercentage, Pods: cfg.BufferPodsPercentage},
		Fixed:      record.Resources{CPU: cpuFixed, Memory: memFixed, Pods: podsFixed},
	}, nil
}

func buildASGClient(ctx context.Context) (capacity.ASGClient, error) {
	switch cloudProvider {
	case "gcp":
		if gcpProject == "" {
			return nil, fmt.Errorf("--gcp-project is required when --cloud-provider=gcp")
		}
		return capacity.NewGCPASGClient(ctx, capacity.GCPASGClientConfig{Project: gcpProject}, slog.Default())
	case "aws", "":
		return capacity.NewAWSASGClient(ctx, capacity.AWSASGClientConfig{Region: awsRegion}, slog.Default())
	default:
		return nil, fmt.Errorf("unknown --cloud-provider %q, want aws or gcp", cloudProvider)
	}
}

