package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RexQian/kubectl-view-allocations/cmd/version"
	"github.com/RexQian/kubectl-view-allocations/internal/collector"
	"github.com/RexQian/kubectl-view-allocations/internal/logging"
	"github.com/RexQian/kubectl-view-allocations/internal/output"
	"github.com/RexQian/kubectl-view-allocations/internal/utils"
	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type CommandFlags struct {
	KubeContext   string
	Namespace     string
	Utilization   bool
	ShowZero      bool
	ResourceNames []string
	GroupBy       []string
	OutputFormat  string
	OutputFile    string
	HideNames     bool
	EnableDebug   bool
	NoProgress    bool
	MaxProcessors int
}

// DefaultFlags returns a CommandFlags struct initialized with default values
func DefaultFlags() *CommandFlags {
	return &CommandFlags{
		OutputFormat: string(output.TableFormat),
		OutputFile:   "allocations.xlsx",
	}
}

// internalFlags is used for standalone CLI usage
var internalFlags = DefaultFlags()

// GetCommand returns the root command for kubectl-view-allocations
// This allows it to be used as a standalone command or as a subcommand in another CLI
// If customFlags is provided, those flags will be used instead of the default ones
func GetCommand(customFlags ...*CommandFlags) *cobra.Command {
	var flags *CommandFlags
	if len(customFlags) > 0 && customFlags[0] != nil {
		flags = customFlags[0]
	} else {
		flags = internalFlags
	}

	cmd := &cobra.Command{
		Use:          "kubectl-view-allocations",
		Short:        "List allocations (requested, limit, allocatable, utilization) of resources in a cluster.",
		Long:         "kubectl-view-allocations lists the resources (cpu, memory, gpu, ...) requested, limited, allocatable and used in a Kubernetes cluster, grouped as a tree by resource, node, pod or namespace.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			go func() {
				sig := <-sigCh
				logging.Info("Received signal: %v, initiating shutdown...", sig)

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()

				go func() {
					<-shutdownCtx.Done()
					if shutdownCtx.Err() == context.DeadlineExceeded {
						logging.Error("Shutdown timed out, forcing exit")
						os.Exit(1)
					}
				}()

				cancel()
			}()

			if flags.EnableDebug {
				logging.EnableDebugMessages()
			}

			// validate before talking to the cluster
			cfg, err := flags.Config()
			if err != nil {
				return err
			}

			// If context is not specified, use current context
			if cfg.KubeContext == "" {
				cfg.KubeContext, err = utils.GetCurrentContext()
				if err != nil {
					logging.Error("No current Kubernetes context found: %v", err)
					return err
				}
				logging.Info("Using current Kubernetes context: %s", cfg.KubeContext)
			} else {
				logging.Info("Using Kubernetes context from flags: %s", cfg.KubeContext)
			}

			kube, metrics, hasMetrics, err := utils.CreateKubernetesClients(ctx, cfg.KubeContext, cfg.Namespace)
			if err != nil {
				if kube == nil {
					return fmt.Errorf("failed to create Kubernetes clients: %w", err)
				}
				logging.Warn("Failed to create metrics client: %v", err)
			}

			clients := collector.Clients{Kube: kube, HasMetrics: hasMetrics}
			if metrics != nil {
				clients.Metrics = metrics
			}

			if err := Report(ctx, cmd.OutOrStdout(), cfg, clients); err != nil {
				logging.Error("Error building allocations report: %v", err)
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.KubeContext, "context", "k", "", "Kubernetes context to use. If not set, uses the current context.")
	cmd.PersistentFlags().StringVarP(&flags.Namespace, "namespace", "n", "", "Show only pods from this namespace.")
	cmd.PersistentFlags().BoolVarP(&flags.Utilization, "utilization", "u", false, "Force to retrieve utilization (for cpu and memory), requires metrics-server.")
	cmd.PersistentFlags().BoolVarP(&flags.ShowZero, "show-zero", "z", false, "Show lines with zero requested, zero limit and zero allocatable.")
	cmd.PersistentFlags().StringSliceVarP(&flags.ResourceNames, "resource-name", "r", nil, "Filter resources shown by name(s), by default all resources are listed.")
	cmd.PersistentFlags().StringSliceVarP(&flags.GroupBy, "group-by", "g", nil,
		fmt.Sprintf("Group information hierarchically, one of %v (default: -g resource -g node -g pod).", aggregate.AllGroupBy()))
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", flags.OutputFormat, fmt.Sprintf("Output format, one of %v.", output.AllFormats))
	cmd.PersistentFlags().StringVar(&flags.OutputFile, "output-file", flags.OutputFile, "File to write the xlsx output to.")
	cmd.PersistentFlags().BoolVar(&flags.HideNames, "hide-names", false, "Hide the names of nodes, namespaces and pods by using a hash.")
	cmd.PersistentFlags().BoolVar(&flags.EnableDebug, "debug", false, "Enable debug mode.")
	cmd.PersistentFlags().BoolVar(&flags.NoProgress, "no-progress", false, "Disable the progress bar while processing namespaces.")
	cmd.PersistentFlags().IntVar(&flags.MaxProcessors, "max-processors", 0, "Maximum number of namespaces processed concurrently. If not set, or <= 0, it depends on the available processors.")

	return cmd
}

// Config validates the flags and turns them into a report configuration
func (f *CommandFlags) Config() (*utils.Config, error) {
	groupBy, err := aggregate.ParseGroupByList(f.GroupBy)
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(f.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrInvalidOutputFormat, err)
	}

	return &utils.Config{
		KubeContext:   f.KubeContext,
		Namespace:     f.Namespace,
		Utilization:   f.Utilization,
		ShowZero:      f.ShowZero,
		ResourceNames: lo.Compact(f.ResourceNames),
		GroupBy:       groupBy,
		OutputFormat:  string(format),
		OutputFile:    f.OutputFile,
		HideNames:     f.HideNames,
		MaxProcessors: f.MaxProcessors,
		NoProgress:    f.NoProgress,
	}, nil
}

// Report collects the resources of the cluster, aggregates them and writes
// the report to w
func Report(ctx context.Context, w io.Writer, cfg *utils.Config, clients collector.Clients) error {
	result, err := collector.Collect(ctx, cfg, clients)
	if err != nil {
		return err
	}

	groups, err := aggregate.Aggregate(result.Resources, cfg.GroupBy, cfg.ResourceNames)
	if err != nil {
		return fmt.Errorf("failed to aggregate resources: %w", err)
	}
	logging.Debug("Aggregated %d records into %d groups", len(result.Resources), len(groups))

	return output.Render(w, groups, output.Options{
		Format:          output.Format(cfg.OutputFormat),
		GroupBy:         cfg.GroupBy,
		ShowUtilization: result.HasUtilization,
		ShowZero:        cfg.ShowZero,
		Colors:          true,
		OutputFile:      cfg.OutputFile,
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() when the CLI is used standalone.
func Execute() {
	cmd := GetCommand()

	cmd.Version = "n/a" // This needs to be set so that the --version flag works when setting the version template
	cmd.SetVersionTemplate(version.VersionTemplate())
	cmd.AddCommand(version.NewCommand())

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
