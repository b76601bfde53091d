package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/asmcluster/internal/logging"
	"github.com/ludo-technologies/asmcluster/internal/version"
	"github.com/ludo-technologies/asmcluster/service"
)

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	var (
		verbose   bool
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "asmcluster",
		Short: "Group genome assemblies by pairwise mash distance",
		Long: `asmcluster groups the genome assemblies of a directory by their pairwise
mash distance.

Every pair of assemblies is compared with 'mash dist', the distances are
stored batch by batch, and the assemblies are clustered with average linkage
(UPGMA). Assemblies whose linkage distance is at or below the threshold end up
in the same group.

Commands:
  cluster   Group the assemblies of a directory
  compare   Compare every assembly of one directory with every one of another
  init      Write a default .asmcluster.toml
  version   Show version information`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.ParseLevel("warn")
			if verbose {
				level = logging.ParseLevel("debug")
			}
			switch logFormat {
			case "text", "json":
			default:
				return fmt.Errorf("invalid --log-format '%s', must be text or json", logFormat)
			}
			logging.Init(level, logFormat, cmd.ErrOrStderr())
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(NewClusterCmd())
	rootCmd.AddCommand(NewCompareCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
	return rootCmd
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

// printError writes a categorized diagnostic with recovery hints
func printError(w io.Writer, err error) {
	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)

	fmt.Fprintf(w, "Error: %v\n", err)
	if categorized.Category == "" {
		return
	}
	suggestions := categorizer.GetRecoverySuggestions(categorized.Category)
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s. Try:\n", categorized.Category)
	for _, s := range suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
