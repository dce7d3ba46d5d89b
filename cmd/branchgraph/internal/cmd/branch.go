package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/branchgraph/branchgraph/internal/branchreg"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches: list, create, rebase, merge, delete",
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every branch in the registry",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withCore(func(ctx context.Context, h *coreHandles) error {
			branches, err := h.Branches.List(ctx)
			if err != nil {
				return err
			}
			return printBranches(branches)
		})
	},
}

var (
	branchFrom        string
	branchDataOnly    bool
	branchInteractive bool
)

var branchCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Fork a new branch from an existing one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" || branchInteractive {
			var err error
			name, branchFrom, branchDataOnly, err = runCreateBranchForm(name, branchFrom, branchDataOnly)
			if err != nil {
				return err
			}
		}
		return withCore(func(ctx context.Context, h *coreHandles) error {
			b, err := h.Branches.Create(ctx, name, branchFrom, branchDataOnly)
			if err != nil {
				return err
			}
			return printBranches([]*branchreg.Branch{b})
		})
	},
}

// runCreateBranchForm prompts for the name, parent and data-only fields using
// an interactive huh form pre-filled with the values given on the command
// line (grounded on steveyegge-beads' create-form command).
func runCreateBranchForm(name, from string, dataOnly bool) (string, string, bool, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Branch name").
				Description("Must match ^[A-Za-z0-9][A-Za-z0-9_\\-./]{0,63}$").
				Value(&name).
				Validate(func(s string) error {
					return branchreg.ValidateName(s)
				}),
			huh.NewInput().
				Title("Fork from").
				Description("Parent branch name (empty = default branch)").
				Value(&from),
			huh.NewConfirm().
				Title("Data-only branch?").
				Description("Recorded on the branch; writes on the branch are not restricted by it").
				Value(&dataOnly),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			fmt.Fprintln(os.Stderr, "branch creation cancelled.")
			os.Exit(0)
		}
		return "", "", false, fmt.Errorf("form error: %w", err)
	}
	return name, from, dataOnly, nil
}

var branchRebaseCmd = &cobra.Command{
	Use:   "rebase <name>",
	Short: "Advance a branch's branched_from to now",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, h *coreHandles) error {
			b, err := h.Branches.Rebase(ctx, args[0])
			if err != nil {
				return err
			}
			return printBranches([]*branchreg.Branch{b})
		})
	},
}

var mergeAt string

var branchMergeCmd = &cobra.Command{
	Use:   "merge <name>",
	Short: "Replay a branch's deltas onto its parent",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, h *coreHandles) error {
			at, err := parseAtFlag(mergeAt)
			if err != nil {
				return err
			}
			if err := h.Merges.Merge(ctx, args[0], at); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "merged %s\n", args[0])
			return nil
		})
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Hard-delete a branch record",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withCore(func(ctx context.Context, h *coreHandles) error {
			return h.Branches.Delete(ctx, args[0])
		})
	},
}

func printBranches(branches []*branchreg.Branch) error {
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(branches)
	}

	header := lipgloss.NewStyle().Bold(!noColor)
	fmt.Println(header.Render(fmt.Sprintf("%-24s %-8s %-36s %s", "NAME", "LEVEL", "BRANCHED FROM", "DATA-ONLY")))
	for _, b := range branches {
		fmt.Printf("%-24s %-8d %-36s %v\n", b.Name, b.BranchLevel, b.BranchedFrom.Format("2006-01-02T15:04:05Z"), b.IsDataOnly)
	}
	return nil
}

func init() {
	branchCreateCmd.Flags().StringVar(&branchFrom, "from", "", "parent branch name (empty = default branch)")
	branchCreateCmd.Flags().BoolVar(&branchDataOnly, "data-only", false, "create a data-only branch")
	branchCreateCmd.Flags().BoolVar(&branchInteractive, "interactive", false, "force the interactive form even when a name is given")
	branchMergeCmd.Flags().StringVar(&mergeAt, "at", "", "merge as-of time (RFC3339 or natural language, default now)")

	branchCmd.AddCommand(branchListCmd, branchCreateCmd, branchRebaseCmd, branchMergeCmd, branchDeleteCmd)
}
