package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/glamour/v2"
	"github.com/spf13/cobra"

	"github.com/branchgraph/branchgraph/internal/diff"
)

var (
	diffFrom       string
	diffTo         string
	diffBranchOnly bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <branch>",
	Short: "Show what changed on a branch relative to its parent",
	Long: `diff computes the Diff Engine result for <branch> over [--from, --to]
(spec §4.6) and renders it as a Markdown changelog, same shape as the
GET /diff/data facade endpoint serves as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		branch := args[0]
		return withCore(func(ctx context.Context, h *coreHandles) error {
			from, err := parseTimeFlag(diffFrom, time.Time{})
			if err != nil {
				return err
			}
			to, err := parseAtFlag(diffTo)
			if err != nil {
				return err
			}
			result, err := h.Diffs.Compute(ctx, diff.Options{
				Branch:     branch,
				From:       from,
				To:         to,
				BranchOnly: diffBranchOnly,
			})
			if err != nil {
				return err
			}
			return renderDiff(result)
		})
	},
}

func renderDiff(result diff.Result) error {
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var sb strings.Builder
	for branch, nodes := range result {
		fmt.Fprintf(&sb, "# Branch: %s\n\n", branch)
		if len(nodes) == 0 {
			sb.WriteString("_no changes in this window_\n\n")
			continue
		}
		for _, n := range nodes {
			fmt.Fprintf(&sb, "## %s `%s` — %s\n\n", n.Kind, n.ID, n.Action)
			for _, a := range n.Attributes {
				fmt.Fprintf(&sb, "- **%s** (%s)\n", a.Name, a.Action)
				for _, p := range a.Properties {
					fmt.Fprintf(&sb, "  - %s: `%v` -> `%v`\n", p.Property, p.Value.Previous, p.Value.New)
				}
			}
			for _, rel := range n.Relationships {
				fmt.Fprintf(&sb, "- relationship **%s** -> %s `%s` (%s)\n", rel.Name, rel.Peer.Kind, rel.Peer.ID, rel.Action)
			}
			sb.WriteString("\n")
		}
	}

	rendered, err := glamour.Render(sb.String(), glamourStyle())
	if err != nil {
		return fmt.Errorf("render diff: %w", err)
	}
	fmt.Print(rendered)
	return nil
}

func glamourStyle() string {
	if noColor {
		return "notty"
	}
	return "dark"
}

func init() {
	diffCmd.Flags().StringVar(&diffFrom, "from", "", "window start (RFC3339 or natural language, default the branch's branched_from)")
	diffCmd.Flags().StringVar(&diffTo, "to", "", "window end (RFC3339 or natural language, default now)")
	diffCmd.Flags().BoolVar(&diffBranchOnly, "branch-only", false, "restrict to changes authored directly on this branch")
}
