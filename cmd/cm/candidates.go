package main

import (
	"github.com/spf13/cobra"

	"github.com/citationmanager/cm/internal/refstore"
)

func init() {
	rootCmd.AddCommand(candidatesCmd)
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates <author|cite> <partial>",
	Short: "List stored records whose name contains a partial name",
	Long: `List the stored authors or citations whose sanitized name contains the
sanitized partial name, sorted, followed by the "new" (authors) or "other"
(citations) choice.`,
	Args: cobra.ExactArgs(2),
	RunE: runCandidates,
}

// CandidatesResult is the response for the candidates command.
type CandidatesResult struct {
	Kind       string   `json:"kind"`
	Partial    string   `json:"partial"`
	Candidates []string `json:"candidates"`
}

func runCandidates(cmd *cobra.Command, args []string) error {
	kind, err := refstore.KindByName(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	cfg := mustLoadConfig()
	matches, err := openStore(cfg).CandidateMatches(kind, args[1])
	if err != nil {
		exitWithError(ExitError, "listing candidates: %v", err)
	}

	if humanOutput {
		for _, m := range matches {
			if m == kind.Sentinel {
				outputHuman("%s\n", dimColor(m))
				continue
			}
			outputHuman("%s\n", m)
		}
		return nil
	}
	return outputJSON(CandidatesResult{Kind: kind.Name, Partial: args[1], Candidates: matches})
}
