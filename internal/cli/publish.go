package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/github"
	"github.com/dshills/codelens/internal/output"
)

const publishTimeout = 2 * time.Minute

// reviewPoster is the part of the GitHub client publish needs.
type reviewPoster interface {
	GetPRFiles(ctx context.Context, owner, repo string, prNumber int) ([]string, error)
	PostReview(ctx context.Context, owner, repo string, prNumber int, review github.ReviewRequest) error
}

// newGitHubClient is replaced in tests.
var newGitHubClient = func() (reviewPoster, error) { return github.NewClient() }

func (a *app) publishCmd() *cobra.Command {
	var (
		pr     int
		repo   string
		prefix string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "publish [summary.json]",
		Short: "Post a JSON summary as a GitHub pull request review",
		Long: "Publish reads the JSON summary written by analyze and posts it as a review on a GitHub pull request. " +
			"The PR number defaults to the one in GITHUB_REF and the repository to GITHUB_REPOSITORY or the git remote.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			path := cfg.Output.JSON
			if len(args) == 1 {
				path = args[0]
			}
			sd, err := output.ReadSummary(path)
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}
			doc := output.NewDocument(cfg.Output.Title, sd.Version, sd.Static, sd.PerFile)

			if dryRun {
				review := github.BuildReview(doc, nil, prefix)
				fmt.Fprintln(a.stdout, review.Body)
				return nil
			}

			if pr == 0 {
				n, ok := github.PRNumberFromRef(os.Getenv("GITHUB_REF"))
				if !ok {
					return withCode(ExitUsageError, fmt.Errorf("no pull request number: pass --pr or run on a pull_request event"))
				}
				pr = n
			}
			var owner, name string
			if repo != "" {
				owner, name, err = github.ParseRepo(repo)
			} else {
				owner, name, err = github.DetectRepo()
			}
			if err != nil {
				return withCode(ExitUsageError, err)
			}

			client, err := newGitHubClient()
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
			defer cancel()

			files, err := client.GetPRFiles(ctx, owner, name, pr)
			if err != nil {
				return withCode(ExitRuntimeError, err)
			}
			changed := make(map[string]bool, len(files))
			for _, f := range files {
				changed[f] = true
			}

			review := github.BuildReview(doc, changed, prefix)
			if err := client.PostReview(ctx, owner, name, pr, review); err != nil {
				return withCode(ExitRuntimeError, err)
			}
			fmt.Fprintf(a.stdout, "Posted review to %s/%s#%d (%d inline comments)\n", owner, name, pr, len(review.Comments))
			return nil
		},
	}
	cmd.Flags().IntVar(&pr, "pr", 0, "Pull request number")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository as owner/repo")
	cmd.Flags().StringVar(&prefix, "path-prefix", "", "Prefix stripped from report paths to make them repository-relative")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the review body instead of posting it")
	return cmd
}
