package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relic/internal/diff"
	"relic/internal/logging"
	"relic/internal/repo"
	"relic/internal/vcserr"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "relic",
	Short: "Relic is a local snapshot version control system",
	Long: `Relic tracks snapshots of a file tree, organizes them into named
branches, and supports comparing and merging those snapshots.`,
	SilenceUsage: true,
}

// openRepo locates the repository containing the working directory and
// opens it.
func openRepo() (*repo.Repository, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	root, err := repo.FindRoot(dir)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logLevel)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return repo.Open(root, logger.Logger)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a new repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			if err := repo.Init(dir); err != nil {
				if vcserr.IsKind(err, vcserr.KindAlreadyInitialized) {
					fmt.Println("Repository already initialized.")
					return nil
				}
				return err
			}

			fmt.Println("Initialized empty repository in", dir)
			return nil
		},
	}

	var addCmd = &cobra.Command{
		Use:   "add [paths...]",
		Short: "Stage files for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			for _, path := range args {
				if err := r.Stage(path); err != nil {
					return err
				}
				fmt.Printf("Added '%s' to staging area.\n", path)
			}
			return nil
		},
	}

	var commitMessage string
	var commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Commit staged changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			c, err := r.Commit(commitMessage)
			if err != nil {
				if vcserr.IsKind(err, vcserr.KindEmptySnapshot) {
					fmt.Println("No changes to commit.")
					return nil
				}
				return err
			}

			fmt.Printf("Committed %s: %s\n", c.ID.Short(), c.Message)
			return nil
		},
	}
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	commitCmd.MarkFlagRequired("message")

	var historyCmd = &cobra.Command{
		Use:     "history [branch]",
		Aliases: []string{"log"},
		Short:   "Show commit history, newest first",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			commits, err := r.History(name)
			if err != nil {
				return err
			}
			if len(commits) == 0 {
				fmt.Println("No commits yet.")
				return nil
			}

			yellow := color.New(color.FgYellow).SprintFunc()
			for _, c := range commits {
				fmt.Printf("%s | %s | %s\n",
					yellow(c.ID.Short()),
					c.Timestamp.Local().Format(time.DateTime),
					c.Message)
			}
			return nil
		},
	}

	var branchCmd = &cobra.Command{
		Use:   "branch",
		Short: "Manage branches",
	}

	var branchCreateCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create a branch at the current tip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.CreateBranch(args[0]); err != nil {
				return err
			}
			fmt.Printf("Branch '%s' created.\n", args[0])
			return nil
		},
	}

	var branchListCmd = &cobra.Command{
		Use:   "list",
		Short: "List branches",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			infos, err := r.ListBranches()
			if err != nil {
				return err
			}

			green := color.New(color.FgGreen).SprintFunc()
			for _, info := range infos {
				tip := "none"
				if info.Tip != "" {
					tip = info.Tip.Short()
				}
				if info.Active {
					fmt.Printf("%s %s (%s)\n", green("*"), green(info.Name), tip)
				} else {
					fmt.Printf("  %s (%s)\n", info.Name, tip)
				}
			}
			return nil
		},
	}

	var branchSwitchCmd = &cobra.Command{
		Use:   "switch [name]",
		Short: "Switch to a branch (clears the staging area)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.SwitchBranch(args[0]); err != nil {
				return err
			}
			fmt.Printf("Switched to branch '%s'.\n", args[0])
			return nil
		},
	}

	branchCmd.AddCommand(branchCreateCmd, branchListCmd, branchSwitchCmd)

	var diffCmd = &cobra.Command{
		Use:   "diff [refA] [refB]",
		Short: "Compare two branches or commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := r.Diff(args[0], args[1])
			if err != nil {
				return err
			}
			if result.Empty() {
				fmt.Println("No differences.")
				return nil
			}

			green := color.New(color.FgGreen)
			red := color.New(color.FgRed)

			for _, path := range result.Added {
				green.Printf("added:    %s\n", path)
			}
			for _, path := range result.Removed {
				red.Printf("removed:  %s\n", path)
			}
			for _, mod := range result.Modified {
				fmt.Printf("modified: %s\n", mod.Path)
				if mod.Binary {
					fmt.Println("  (binary content differs)")
					continue
				}
				for _, hunk := range mod.Diff.Hunks {
					fmt.Printf("@@ -%d,%d +%d,%d @@\n",
						hunk.OldStart, hunk.OldLines, hunk.NewStart, hunk.NewLines)
					for _, line := range hunk.Lines {
						switch line.Type {
						case diff.Addition:
							green.Printf("+%s\n", line.Content)
						case diff.Deletion:
							red.Printf("-%s\n", line.Content)
						default:
							fmt.Printf(" %s\n", line.Content)
						}
					}
				}
			}
			return nil
		},
	}

	var mergeCmd = &cobra.Command{
		Use:   "merge [source] [target]",
		Short: "Merge one branch's snapshot into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := r.Merge(args[0], args[1])
			if err != nil {
				return err
			}

			if !result.Complete() {
				red := color.New(color.FgRed)
				red.Println("Conflicts detected:")
				for _, path := range result.Conflicts {
					red.Printf("  %s\n", path)
				}
				fmt.Println("Resolve conflicts and re-run merge.")
				return nil
			}

			fmt.Printf("Merge completed without conflicts (%d files added).\n", len(result.Added))
			return nil
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show working-tree status",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			status, err := r.Status()
			if err != nil {
				return err
			}

			fmt.Printf("On branch %s\n", status.Branch)
			if status.Clean() {
				fmt.Println("Nothing to commit, working tree clean.")
				return nil
			}

			green := color.New(color.FgGreen)
			red := color.New(color.FgRed)

			if len(status.Staged) > 0 {
				fmt.Println("Changes staged for commit:")
				for _, path := range status.Staged {
					green.Printf("  staged:    %s\n", path)
				}
			}
			if len(status.Modified) > 0 {
				fmt.Println("Changes not staged for commit:")
				for _, path := range status.Modified {
					red.Printf("  modified:  %s\n", path)
				}
			}
			if len(status.Deleted) > 0 {
				for _, path := range status.Deleted {
					red.Printf("  deleted:   %s\n", path)
				}
			}
			if len(status.Untracked) > 0 {
				fmt.Println("Untracked files:")
				for _, path := range status.Untracked {
					fmt.Printf("  %s\n", path)
				}
			}
			return nil
		},
	}

	var cloneCmd = &cobra.Command{
		Use:   "clone [target]",
		Short: "Clone the repository to a new path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Clone(args[0]); err != nil {
				return err
			}
			fmt.Printf("Repository cloned to %s\n", args[0])
			return nil
		},
	}

	var ignoreCmd = &cobra.Command{
		Use:   "ignore [patterns...]",
		Short: "Add ignore patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.AddIgnore(args); err != nil {
				return err
			}
			fmt.Println("Ignore patterns added.")
			return nil
		},
	}

	var lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List non-ignored files in the working tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			paths, err := r.ListFiles()
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Println(path)
			}
			return nil
		},
	}

	var verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Check repository integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Verify(); err != nil {
				return err
			}
			fmt.Println("Repository integrity verified.")
			return nil
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch the working tree and stage changes automatically",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			stop := make(chan struct{})
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigs
				close(stop)
			}()

			fmt.Println("Watching for changes (ctrl-c to stop)...")
			return r.Watch(stop)
		},
	}

	rootCmd.AddCommand(
		initCmd, addCmd, commitCmd, historyCmd, branchCmd,
		diffCmd, mergeCmd, statusCmd, cloneCmd, ignoreCmd,
		lsCmd, verifyCmd, watchCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
