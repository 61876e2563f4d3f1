package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the version, git commit, and build date of solclient.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
		return printResult(cmd.OutOrStdout(), info, func(w io.Writer) {
			fmt.Fprintf(w, "solclient\n")
			fmt.Fprintf(w, "  Version:    %s\n", info.Version)
			fmt.Fprintf(w, "  Git Commit: %s\n", info.GitCommit)
			fmt.Fprintf(w, "  Build Date: %s\n", info.BuildDate)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
