package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/fleetview/config"
	"github.com/grovetools/fleetview/pkg/paths"
)

// PathsOutput lists the directories and files fleetview uses.
type PathsOutput struct {
	ConfigDir    string `json:"config_dir"`
	GlobalConfig string `json:"global_config"`
	StateDir     string `json:"state_dir"`
	CacheDir     string `json:"cache_dir"`
	LogFile      string `json:"log_file"`
	SessionFile  string `json:"session_file"`
}

func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by fleetview",
		Long: `Print the XDG-compliant paths used by fleetview as JSON.

FLEETVIEW_HOME relocates all of them under one root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), PathsOutput{
				ConfigDir:    paths.ConfigDir(),
				GlobalConfig: config.GlobalConfigPath(),
				StateDir:     paths.StateDir(),
				CacheDir:     paths.CacheDir(),
				LogFile:      paths.LogFilePath(),
				SessionFile:  sessionStore().Path(),
			})
		},
	}
}
