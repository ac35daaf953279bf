// Command assess scores dementia risk records from files, without the HTTP
// service.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/synaptica-ai/dementia-risk/pkg/common/config"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
)

var (
	cfg     *config.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "assess",
	Short:         "Offline dementia risk assessment",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.Log.SetOutput(cmd.ErrOrStderr())
		if verbose {
			logger.Log.SetLevel(logrus.DebugLevel)
		} else {
			logger.Log.SetLevel(logrus.WarnLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline details to stderr")
	rootCmd.AddCommand(scoreCmd, schemaCmd, explainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
