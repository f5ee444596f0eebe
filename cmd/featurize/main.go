// Command featurize derives the engineered customer features for one dataset
// file. It is the featurize subcommand of bankdash as a standalone binary.
package main

import (
	"os"

	"bankdash/internal/cli"
	"bankdash/internal/config"
)

func main() {
	var cfgFile string
	cmd := cli.NewFeaturizeCommand(func() (*config.Config, error) {
		if cfgFile != "" {
			return config.LoadFrom(cfgFile)
		}
		return config.Load()
	})
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: first config.yaml found)")

	if err := cli.Execute(cmd); err != nil {
		os.Exit(1)
	}
}
