package main

import (
	"fmt"
	"os"

	"github.com/davecheney/profile"
	"github.com/spf13/cobra"
)

// rootCmdConfig holds the flags shared by every subcommand, following the
// pbanos-botanic layout of one embeddable config struct per command level.
type rootCmdConfig struct {
	verbose    bool
	runProfile bool
}

func rootCmd() *cobra.Command {
	config := &rootCmdConfig{}
	cmd := &cobra.Command{
		Use:   "literanger",
		Short: "literanger grows and predicts with random forests",
		Long:  `A tool to train classification and regression forests, predict with them, merge them, and inspect saved models.`,
	}
	cmd.PersistentFlags().BoolVarP(&config.verbose, "verbose", "v", false, "print progress to stderr")
	cmd.PersistentFlags().BoolVar(&config.runProfile, "profile", false, "cpu profile")
	cmd.AddCommand(trainCmd(config), predictCmd(config), mergeCmd(config), inspectCmd(config))
	return cmd
}

func (c *rootCmdConfig) maybeStartProfile() func() {
	if !c.runProfile {
		return func() {}
	}
	stop := profile.Start(profile.CPUProfile).Stop
	return stop
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
