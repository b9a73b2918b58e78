package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Manu343726/elfscope/internal/config"
	"github.com/Manu343726/elfscope/internal/elog"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = elog.New()
)

// RootCmd is the base command when elfscope is called without any
// subcommands.
var RootCmd = &cobra.Command{
	Use:   "elfscope",
	Short: "Static call-graph and stack-depth analyzer for ELF binaries",
	Long: `elfscope parses an ELF object or executable, builds its
inter-procedural call graph, and estimates the worst-case stack depth
reachable from each function.`,
}

// Execute adds all child commands to RootCmd and runs it. Called once
// from main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.elfscope.yaml)")
	RootCmd.AddCommand(analyzeCmd)
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "elfscope: loading config:", err)
		os.Exit(1)
	}
	cfg = loaded
}
