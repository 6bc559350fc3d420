package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "askmto",
	Short: "Question answering over the Ontario driver's handbook",
	Long: `askmto indexes the official driver's handbook PDF into a local vector
store and serves a question-answering API over it. Answers are grounded
in retrieved handbook passages and cite the pages they came from.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".askmto.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
