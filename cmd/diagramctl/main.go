package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "diagramctl",
	Short:        "Operator tooling for the diagram service",
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newDBCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
