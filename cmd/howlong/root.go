package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "howlong",
	Short: "HowLong is a body-language engagement kiosk",
	Long: `HowLong watches a visitor through the camera, turns neck touches, crossed
arms and crossed legs into animated bursts and scores how engaged they were.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}
