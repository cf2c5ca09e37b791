// Package commands implements the simdrone CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "simdrone",
	Short: "Reference harness for the packet-forwarding drone core",
	Long: `simdrone wires up a mesh-overlay network from a YAML topology file and
runs every declared drone's event loop, printing the controller events it
observes and exposing Prometheus counters over HTTP.

This is a reference implementation of the simulation controller the drone
core treats as an external collaborator — not part of the forwarding core
itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./simdrone.yaml)")
	rootCmd.AddCommand(runCmd)
	cobra.OnInitialize(initViper)
}

func initViper() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("simdrone")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("SIMDRONE")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
