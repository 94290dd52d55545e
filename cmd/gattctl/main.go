// Command gattctl is a small interactive demonstration of the gatt
// client against a loopback peer: no real controller is wired up, so
// every subcommand talks to an in-process demo peripheral over
// l2cap.Loopback, exercising the exact same client code a real
// transport would.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gattctl",
	Short: "Bluetooth GATT client demonstration CLI",
	Long: `gattctl drives the gatt package's client against a loopback GATT
peer: discover, read, write, and subscribe commands exercise the same
discovery walks, long-value transfers, and notification plumbing a real
BLE connection would use.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable trace-level logging")
	rootCmd.AddCommand(discoverCmd, readCmd, writeCmd, subscribeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
