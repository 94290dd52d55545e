package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write <hex-bytes>",
	Short: "Write raw bytes to the demo peripheral's CCCD descriptor",
	Long: `Writes to the Client Characteristic Configuration Descriptor of the
demo Battery Level characteristic, demonstrating gatt.Client.WriteDescriptor.
Pass "0100" to enable notifications, "0000" to disable them.`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	value, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("invalid hex value %q: %w", args[0], err)
	}

	ctx := context.Background()
	client, _, err := connectDemo(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ch, err := findBatteryLevel(ctx, client)
	if err != nil {
		return err
	}
	cccd, err := client.FindCCCD(ctx, ch)
	if err != nil {
		return err
	}

	if err := client.WriteDescriptor(ctx, cccd, value, true); err != nil {
		return err
	}
	fmt.Printf("Wrote %s to CCCD handle %s\n", args[0], cccd.Handle)
	return nil
}
