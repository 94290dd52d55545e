package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/blegatt/gatt"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the demo peripheral's Battery Level characteristic",
	RunE:  runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
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

	value, err := client.ReadCharacteristic(ctx, ch)
	if err != nil {
		return err
	}
	if len(value) != 1 {
		return fmt.Errorf("unexpected battery level value length %d", len(value))
	}
	fmt.Printf("Battery Level: %d%%\n", value[0])
	return nil
}

func findBatteryLevel(ctx context.Context, client *gatt.Client) (gatt.Characteristic, error) {
	services, err := client.DiscoverServices(ctx)
	if err != nil {
		return gatt.Characteristic{}, err
	}
	if len(services) == 0 {
		return gatt.Characteristic{}, fmt.Errorf("no services found")
	}
	chars, err := client.DiscoverCharacteristics(ctx, services[0])
	if err != nil {
		return gatt.Characteristic{}, err
	}
	if len(chars) == 0 {
		return gatt.Characteristic{}, fmt.Errorf("no characteristics found")
	}
	return chars[0], nil
}
