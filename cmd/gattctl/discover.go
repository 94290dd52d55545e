package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover services, characteristics, and descriptors on the demo peripheral",
	RunE:  runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, _, err := connectDemo(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	profile, err := client.DiscoverProfile(ctx)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	for _, svc := range profile.Services {
		bold.Printf("Service %s (handles %s-%s)\n", svc.UUID, svc.StartHandle, svc.EndHandle)
		for _, ch := range profile.Characteristics[svc.StartHandle] {
			fmt.Printf("  Characteristic %s value-handle=%s properties=0x%02X\n", ch.UUID, ch.ValueHandle, ch.Properties)
			for _, d := range profile.Descriptors[ch.ValueHandle] {
				fmt.Printf("    Descriptor %s handle=%s\n", d.UUID, d.Handle)
			}
		}
	}
	return nil
}
