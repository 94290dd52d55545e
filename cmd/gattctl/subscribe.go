package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe to Battery Level notifications and print updates for 5 seconds",
	RunE:  runSubscribe,
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, peripheral, err := connectDemo(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ch, err := findBatteryLevel(ctx, client)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	err = client.Subscribe(ctx, ch, true, false, func(value []byte, isIndication bool) {
		if len(value) == 1 {
			fmt.Printf("notification: Battery Level = %d%%\n", value[0])
		}
	})
	if err != nil {
		return err
	}
	defer client.Unsubscribe(ctx, ch)

	level := byte(87)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	timeout := time.After(5 * time.Second)
	go func() {
		for {
			select {
			case <-ticker.C:
				level--
				_ = peripheral.Notify(level)
			case <-timeout:
				close(done)
				return
			}
		}
	}()

	<-done
	return nil
}
