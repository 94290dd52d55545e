package main

import (
	"context"

	"github.com/user/blegatt/gatt"
	"github.com/user/blegatt/l2cap"
	"github.com/user/blegatt/logger"
)

// connectDemo wires up a loopback pair, starts the demo peripheral on
// one end, and returns a started gatt.Client on the other.
func connectDemo(ctx context.Context) (*gatt.Client, *demoPeripheral, error) {
	if flagVerbose {
		logger.SetLevel(logger.TRACE)
	} else {
		logger.SetLevel(logger.INFO)
	}

	centralSide, peripheralSide := l2cap.Loopback(l2cap.MaxMTU, l2cap.MaxMTU)

	peripheral := newDemoPeripheral(peripheralSide)
	go peripheral.run()

	client := gatt.NewClient(centralSide, gatt.ClientConfig{
		Log:          logger.NewPrefixed("gattctl"),
		PreferredMTU: l2cap.MaxMTU,
	})
	if err := client.Start(ctx); err != nil {
		return nil, nil, err
	}
	return client, peripheral, nil
}
