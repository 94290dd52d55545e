package gatt

import (
	"context"
	"fmt"

	"github.com/user/blegatt/att"
	"github.com/user/blegatt/l2cap"
	"github.com/user/blegatt/logger"
)

// ClientConfig configures a Client. The zero value is valid: it logs
// nothing and performs no MTU exchange, so the MTU stays at the default
// 23 bytes.
type ClientConfig struct {
	// Log receives the client's trace/debug output, in the same
	// prefixed-logger style the rest of this module uses. Nil is
	// valid and silently discards everything.
	Log *logger.Prefixed
	// PreferredMTU is the client's receive MTU offered during the
	// one-shot MTU exchange. Values at or below l2cap.DefaultMTU
	// (zero included) skip the exchange and keep the default MTU.
	PreferredMTU uint16
}

// Client is a GATT client bound to a single ATT-over-L2CAP connection.
// It owns the connection's att.Multiplexer and is the only thing that
// may call SendRequestAndAwaitResponse/SendCommand on it - callers
// never touch the att package directly.
type Client struct {
	mux          *att.Multiplexer
	disc         discoveryEngine
	sink         *subscriptionSink
	writeGate    longWriteGate
	log          *logger.Prefixed
	preferredMTU uint16
}

// NewClient wraps conn in a Client. Call Start before issuing any
// operation.
func NewClient(conn l2cap.Conn, cfg ClientConfig) *Client {
	log := cfg.Log
	mux := att.NewMultiplexer(conn, log)
	c := &Client{
		mux:  mux,
		sink: newSubscriptionSink(),
		log:  log,
	}
	c.disc = discoveryEngine{mux: mux}
	mux.SetUnsolicitedHandler(c.sink.dispatch)
	c.preferredMTU = cfg.PreferredMTU
	return c
}

// Start launches the multiplexer's read loop and, when PreferredMTU is
// above l2cap.DefaultMTU, runs the one-shot MTU exchange in a
// background goroutine. A failed exchange is logged as a warning and
// leaves the default MTU in place; it fails neither Start nor any later
// operation.
func (c *Client) Start(ctx context.Context) error {
	go c.mux.Run()
	if c.preferredMTU > l2cap.DefaultMTU {
		go func() {
			if _, err := c.mux.ExchangeMTU(ctx, c.preferredMTU); err != nil {
				c.log.Warn("MTU exchange failed: %v", err)
			}
		}()
	}
	return nil
}

// MTU returns the currently negotiated ATT_MTU.
func (c *Client) MTU() uint16 { return c.mux.MTU() }

// Disconnected is closed once the underlying connection fails or is
// closed.
func (c *Client) Disconnected() <-chan struct{} { return c.mux.Stopped() }

// Close tears down the connection. Any in-flight request fails with a
// cancellation error.
func (c *Client) Close() error { return c.mux.Close() }

// Subscribe finds ch's CCCD among its descriptors, writes it to enable
// notifications, indications, or both, then routes every value the
// server delivers to fn until Unsubscribe is called.
func (c *Client) Subscribe(ctx context.Context, ch Characteristic, notify, indicate bool, fn NotificationHandler) error {
	if fn == nil {
		return fmt.Errorf("gatt: Subscribe requires a non-nil handler")
	}
	cccd, err := c.FindCCCD(ctx, ch)
	if err != nil {
		return err
	}
	if err := setSubscription(ctx, c.mux, cccd, notify, indicate); err != nil {
		return err
	}
	c.sink.set(ch.ValueHandle, fn)
	return nil
}

// Unsubscribe disables notifications and indications for ch and stops
// routing values to its handler.
func (c *Client) Unsubscribe(ctx context.Context, ch Characteristic) error {
	cccd, err := c.FindCCCD(ctx, ch)
	if err != nil {
		return err
	}
	if err := setSubscription(ctx, c.mux, cccd, false, false); err != nil {
		return err
	}
	c.sink.set(ch.ValueHandle, nil)
	return nil
}

// FindCCCD discovers ch's descriptors and returns its Client
// Characteristic Configuration Descriptor. It fails with
// ConfigurationNotAllowedError if ch has none.
func (c *Client) FindCCCD(ctx context.Context, ch Characteristic) (Descriptor, error) {
	return findCCCD(ctx, &c.disc, ch)
}
