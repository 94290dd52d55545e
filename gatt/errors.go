package gatt

import "fmt"

// InvalidResponseError mirrors att.InvalidResponseError at the GATT
// level for failures specific to a discovery or long-value procedure
// (a service end handle that doesn't advance the cursor, a reliable
// write echo that doesn't match what was sent, and so on).
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string { return "gatt: invalid response: " + e.Reason }

// ErrInLongWrite is returned by WriteCharacteristic/WriteDescriptor
// when a long-write procedure is already in flight on the connection.
var ErrInLongWrite = fmt.Errorf("gatt: a long write is already in progress on this connection")

// ErrSignedWriteUnsupported is returned by SignedWriteCharacteristic.
// This client does not hold a CSRK and so cannot compute the signature
// ATT_SIGNED_WRITE_CMD requires; it refuses to send rather than sending
// an unsigned or fabricated signature.
var ErrSignedWriteUnsupported = fmt.Errorf("gatt: signed write requires CSRK signing, which this client does not implement")

// ConfigurationNotAllowedError is returned by Subscribe/Unsubscribe
// when the characteristic has no Client Characteristic Configuration
// Descriptor among its descriptors, so there is nothing to write to
// enable or disable notifications/indications.
type ConfigurationNotAllowedError struct {
	Characteristic UUID
}

func (e *ConfigurationNotAllowedError) Error() string {
	return fmt.Sprintf("gatt: characteristic %s has no Client Characteristic Configuration Descriptor", e.Characteristic)
}
