package att

import "fmt"

// Error codes per Bluetooth Core Spec v5.3, Vol 3, Part F, Section 3.4.1.1.
const (
	ErrInvalidHandle                 = 0x01
	ErrReadNotPermitted              = 0x02
	ErrWriteNotPermitted             = 0x03
	ErrInvalidPDU                    = 0x04
	ErrInsufficientAuthentication    = 0x05
	ErrRequestNotSupported           = 0x06
	ErrInvalidOffset                 = 0x07
	ErrInsufficientAuthorization     = 0x08
	ErrPrepareQueueFull              = 0x09
	ErrAttributeNotFound             = 0x0A
	ErrAttributeNotLong              = 0x0B
	ErrInsufficientEncryptionKeySize = 0x0C
	ErrInvalidAttributeValueLength   = 0x0D
	ErrUnlikelyError                 = 0x0E
	ErrInsufficientEncryption        = 0x0F
	ErrUnsupportedGroupType          = 0x10
	ErrInsufficientResources         = 0x11

	ErrApplicationErrorStart = 0x80
	ErrApplicationErrorEnd   = 0x9F

	ErrCommonErrorStart = 0xE0
	ErrCommonErrorEnd   = 0xFF
)

var errorNames = map[uint8]string{
	ErrInvalidHandle:                 "Invalid Handle",
	ErrReadNotPermitted:              "Read Not Permitted",
	ErrWriteNotPermitted:             "Write Not Permitted",
	ErrInvalidPDU:                    "Invalid PDU",
	ErrInsufficientAuthentication:    "Insufficient Authentication",
	ErrRequestNotSupported:           "Request Not Supported",
	ErrInvalidOffset:                 "Invalid Offset",
	ErrInsufficientAuthorization:     "Insufficient Authorization",
	ErrPrepareQueueFull:              "Prepare Queue Full",
	ErrAttributeNotFound:             "Attribute Not Found",
	ErrAttributeNotLong:              "Attribute Not Long",
	ErrInsufficientEncryptionKeySize: "Insufficient Encryption Key Size",
	ErrInvalidAttributeValueLength:   "Invalid Attribute Value Length",
	ErrUnlikelyError:                 "Unlikely Error",
	ErrInsufficientEncryption:        "Insufficient Encryption",
	ErrUnsupportedGroupType:          "Unsupported Group Type",
	ErrInsufficientResources:         "Insufficient Resources",
}

// Error is the client-side representation of an ATT_ERROR_RSP, carrying
// the protocol detail the server sent back (as opposed to
// invalid-response, transport, or in-long-write failures, which are
// detected locally).
type Error struct {
	Code          uint8
	RequestOpcode uint8
	Handle        Handle
}

func (e *Error) Error() string {
	name, ok := errorNames[e.Code]
	if !ok {
		switch {
		case e.Code >= ErrApplicationErrorStart && e.Code <= ErrApplicationErrorEnd:
			name = fmt.Sprintf("Application Error (0x%02X)", e.Code)
		case e.Code >= ErrCommonErrorStart && e.Code <= ErrCommonErrorEnd:
			name = fmt.Sprintf("Common Profile Error (0x%02X)", e.Code)
		default:
			name = fmt.Sprintf("Unknown Error (0x%02X)", e.Code)
		}
	}
	opcodeName, ok := OpcodeNames[e.RequestOpcode]
	if !ok {
		opcodeName = fmt.Sprintf("0x%02X", e.RequestOpcode)
	}
	return fmt.Sprintf("att: %s (handle 0x%04X, request %s)", name, uint16(e.Handle), opcodeName)
}

// IsError reports whether err is an *Error carrying the given code.
func IsError(err error, code uint8) bool {
	attErr, ok := err.(*Error)
	return ok && attErr.Code == code
}
