package att

import "fmt"

// Handle identifies a single attribute in a server's attribute table.
// 0x0000 is reserved and never refers to a real attribute.
type Handle uint16

const (
	// HandleInvalid is the reserved null handle.
	HandleInvalid Handle = 0x0000
	// HandleMin and HandleMax bound the valid handle range.
	HandleMin Handle = 0x0001
	HandleMax Handle = 0xFFFF
)

func (h Handle) String() string {
	return fmt.Sprintf("0x%04X", uint16(h))
}
