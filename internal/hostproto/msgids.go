package hostproto

// Standard message IDs reserved across personalities (spec.md §4.2,
// §6). Personality-specific command IDs (TDC_*, FD_*) live alongside
// each personality's dispatch table.
const (
	RecvPing      uint8 = 0x00
	RecvFieldSet  uint8 = 0x01
	RecvFieldGet  uint8 = 0x02
	RecvStructSet uint8 = 0x03
	RecvStructGet uint8 = 0x04
	RecvVersion   uint8 = 0x05

	SendAck        uint8 = 0x06
	SendNack       uint8 = 0x07
	SendFieldGet   uint8 = 0x08
	SendStructGet  uint8 = 0x09
	SendVersionRep uint8 = 0x0a
)

// Reply message IDs (spec.md §6, numeric ranges REP_*). These are
// 16-bit because they are distinguished from the 8-bit REQ range by
// being >= 0x100.
const (
	RepAck            uint16 = 0x100
	RepState          uint16 = 0x101
	RepNack           uint16 = 0x102
	RepTriggerHandle  uint16 = 0x103
	RepHashEntry      uint16 = 0x104
	RepTimestamp      uint16 = 0x105
)

// Version is the firmware identification record answered by
// RecvVersion (spec.md §3.1 SUPPLEMENT, grounded on
// original_source/include/mockturtle-common.h's trtl_rt_version).
type Version struct {
	FPGAID    uint32
	RTID      uint32
	RTVersion uint32
	GitSHA    uint32
}
