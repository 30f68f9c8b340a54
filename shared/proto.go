package shared

import (
	"time"

	"github.com/netsys-lab/speedtest/utils"
)

const MAGIC_COOKIE uint32 = 0xabcddcba

const (
	MSG_OFFER   = 0x2 // Server announcement, broadcast channel
	MSG_REQUEST = 0x3 // Unreliable transfer request, client to server
	MSG_PAYLOAD = 0x4 // One segment of an unreliable transfer, server to client
)

const (
	PREFIX_LEN         = 5 // magic + type
	OFFER_LEN          = PREFIX_LEN + 2 + 2
	REQUEST_LEN        = PREFIX_LEN + 8
	PAYLOAD_HEADER_LEN = PREFIX_LEN + 8 + 8
	SEGMENT_SIZE       = 1024
	MAX_PAYLOAD_LEN    = PAYLOAD_HEADER_LEN + SEGMENT_SIZE
)

// Well-known port the broadcaster sends Offers to and clients listen on.
const DISCOVERY_PORT = 13117

const (
	DefaultOfferInterval     = 1 * time.Second
	DefaultInactivityTimeout = 1 * time.Second
)

// SegmentCount is the number of segments an unreliable transfer of
// fileSize bytes consists of. The server sends exactly this many Payloads
// and the client uses it as the success rate denominator.
func SegmentCount(fileSize uint64) uint64 {
	return utils.CeilDiv(fileSize, SEGMENT_SIZE)
}

// SegmentLen is the number of data bytes carried by segment index of a
// transfer of fileSize bytes. Only the last segment may be short.
func SegmentLen(fileSize, index uint64) int {
	start := index * SEGMENT_SIZE
	if start >= fileSize {
		return 0
	}
	if rest := fileSize - start; rest < SEGMENT_SIZE {
		return int(rest)
	}
	return SEGMENT_SIZE
}
