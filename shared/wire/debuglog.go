package wire

import (
	"time"

	"github.com/joeycumines/go-catrate"
	"go.uber.org/zap"
)

// wrongProtocolLimiter caps "attempted X parse of incorrect protocol Y"
// debug logging at 5 lines/second per (attempted, actual) pair, so a peer
// hammering the wrong protocol tag cannot flood the log — catrate tracks
// discrete events in a sliding window per category, which is exactly this
// shape of problem.
var wrongProtocolLimiter = catrate.NewLimiter(map[time.Duration]int{
	time.Second: 5,
})

// LogWrongProtocolAttempt logs, at debug level and rate-limited per
// (attempted, actual) pair, that a caller tried to decode a frame as
// `attempted` when its tag was actually `actual`.
func LogWrongProtocolAttempt(logger *zap.Logger, attempted, actual ProtocolTag) {
	if logger == nil {
		return
	}
	category := [2]ProtocolTag{attempted, actual}
	if _, ok := wrongProtocolLimiter.Allow(category); !ok {
		return
	}
	logger.Debug("attempted parse of incorrect protocol",
		zap.Stringer("attempted", attempted),
		zap.Stringer("actual", actual),
	)
}
