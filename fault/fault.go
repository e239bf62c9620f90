// Package fault translates fatal memory-access signals into panics, so
// hardware faults travel through the same panic hook as language panics.
//
// The Go runtime already turns faults caused by Go code into run-time
// panics (see panics.Guard). What remains are SIGSEGV and SIGBUS that
// arrive asynchronously, from kill(2) or from foreign code sharing the
// process. Install catches those.
package fault

import "errors"

// Message is the panic payload raised for a translated signal.
const Message = "Segmentation fault!"

var ErrUnsupported = errors.New("fault: signal translation unsupported on this platform")
