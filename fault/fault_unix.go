//go:build unix

package fault

import (
	"os"
	"os/signal"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/crashhook/sdk-go/panics"
)

// raise converts the signal into a panic on the translating goroutine.
// Swapped in tests.
var raise = func() {
	defer panics.Catch()
	panic(Message)
}

// Install starts translating SIGSEGV and SIGBUS. Each call starts an
// independent translator; callers are expected to install once.
func Install() error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGSEGV, unix.SIGBUS)
	go translate(ch)
	return nil
}

func translate(ch chan os.Signal) {
	sig := <-ch
	signum := int(sig.(unix.Signal))

	// one line, written straight to the fd without going through os.Stderr.
	line := append([]byte("received signal "), strconv.Itoa(signum)...)
	_, _ = unix.Write(2, append(line, '\n'))

	// hand the signal back to its default disposition so a second
	// delivery kills the process instead of queueing behind this one.
	signal.Stop(ch)
	signal.Reset(sig)

	raise()
}
