//go:build !unix

package cmd

import (
	"github.com/crashhook/sdk-go/fault"
)

func raiseSegv() error {
	return fault.ErrUnsupported
}
