package main

import (
	"os"

	"github.com/crashhook/sdk-go/cmd/crashdemo/cmd"
)

var version = "dev"

func main() {
	cmd.SetVersion(version)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
