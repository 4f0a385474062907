package main

import (
	"os"

	"github.com/hazuki-dev/vrcwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
