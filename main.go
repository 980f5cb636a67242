package main

import (
	"fmt"
	"os"

	"github.com/navahdam/pktwatch/cmd"
)

func main() {
	if err := cmd.App.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
