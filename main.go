package main

import (
	"os"

	"github.com/abhisek/campus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
