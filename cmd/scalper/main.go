package main

import (
	"os"

	"github.com/akshayinamdar/LowVolatilityScalper/cmd/scalper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
