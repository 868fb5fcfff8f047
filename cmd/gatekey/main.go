package main

import (
	"fmt"
	"os"

	"gatekey/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "gatekey:", err)
		os.Exit(1)
	}
}
