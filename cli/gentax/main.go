package main

import (
	"os"

	gentaxcmder "github.com/gentaxai/gentax/cmd/gentax"
)

func main() {
	cmd := gentaxcmder.NewGentaxCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
