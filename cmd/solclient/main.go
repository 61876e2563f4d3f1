package main

import (
	"os"

	"github.com/lugondev/go-solclient/cmd/solclient/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
