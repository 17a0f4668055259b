package main

import (
	"os"

	"github.com/dbsmedya/warehouse-to-go/cmd/warehouse-to-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
