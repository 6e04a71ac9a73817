package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "shopchat"}

	root.AddCommand(serveCMD(), migrateCMD(), indexCMD(), seedCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
