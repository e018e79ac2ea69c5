package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/digitalkrishi/officer-console/pkg/krishictl/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := cmd.NewRootCommand(cmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		return 1
	}
	return 0
}
