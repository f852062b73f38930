// Robin reads C++ declarations into a program database and extracts
// documentation catalogs from it.
package main

import (
	"fmt"
	"os"

	"github.com/skn123/robin-sub001/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
