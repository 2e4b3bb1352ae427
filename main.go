// The main package for the dvsvc-crawler executable.
package main

import (
	"github.com/JakeFAU/dvsvc-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
