// The main package for the magpied executable.
package main

import (
	"github.com/magpie-engine/magpie/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
