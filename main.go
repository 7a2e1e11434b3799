package main

import (
	"host-provisioner/cmd"
)

// main delegates to cmd.Execute, which parses the command line and runs the pipeline.
func main() {
	cmd.Execute()
}
