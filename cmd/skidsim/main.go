// Command skidsim runs directed scenarios on a cycle-accurate skid buffer
// model.
package main

import (
	"github.com/sarchlab/skidbuffer/cmd/skidsim/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	atexit.Exit(cmd.Execute())
}
