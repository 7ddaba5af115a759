// Command dfusim is a host-side harness for the DFU bootloader core: it
// wires a simulated flash device and clock to a supervisor.Supervisor and
// replays a firmware image through a full session, without needing real
// hardware.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("dfusim failed")
		os.Exit(1)
	}
}
