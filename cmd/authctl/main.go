// Command authctl registers, logs in and inspects accounts on an authhub
// server, keeping the signed-in user in a local session file.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
