// Command cachectl hosts and inspects a tiered cache deployment.
package main

import (
	"os"

	"github.com/KOMKZ/go-yogan-cache/errcode"
)

func main() {
	errcode.LockGlobalRegistry()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
