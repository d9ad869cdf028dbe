package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/blockworker/cmd"
	"github.com/mezonai/blockworker/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("WORKER CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
