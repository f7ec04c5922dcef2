package main

import (
	reaper "github.com/ramr/go-reaper"

	"github.com/dnstrail/dnstrail/cmd"
)

func main() {
	// zombie reaping is needed when running as pid 1 in a container
	go reaper.Reap()

	cmd.Execute()
}
