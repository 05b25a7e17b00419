package main

import (
	"os"

	"fs-expire/internal/cli"
	"fs-expire/internal/daemon"

	"github.com/kardianos/service"
)

func main() {
	svcConfig := &service.Config{
		Name:        "fsx",
		DisplayName: "fsx cache expiration",
		Description: "Keeps disk caches within their space budget by expiring old files.",
		Arguments:   []string{"run"},
	}

	d := &daemon.Daemon{}
	s, err := service.New(d, svcConfig)
	if err != nil {
		// No service manager on this system: the one-shot commands still work.
		s = nil
	}

	os.Exit(cli.Execute(cli.NewRootCmd(s, d)))
}
