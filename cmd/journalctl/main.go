package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var Version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = "journalctl"
	app.Usage = "Administrative commands for the journal backend"
	app.Version = Version

	app.Commands = []cli.Command{
		migrateCMD,
		reconcileCMD,
		requeueCMD,
		gcCMD,
		tokenCMD,
		linkCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
