package main

import (
	"log"
	"os"

	"github.com/urfave/cli"
)

const (
	usage = `rptr reads, writes and calls into the memory of another process
             through remote pointers`
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "rptr"
	app.Usage = usage
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "pid", Usage: "process ID to open"},
		cli.StringFlag{Name: "name", Usage: "open the single process with this name"},
		cli.StringFlag{Name: "from", Usage: "open a saved memory dump directory instead of a live process"},
	}
	app.Commands = []cli.Command{
		read,
		readString,
		write,
		protect,
		call,
		chain,
		regions,
		dump,
	}

	return app
}

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
