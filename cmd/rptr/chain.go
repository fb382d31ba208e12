package main

import (
	"fmt"

	"github.com/urfave/cli"

	"remotemem/remote_pointer"
)

var chain = cli.Command{
	Name:      "chain",
	Usage:     "follow a pointer chain and print every hop",
	ArgsUsage: "ADDRESS OFFSET...",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "type", Usage: "also read a value of this type at the final address"},
		cli.IntFlag{Name: "dump", Usage: "also hexdump this many bytes at the final address"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 2, minArgs); err != nil {
			return err
		}
		offsets, err := parseOffsets(c.Args().Tail())
		if err != nil {
			return err
		}

		return withPointer(c, func(root remote_pointer.RemotePointer) error {
			final, hops, err := remote_pointer.NewChain(root, offsets...).ResolveTrace()
			for _, h := range hops {
				fmt.Println(h)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", final, final.Kind())

			if name := c.String("type"); name != "" {
				vt, err := lookupType(name)
				if err != nil {
					return err
				}
				values, err := vt.read(final, 0, 1)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", final, values[0])
			}
			if n := c.Int("dump"); n > 0 {
				return dumpAt(final, n)
			}
			return nil
		})
	},
}
