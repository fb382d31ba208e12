package main

import (
	"fmt"

	"github.com/urfave/cli"

	"remotemem/memory_protection"
	"remotemem/process"
	"remotemem/remote_pointer"
)

var protect = cli.Command{
	Name:      "protect",
	Usage:     "change the protection of a range and print what it was",
	ArgsUsage: "ADDRESS",
	Flags: []cli.Flag{
		cli.UintFlag{Name: "size", Value: 1, Usage: "length of the range in bytes"},
		cli.StringFlag{Name: "perms", Value: "rwx", Usage: "new protection, e.g. r--, rw- or r-x"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 1, exactArgs); err != nil {
			return err
		}
		flags := process.ParsePerms(c.String("perms"))
		size := process.ProcessMemorySize(c.Uint("size"))

		return withPointer(c, func(p remote_pointer.RemotePointer) error {
			// the change outlives the command
			scope, err := p.ChangeProtection(size, flags, memory_protection.ReleaseNever)
			if err != nil {
				return err
			}
			defer scope.Release()

			for _, r := range scope.Previous() {
				fmt.Printf("%s-%s %s -> %s\n", r.Address, r.End(), r.Flags, flags)
			}
			return nil
		})
	},
}
