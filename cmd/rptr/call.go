package main

import (
	"fmt"

	"github.com/urfave/cli"

	"remotemem/process"
	"remotemem/remote_pointer"
)

var call = cli.Command{
	Name:      "call",
	Usage:     "call a function in the target process",
	ArgsUsage: "ADDRESS [ARG...]",
	Description: `Arguments are 64-bit integers unless they contain a '.', which makes them
   float64. Prefix an argument with f32: for a float32, p: for a pointer or s: for
   a NUL terminated string copied into the target for the duration of the call.`,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "cc", Usage: "calling convention: default, cdecl, stdcall, fastcall, thiscall, sysv or win64"},
		cli.BoolFlag{Name: "float", Usage: "decode the result as float64"},
		cli.BoolFlag{Name: "async", Usage: "start the call and wait on its future"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 1, minArgs); err != nil {
			return err
		}
		cc, err := parseConvention(c.String("cc"))
		if err != nil {
			return err
		}
		args := make([]process.Argument, 0, c.NArg()-1)
		for _, s := range c.Args().Tail() {
			a, err := parseArgument(s)
			if err != nil {
				return err
			}
			args = append(args, a)
		}

		ctx, cancel := interruptContext()
		defer cancel()

		return withPointer(c, func(p remote_pointer.RemotePointer) error {
			if c.Bool("float") {
				var v float64
				var err error
				if c.Bool("async") {
					f := remote_pointer.ExecuteAsyncWith[float64](ctx, p, cc, args...)
					fmt.Printf("%s: call started\n", p)
					v, err = f.Wait(ctx)
				} else {
					v, err = remote_pointer.ExecuteWith[float64](ctx, p, cc, args...)
				}
				if err != nil {
					return err
				}
				fmt.Printf("%s(%v) = %v\n", p, args, v)
				return nil
			}

			var v process.ProcessMemoryAddress
			if c.Bool("async") {
				f := p.CallAsyncWith(ctx, cc, args...)
				fmt.Printf("%s: call started\n", p)
				v, err = f.Wait(ctx)
			} else {
				v, err = p.CallWith(ctx, cc, args...)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s(%v) = %s (%d)\n", p, args, v, int64(v))
			return nil
		})
	},
}
