package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"remotemem/process"
	"remotemem/remote_pointer"
	"remotemem/text_encoding"
)

var read = cli.Command{
	Name:      "read",
	Usage:     "read values at an address",
	ArgsUsage: "ADDRESS",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "offset", Usage: "signed offset added to the address"},
		cli.StringFlag{Name: "type", Value: "u64", Usage: "value type: i8..i64, u8..u64, f32, f64, ptr"},
		cli.IntFlag{Name: "count", Value: 1, Usage: "number of values"},
		cli.BoolFlag{Name: "hex", Usage: "hexdump the raw bytes instead, marking pointers into mapped memory"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 1, exactArgs); err != nil {
			return err
		}
		off, err := parseOffset(c.String("offset"))
		if err != nil {
			return err
		}
		vt, err := lookupType(c.String("type"))
		if err != nil {
			return err
		}
		count := c.Int("count")

		return withPointer(c, func(p remote_pointer.RemotePointer) error {
			if c.Bool("hex") {
				return dumpAt(p.Add(off), count*vt.size)
			}

			values, err := vt.read(p, off, count)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", p.Add(off), strings.Join(values, " "))
			return nil
		})
	},
}

var readString = cli.Command{
	Name:      "string",
	Usage:     "read terminated text at an address",
	ArgsUsage: "ADDRESS",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "offset", Usage: "signed offset added to the address"},
		cli.StringFlag{Name: "encoding", Usage: "utf-8, utf-16le, utf-16be, latin1 or windows-1252; defaults to the process encoding"},
		cli.IntFlag{Name: "max", Value: remote_pointer.DefaultMaxStringLength, Usage: "maximum number of bytes to read"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 1, exactArgs); err != nil {
			return err
		}
		off, err := parseOffset(c.String("offset"))
		if err != nil {
			return err
		}

		return withPointer(c, func(p remote_pointer.RemotePointer) error {
			enc, err := encodingFor(c.String("encoding"), p.Process())
			if err != nil {
				return err
			}
			s, err := p.ReadString(off, enc, c.Int("max"))
			if err != nil {
				return err
			}
			fmt.Printf("%s: %q\n", p.Add(off), s)
			return nil
		})
	},
}

var write = cli.Command{
	Name:      "write",
	Usage:     "write values at an address; writing a live process may crash it",
	ArgsUsage: "ADDRESS VALUE...",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "offset", Usage: "signed offset added to the address"},
		cli.StringFlag{Name: "type", Value: "u64", Usage: "value type: i8..i64, u8..u64, f32, f64, ptr or string"},
		cli.StringFlag{Name: "encoding", Usage: "text encoding for --type string; defaults to the process encoding"},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 2, minArgs); err != nil {
			return err
		}
		off, err := parseOffset(c.String("offset"))
		if err != nil {
			return err
		}
		values := c.Args().Tail()

		if c.String("type") == "string" {
			return withPointer(c, func(p remote_pointer.RemotePointer) error {
				enc, err := encodingFor(c.String("encoding"), p.Process())
				if err != nil {
					return err
				}
				return p.WriteString(off, strings.Join(values, " "), enc)
			})
		}

		vt, err := lookupType(c.String("type"))
		if err != nil {
			return err
		}
		return withPointer(c, func(p remote_pointer.RemotePointer) error {
			if err := vt.write(p, off, values); err != nil {
				return err
			}
			fmt.Printf("%s: wrote %d value(s)\n", p.Add(off), len(values))
			return nil
		})
	},
}

func encodingFor(name string, proc process.Process) (text_encoding.Encoding, error) {
	if name == "" {
		return process.DefaultEncoding(proc), nil
	}
	return text_encoding.Lookup(name)
}
