package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// ErrHelp is returned when help was requested and printed.
var ErrHelp = errors.New("help requested")

// Command is a node of the command tree. A command with Subcommands dispatches on
// the first positional argument; its own Flags are parsed before dispatch, so they
// behave as global flags for the whole subtree.
type Command struct {
	Name    string
	Aliases []string
	Summary string
	Usage   string

	// Flags returns a fresh flag set bound to the command's parameters.
	Flags func() *pflag.FlagSet

	// Before runs after this command's flags are parsed and before a subcommand runs.
	Before func() error

	Subcommands []*Command
	Run         func(args []string) error

	// Out receives help output. Defaults to os.Stderr.
	Out io.Writer

	parent *Command
}

func (c *Command) Execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.out())
		return ErrHelp
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		flagSet.SetInterspersed(len(c.Subcommands) == 0)
		if err := flagSet.Parse(args); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				c.PrintHelp(c.out())
				return ErrHelp
			}
			return fmt.Errorf("%s\n\nRun '%s --help' for usage", err.Error(), c.fullName())
		}
		args = flagSet.Args()
	}

	if len(c.Subcommands) > 0 {
		if len(args) == 0 {
			c.PrintHelp(c.out())
			return fmt.Errorf("%s: subcommand required", c.fullName())
		}
		if isHelpFlag(args[0]) {
			c.PrintHelp(c.out())
			return ErrHelp
		}
		sub := c.find(args[0])
		if sub == nil {
			return fmt.Errorf("unknown command %q\n\nRun '%s --help' for usage", args[0], c.fullName())
		}
		if c.Before != nil {
			if err := c.Before(); err != nil {
				return err
			}
		}
		sub.parent = c
		if sub.Out == nil {
			sub.Out = c.Out
		}
		return sub.Execute(args[1:])
	}

	if c.Run == nil {
		c.PrintHelp(c.out())
		return fmt.Errorf("no action defined for %q", c.fullName())
	}
	if c.Before != nil {
		if err := c.Before(); err != nil {
			return err
		}
	}
	return c.Run(args)
}

func (c *Command) find(name string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Name == name || slices.Contains(sub.Aliases, name) {
			return sub
		}
	}
	return nil
}

func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()
	if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	switch {
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s [flags] <command>\n", name)
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}
	if len(c.Aliases) > 0 {
		fmt.Fprintf(w, "\nAliases:\n  %s\n", strings.Join(append([]string{c.Name}, c.Aliases...), ", "))
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		var flagHelp strings.Builder
		flagSet := c.Flags()
		flagSet.SetOutput(&flagHelp)
		flagSet.PrintDefaults()
		if flagHelp.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", flagHelp.String())
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

func (c *Command) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stderr
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
