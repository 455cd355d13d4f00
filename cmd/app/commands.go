package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/jotlist/internal"
	"github.com/starford/jotlist/internal/noteservice"
)

// withService opens the configured store for one command and closes it
// afterwards. Logs go to stderr so stdout stays clean for output.
func withService(ctx context.Context, cmd *cli.Command, fn func(svc *noteservice.Service, out io.Writer) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	core, err := internal.OpenCore(cfg, internal.NewLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(core.Service, os.Stdout)
}

func intArgs(cmd *cli.Command, want int) ([]int, error) {
	args := cmd.Args().Slice()
	if want > 0 && len(args) != want {
		return nil, fmt.Errorf("expected %d position argument(s), got %d", want, len(args))
	}
	if len(args) == 0 {
		return nil, errors.New("at least one position is required")
	}
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", a)
		}
		out[i] = n
	}
	return out, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print every note in display order",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(svc *noteservice.Service, out io.Writer) error {
				res, err := svc.ListNotes(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, n := range res.Notes {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", n.Position, n.Title, formatDate(n.Date))
				}
				return tw.Flush()
			})
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a note at the top, or at --at with content",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Note title"},
			&cli.StringFlag{Name: "text", Usage: "Note body"},
			&cli.StringFlag{Name: "at", Usage: "Insert position (default top)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(svc *noteservice.Service, out io.Writer) error {
				if !cmd.IsSet("title") && !cmd.IsSet("text") && !cmd.IsSet("at") {
					n, err := svc.AddNote(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "added: %d\n", n.Position)
					return nil
				}
				pos := 0
				if cmd.IsSet("at") {
					p, err := strconv.Atoi(cmd.String("at"))
					if err != nil {
						return fmt.Errorf("invalid position %q", cmd.String("at"))
					}
					pos = p
				}
				n, err := svc.InsertNote(ctx, pos, cmd.String("title"), cmd.String("text"))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "added: %d\n", n.Position)
				return nil
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print one note",
		ArgsUsage: "POSITION",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			pos, err := intArgs(cmd, 1)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service, out io.Writer) error {
				n, err := svc.GetNote(ctx, pos[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n%s\n\n%s\n", n.Title, formatDate(n.Date), n.Text)
				return nil
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change the title or text of a note",
		ArgsUsage: "POSITION",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "New title (unchanged if omitted)"},
			&cli.StringFlag{Name: "text", Usage: "New body (unchanged if omitted)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			pos, err := intArgs(cmd, 1)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service, out io.Writer) error {
				cur, err := svc.GetNote(ctx, pos[0])
				if err != nil {
					return err
				}
				title, text := cur.Title, cur.Text
				if cmd.IsSet("title") {
					title = cmd.String("title")
				}
				if cmd.IsSet("text") {
					text = cmd.String("text")
				}
				_, saved, err := svc.ReplaceNote(ctx, pos[0], title, text, "")
				if err != nil {
					return err
				}
				if saved {
					fmt.Fprintf(out, "saved: %d\n", pos[0])
				} else {
					fmt.Fprintf(out, "unchanged: %d\n", pos[0])
				}
				return nil
			})
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove one or more notes",
		ArgsUsage: "POSITION...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			positions, err := intArgs(cmd, 0)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service, out io.Writer) error {
				res, err := svc.RemoveNotes(ctx, positions)
				fmt.Fprintf(out, "removed: %d of %d\n", res.Removed, res.Requested)
				return err
			})
		},
	}
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Move a note to another position",
		ArgsUsage: "FROM TO",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			pos, err := intArgs(cmd, 2)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(svc *noteservice.Service, out io.Writer) error {
				if err := svc.MoveNote(ctx, pos[0], pos[1]); err != nil {
					return err
				}
				fmt.Fprintf(out, "moved: %d -> %d\n", pos[0], pos[1])
				return nil
			})
		},
	}
}

func formatDate(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
