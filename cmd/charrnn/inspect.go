package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/charrnn/internal/checkpoint"
)

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of an .mcf model container",
		Flags: []cli.Flag{
			modelFlag(),
			&cli.BoolFlag{Name: "json", Usage: "print the description as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := resolveModelPath(modelPath, LoadConfig())
			if err != nil {
				return err
			}
			d, err := checkpoint.Describe(path)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			return printDescription(w, path, d)
		},
	}
}

func printDescription(w io.Writer, path string, d *checkpoint.Description) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "file:\t%s\n", path)
	_, _ = fmt.Fprintf(tw, "format:\tMCF %d.%d\n", d.Major, d.Minor)
	_, _ = fmt.Fprintf(tw, "size:\t%d bytes\n", d.FileSize)
	_, _ = fmt.Fprintf(tw, "flags:\t0x%x\n", d.Flags)
	_, _ = fmt.Fprintf(tw, "network:\t%d -> %d x %d -> %d\n", d.Config.InputSize, d.Config.Layers, d.Config.HiddenSize, d.Config.OutputSize)
	_, _ = fmt.Fprintf(tw, "vocabulary:\t%d %q\n", len([]rune(d.Vocabulary)), d.Vocabulary)
	if d.Meta.Charset != "" {
		_, _ = fmt.Fprintf(tw, "charset:\t%s\n", d.Meta.Charset)
	}
	_, _ = fmt.Fprintf(tw, "trained:\t%d epochs, %d iterations, score %.4f\n", d.Meta.Epochs, d.Meta.Iterations, d.Meta.Score)
	if !d.Meta.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(tw, "created:\t%s\n", d.Meta.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if d.Meta.Version != "" {
		_, _ = fmt.Fprintf(tw, "built by:\t%s\n", d.Meta.Version)
	}

	_, _ = fmt.Fprintln(tw, "\nsections:")
	_, _ = fmt.Fprintln(tw, "  type\tversion\toffset\tsize")
	for _, s := range d.Sections {
		_, _ = fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\n", s.Type, s.Version, s.Offset, s.Size)
	}

	_, _ = fmt.Fprintln(tw, "\ntensors:")
	_, _ = fmt.Fprintln(tw, "  name\tdtype\tshape\tbytes")
	var total uint64
	for _, t := range d.Tensors {
		dims := make([]string, len(t.Shape))
		for i, s := range t.Shape {
			dims[i] = fmt.Sprint(s)
		}
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t[%s]\t%d\n", t.Name, t.DType, strings.Join(dims, " x "), t.Bytes)
		total += t.Bytes
	}
	_, _ = fmt.Fprintf(tw, "  total\t\t\t%d\n", total)
	return tw.Flush()
}
