package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var objectsCmd = &cobra.Command{
	Use:   "objects <file>",
	Short: "List the objects a label points to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-24s %-8s %-10s %-20s %10s\n", "OBJECT", "CATEGORY", "INFERENCE", "FILE", "OFFSET")
		for _, name := range s.Keys() {
			d, err := s.Descriptor(name)
			if err != nil {
				return err
			}
			offset := "?"
			if d.Pointer.Offset >= 0 {
				offset = strconv.FormatInt(d.Pointer.Offset, 10)
			}
			file := filepath.Base(d.File)
			switch {
			case d.Missing:
				file = errorStyle.Render(d.Pointer.File + " (missing)")
			case d.Ignored:
				file = mutedStyle.Render(file + " (ignored)")
			}
			inference := d.Inference.String()
			if d.Inference.Heuristic() {
				inference = warningStyle.Render(inference)
			}
			fmt.Fprintf(out, "%-24s %-8s %-10s %-20s %10s\n", keyStyle.Render(name), d.Category, inference, file, offset)
			if aliases := s.Aliases(name); len(aliases) > 0 {
				fmt.Fprintf(out, "  %s %v\n", mutedStyle.Render("shares bytes with"), aliases)
			}
		}
		return nil
	},
}
