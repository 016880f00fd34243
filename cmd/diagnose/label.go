package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-pds3/internal/label"
	"github.com/robert-malhotra/go-pds3/pds3"
)

var labelCmd = &cobra.Command{
	Use:   "label <file>",
	Short: "Print the parsed label tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(s.LabelPath()))
		for _, w := range s.Warnings() {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("  line %d: %s", w.Line, w.Msg)))
		}
		return pds3.Walk(s, func(p string, n *label.Node) error {
			indent := strings.Repeat("  ", strings.Count(p, "/"))
			if n.IsBlock() {
				fmt.Fprintf(out, "%s%s %s\n", indent, mutedStyle.Render(strings.ToUpper(n.Kind.String())), blockStyle.Render(n.Key))
				return nil
			}
			fmt.Fprintf(out, "%s%s = %s\n", indent, keyStyle.Render(n.Key), n.Value.String())
			return nil
		})
	},
}
