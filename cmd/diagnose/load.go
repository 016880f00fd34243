package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-pds3/pds3"
)

var loadCmd = &cobra.Command{
	Use:   "load <file> [object...]",
	Short: "Decode objects and report failures",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		names := args[1:]
		out := cmd.OutOrStdout()
		failed := 0
		report := func(name string, obj any, err error) error {
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("FAIL"), name, err)
				return nil
			}
			fmt.Fprintf(out, "%s %s %s\n", successStyle.Render("OK  "), name, mutedStyle.Render(summarize(obj)))
			return nil
		}

		if len(names) == 0 {
			err = pds3.WalkObjects(s, report)
		} else {
			for _, name := range names {
				obj, err := s.Get(name)
				if errors.Is(err, pds3.ErrNotFound) {
					return err
				}
				_ = report(name, obj, err)
			}
		}
		if err != nil {
			return err
		}

		printRecorded(out, s)
		if failed > 0 {
			return fmt.Errorf("%d of %d objects failed", failed, max(len(names), len(s.Keys())))
		}
		return nil
	},
}

func printRecorded(out io.Writer, s *pds3.Session) {
	errs := s.Errors()
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("Failure records"))
	for _, le := range errs {
		fmt.Fprintf(out, "  %s %s %s\n", keyStyle.Render(le.Object), warningStyle.Render(le.Step), le.Err)
		for k, v := range le.Params {
			fmt.Fprintf(out, "    %s: %v\n", mutedStyle.Render(k), v)
		}
	}
}

func summarize(obj any) string {
	switch o := obj.(type) {
	case *pds3.Image:
		return fmt.Sprintf("image %v %s", o.Shape(), o.Type)
	case *pds3.Table:
		return fmt.Sprintf("table %d rows x %d columns", o.Rows, len(o.Columns))
	case *pds3.Array:
		return fmt.Sprintf("array %v %s", o.Shape, o.Type)
	case *pds3.Text:
		return fmt.Sprintf("text %d bytes", len(o.Text))
	case *pds3.Opaque:
		return fmt.Sprintf("%d opaque bytes at %d", len(o.Data), o.Offset)
	case *pds3.Placeholder:
		return warningStyle.Render("placeholder: " + filepath.Base(o.File) + " not found")
	case *pds3.Section:
		return fmt.Sprintf("section %d %s", o.Section.Index, o.Section.Name)
	}
	return fmt.Sprintf("%T", obj)
}
