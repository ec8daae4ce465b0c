package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go.ngs.io/regrid/internal/adapter/store/ncfile"
)

var (
	gridDir     string
	gridDetails bool
)

var gridsCmd = &cobra.Command{
	Use:   "grids",
	Short: "List the grids available to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listGrids(os.Stdout, gridDir, gridDetails)
	},
}

func init() {
	gridsCmd.Flags().StringVar(&gridDir, "dir", "./data/grids", "grid directory")
	gridsCmd.Flags().BoolVar(&gridDetails, "details", false, "load each grid and print its size")
}

func listGrids(w io.Writer, dir string, details bool) error {
	s := ncfile.NewGridStore(dir)
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if !details {
			_, _ = fmt.Fprintln(w, name)
			continue
		}
		g, err := s.Load(name)
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%v\n", name, g)
	}
	return nil
}
