package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.ngs.io/regrid/internal/adapter/store"
	"go.ngs.io/regrid/internal/adapter/store/ncfile"
	"go.ngs.io/regrid/internal/config"
	"go.ngs.io/regrid/internal/domain"
	"go.ngs.io/regrid/internal/usecase"
)

var jobFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch regrid job described by a YAML file",
	Long: `Run reads the source and target grids and the input variable named in
the job file, regrids every time level and writes the result to the output
file. An input with one more dimension than Dim is treated as time-dependent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := config.ReadJob(jobFile)
		if err != nil {
			return err
		}
		job.Print(os.Stdout)
		return runJob(job, log)
	},
}

func init() {
	runCmd.Flags().StringVar(&jobFile, "job", "./job.yaml", "job file location")
}

// jobGrids serves the two grids of a job.
type jobGrids struct {
	source, target *domain.Grid
}

func (g jobGrids) Load(name string) (*domain.Grid, error) {
	switch name {
	case "source":
		return g.source, nil
	case "target":
		return g.target, nil
	}
	return nil, fmt.Errorf("grid %s: %w", name, store.ErrNotFound)
}

func (g jobGrids) List() ([]string, error) { return []string{"source", "target"}, nil }

// runJob executes job and writes its output file.
func runJob(job *config.Job, log logrus.FieldLogger) error {
	src, err := ncfile.ReadGrid(job.SourceGrid, ncfile.DefaultGridVars())
	if err != nil {
		return fmt.Errorf("failed to read source grid: %w", err)
	}
	dst, err := ncfile.ReadGrid(job.TargetGrid, ncfile.DefaultGridVars())
	if err != nil {
		return fmt.Errorf("failed to read target grid: %w", err)
	}
	missing := domain.DefaultMissingValue
	if job.MissingValue != nil {
		missing = *job.MissingValue
	}
	in, err := ncfile.ReadField(job.Input.File, job.Input.Variable, missing)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	log.Infof("Source %v, target %v, input %v", src, dst, in.Shape())

	shape := in.Shape()
	var nt, level int
	switch len(shape) {
	case job.Dim:
		nt, level = 1, len(in.Data.Elements)
	case job.Dim + 1:
		nt, level = shape[0], len(in.Data.Elements)/shape[0]
	default:
		return fmt.Errorf("input %s has shape %v, expected %d or %d dimensions", job.Input.Variable, shape, job.Dim, job.Dim+1)
	}
	levelShape := shape[len(shape)-job.Dim:]

	uc := usecase.NewRegridUseCase(jobGrids{src, dst}, log, usecase.Options{
		MissingValue: missing,
		Workers:      runtime.GOMAXPROCS(0),
	})

	var outShape []int
	var values []float64
	for t := 0; t < nt; t++ {
		res, err := uc.Regrid(usecase.RegridRequest{
			Source: "source",
			Target: "target",
			Field: usecase.FieldInput{
				Shape:        levelShape,
				Values:       in.Data.Elements[t*level : (t+1)*level],
				MissingValue: &missing,
			},
			Dim:            job.Dim,
			GridType:       job.GridType,
			FillValue:      job.FillValue,
			DiscardAndFill: job.DiscardAndFill,
			Use3D:          job.Use3D,
			ConvertTo:      job.ConvertTo,
			MaskShelf:      job.MaskShelf,
			Remask:         job.Remask,
		})
		if err != nil {
			return fmt.Errorf("failed to regrid time level %d: %w", t, err)
		}
		outShape = res.Shape
		values = append(values, res.Values...)
		log.Debugf("Time level %d: %d missing", t, res.NumMissing)
	}

	axes, err := outputAxes(dst, job)
	if err != nil {
		return err
	}
	if len(shape) == job.Dim+1 {
		outShape = append([]int{nt}, outShape...)
		axes = append([]ncfile.Axis{{Name: "time"}}, axes...)
	}
	out, err := domain.FieldFromValues(outShape, values, nil, &missing)
	if err != nil {
		return err
	}
	if err := ncfile.WriteField(job.Output.File, job.Output.Variable, out, axes); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Infof("Wrote %s to %s", job.Output.Variable, job.Output.File)
	return nil
}

// outputAxes returns the coordinate axes of the result on the target grid.
func outputAxes(dst *domain.Grid, job *config.Job) ([]ncfile.Axis, error) {
	gt := job.GridType
	if job.ConvertTo != "" {
		gt = job.ConvertTo
	}
	gtype, err := domain.ParseGridType(gt)
	if err != nil {
		return nil, err
	}
	lon, lat, err := dst.LonLat(gtype)
	if err != nil {
		return nil, err
	}
	axes := []ncfile.Axis{{Name: "lat", Values: lat}, {Name: "lon", Values: lon}}
	if job.Dim == 3 {
		axes = append([]ncfile.Axis{{Name: "z", Values: dst.Z}}, axes...)
	}
	return axes, nil
}
