package config

import (
	"fmt"
	"io"
	"os"

	"github.com/ghodss/yaml"

	"go.ngs.io/regrid/internal/domain"
)

// FileVar names a variable in a NetCDF file.
type FileVar struct {
	File     string `json:"File"`
	Variable string `json:"Variable"`
}

// Job describes a batch regrid read from a YAML file.
type Job struct {
	Title          string   `json:"Title"`
	SourceGrid     string   `json:"SourceGrid"`
	TargetGrid     string   `json:"TargetGrid"`
	Input          FileVar  `json:"Input"`
	Output         FileVar  `json:"Output"`
	GridType       string   `json:"GridType"`
	Dim            int      `json:"Dim"`
	FillValue      float64  `json:"FillValue"`
	MissingValue   *float64 `json:"MissingValue"`
	DiscardAndFill bool     `json:"DiscardAndFill"`
	Use3D          bool     `json:"Use3D"`
	ConvertTo      string   `json:"ConvertTo"`
	MaskShelf      bool     `json:"MaskShelf"`
	Remask         string   `json:"Remask"`
}

// ReadJob reads and parses the job file at path.
func ReadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is user-supplied by design.
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var j Job
	if err := j.Parse(data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &j, nil
}

// Parse decodes YAML into the job and checks it.
func (j *Job) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, j); err != nil {
		return err
	}
	if j.GridType == "" {
		j.GridType = string(domain.GridT)
	}
	if j.Dim == 0 {
		j.Dim = 2
	}
	if j.Output.Variable == "" {
		j.Output.Variable = j.Input.Variable
	}
	return j.Validate()
}

// Validate checks that every file the job needs is named.
func (j *Job) Validate() error {
	switch {
	case j.SourceGrid == "" || j.TargetGrid == "":
		return fmt.Errorf("SourceGrid and TargetGrid are required")
	case j.Input.File == "" || j.Input.Variable == "":
		return fmt.Errorf("Input.File and Input.Variable are required")
	case j.Output.File == "":
		return fmt.Errorf("Output.File is required")
	}
	return nil
}

// Print writes a summary of the job.
func (j *Job) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\"%s\"\t\t= Title\n", j.Title)
	_, _ = fmt.Fprintf(w, "[%s] -> [%s]\t= Grids\n", j.SourceGrid, j.TargetGrid)
	_, _ = fmt.Fprintf(w, "[%s:%s]\t= Input\n", j.Input.File, j.Input.Variable)
	_, _ = fmt.Fprintf(w, "[%s:%s]\t= Output\n", j.Output.File, j.Output.Variable)
	_, _ = fmt.Fprintf(w, "[%s]\t\t\t= Grid Type\n", j.GridType)
	_, _ = fmt.Fprintf(w, "[%d]\t\t\t= Dim\n", j.Dim)
	_, _ = fmt.Fprintf(w, "%8.3f\t\t= FillValue\n", j.FillValue)
	_, _ = fmt.Fprintf(w, "[%t]\t\t\t= Discard And Fill\n", j.DiscardAndFill)
	if j.ConvertTo != "" {
		_, _ = fmt.Fprintf(w, "[%s]\t\t\t= Convert To\n", j.ConvertTo)
	}
	if j.Remask != "" {
		_, _ = fmt.Fprintf(w, "[%s]\t\t= Remask\n", j.Remask)
	}
}
