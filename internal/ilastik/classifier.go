package ilastik

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"go-cell-segmenter/internal/analyzer"
	apperrors "go-cell-segmenter/internal/errors"
	"go-cell-segmenter/internal/imagestack"
	"go-cell-segmenter/internal/logger"
)

// Classifier runs a pre-trained ilastik pixel classifier in headless mode
// against a DAPI image stack and imports the resulting cell probabilities as
// a labeled ImageStack. It owns none of the modeling: the executable and the
// trained .ilp project are external, pre-installed artifacts.
type Classifier struct {
	executable string
	project    string
	options    analyzer.LabelingOptions
	log        *logrus.Entry
}

// Result bundles the labeled stack with the labeling details the reporting
// layer needs.
type Result struct {
	Stack    *imagestack.ImageStack
	Labeling analyzer.LabelResult
}

// NewClassifier validates that the headless runner exists and returns a
// classifier bound to it. The project path is intentionally not checked; a
// bad project surfaces when a run fails to produce an export.
func NewClassifier(executable, project string) (*Classifier, error) {
	return NewClassifierWithOptions(executable, project, analyzer.DefaultOptions())
}

// NewClassifierWithOptions is NewClassifier with custom labeling options.
func NewClassifierWithOptions(executable, project string, options analyzer.LabelingOptions) (*Classifier, error) {
	if _, err := os.Stat(executable); err != nil {
		return nil, apperrors.NewEnvironmentError(
			"cannot find the ilastik headless runner (run_ilastik.sh); check the configured path or install ilastik from https://www.ilastik.org/download.html", err)
	}
	return &Classifier{
		executable: executable,
		project:    project,
		options:    options,
		log:        logger.WithComponent("ilastik"),
	}, nil
}

// RunWithOptions is Run with per-call labeling options, used when a request
// overrides the configured labeler.
func (c *Classifier) RunWithOptions(ctx context.Context, stack *imagestack.ImageStack, options analyzer.LabelingOptions) (*Result, error) {
	override := *c
	override.options = options
	return override.Run(ctx, stack)
}

// Run serializes the stack's single DAPI plane to a temporary .npy file,
// invokes the classifier synchronously, and imports its HDF5 probability
// export. The input and output files are siblings of the temp directory and
// are left on disk after the run; only the directory itself is removed.
func (c *Classifier) Run(ctx context.Context, stack *imagestack.ImageStack) (*Result, error) {
	plane, err := stack.SqueezeYX()
	if err != nil {
		return nil, apperrors.NewValidationError("stack does not squeeze to a single DAPI plane", err)
	}

	tempDir, err := os.MkdirTemp("", "dapi-")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create temp directory", err)
	}
	defer os.RemoveAll(tempDir)

	inputFile := tempDir + "_dapi.npy"
	outputFile := tempDir + "_dapi_Probabilities.h5"

	if err := writePlaneFile(inputFile, plane); err != nil {
		return nil, apperrors.NewInternalError("failed to write classifier input", err)
	}

	cmd := exec.CommandContext(ctx, c.executable,
		"--headless",
		"--project", c.project,
		"--output_filename_format", outputFile,
		inputFile,
	)
	// The environment is cleared on purpose: the ilastik launcher picks up
	// inherited virtualenv variables and breaks.
	cmd.Env = []string{}

	c.log.WithFields(logrus.Fields{
		"project": filepath.Base(c.project),
		"input":   inputFile,
	}).Info("Running headless pixel classification")

	if err := cmd.Run(); err != nil {
		// The exit status is not treated as authoritative; a failed run
		// surfaces as a missing export when the HDF5 open below fails.
		c.log.WithError(err).Warn("ilastik exited with an error")
	}

	return importResult(outputFile, c.options)
}

// ImportProbabilities imports an already-produced ilastik HDF5 export,
// skipping invocation entirely. Same file, same labels: the pipeline is a
// pure function of the export's contents.
func ImportProbabilities(path string) (*imagestack.ImageStack, error) {
	result, err := ImportResult(path, analyzer.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return result.Stack, nil
}

// ImportResult is ImportProbabilities with custom labeling options and the
// full labeling detail in the return value.
func ImportResult(path string, options analyzer.LabelingOptions) (*Result, error) {
	return importResult(path, options)
}

func writePlaneFile(path string, plane [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := imagestack.WritePlaneNPY(f, plane); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
