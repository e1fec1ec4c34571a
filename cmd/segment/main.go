package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"go-cell-segmenter/internal/analyzer"
	"go-cell-segmenter/internal/factory"
	"go-cell-segmenter/internal/ilastik"
	"go-cell-segmenter/internal/imagestack"
)

// segment runs one classification or import from the command line and prints
// a JSON summary of the labeling to stdout.
func main() {
	var (
		executable = flag.String("executable", os.Getenv("ILASTIK_EXECUTABLE"), "path to the ilastik headless runner (run_ilastik.sh)")
		project    = flag.String("project", os.Getenv("ILASTIK_PROJECT"), "path to the trained .ilp pixel classification project")
		input      = flag.String("input", "", "path to a .npy DAPI plane to classify")
		importH5   = flag.String("import", "", "path to an existing HDF5 probability export to label instead of classifying")
		output     = flag.String("output", "", "optional path to write the label image as .npy")
		labeler    = flag.String("labeler", "otsu", "labeling configuration: otsu, otsu-diagonal or midpoint")
	)
	flag.Parse()

	if (*input == "") == (*importH5 == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -input or -import is required")
		flag.Usage()
		os.Exit(2)
	}

	options, err := labelingOptions(*labeler)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid labeler")
	}

	var result *ilastik.Result
	switch {
	case *importH5 != "":
		result, err = ilastik.ImportResult(*importH5, options)
		if err != nil {
			logrus.WithError(err).Fatal("Import failed")
		}
	default:
		result, err = classify(*executable, *project, *input, options)
		if err != nil {
			logrus.WithError(err).Fatal("Classification failed")
		}
	}

	if *output != "" {
		if err := writeLabels(*output, result); err != nil {
			logrus.WithError(err).Fatal("Failed to write label image")
		}
	}

	stats := analyzer.ComputeLabelStats(result.Labeling.Labels)
	summary := map[string]interface{}{
		"shape":          result.Stack.Shape(),
		"threshold":      result.Labeling.Threshold,
		"num_components": result.Labeling.NumComponents,
		"stats":          stats,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		logrus.WithError(err).Fatal("Failed to encode summary")
	}
}

func labelingOptions(labeler string) (analyzer.LabelingOptions, error) {
	return factory.LabelingOptionsFor(factory.LabelerType(labeler))
}

func classify(executable, project, input string, options analyzer.LabelingOptions) (*ilastik.Result, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	stack, err := imagestack.ReadNPY(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	classifier, err := ilastik.NewClassifierWithOptions(executable, project, options)
	if err != nil {
		return nil, err
	}
	return classifier.Run(context.Background(), stack)
}

func writeLabels(path string, result *ilastik.Result) error {
	plane := make([][]float32, len(result.Labeling.Labels))
	for y, row := range result.Labeling.Labels {
		plane[y] = make([]float32, len(row))
		for x, label := range row {
			plane[y][x] = float32(label)
		}
	}

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
