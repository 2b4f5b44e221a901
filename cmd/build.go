package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/geodex/spindle/bvh"
	"github.com/geodex/spindle/bvh/input"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Build an index over a box file and print its statistics.
func BuildIndex(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one box file argument")
	}
	boxFile := ctx.Args().First()

	cfg, err := indexConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	boxes, numItems, err := input.ReadBoxes(boxFile, cfg.Dimension)
	if err != nil {
		logger.Error(err)
		return err
	}
	logger.Infof("loaded %d boxes from %s", numItems, boxFile)

	index, err := bvh.New(boxes, numItems, cfg)
	if err != nil {
		logger.Error(err)
		return err
	}

	start := time.Now()
	if err = index.Build(); err != nil {
		logger.Error(err)
		return err
	}
	logger.Noticef("built index over %d boxes in %d ms", numItems, time.Since(start).Nanoseconds()/1e6)

	stats, err := index.Stats()
	if err != nil {
		logger.Error(err)
		return err
	}
	fmt.Print(formatStats(index, stats))

	if vtkFile := ctx.String("vtk"); vtkFile != "" {
		if err = index.WriteVtkFile(vtkFile); err != nil {
			logger.Error(err)
			return err
		}
		logger.Noticef("wrote tree visualization to %s", vtkFile)
	}

	return nil
}

// Build a tabular representation of index statistics.
func formatStats(index *bvh.BVH, stats bvh.Stats) string {
	min, max, _ := index.Bounds()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"Dimension", fmt.Sprintf("%d", stats.Dimension)})
	table.Append([]string{"Items", fmt.Sprintf("%d", stats.NumItems)})
	table.Append([]string{"Inner nodes", fmt.Sprintf("%d", stats.InnerNodes)})
	table.Append([]string{"Leaves", fmt.Sprintf("%d", stats.Leaves)})
	table.Append([]string{"Max depth", fmt.Sprintf("%d", stats.MaxDepth)})
	table.Append([]string{"Scale factor", fmt.Sprintf("%g", stats.ScaleFactor)})
	table.Append([]string{"Backend", stats.Backend})
	table.Append([]string{"Bounds min", fmt.Sprintf("%v", min)})
	table.Append([]string{"Bounds max", fmt.Sprintf("%v", max)})
	table.Render()
	return buf.String()
}
