package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/geodex/spindle/bvh"
	"github.com/geodex/spindle/bvh/input"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// Query an index built over a box file with a batch of query points and
// print the candidates for each point in CSR order.
func QueryPoints(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return fmt.Errorf("expected a box file and a query point file")
	}
	boxFile := ctx.Args().Get(0)
	pointFile := ctx.Args().Get(1)

	cfg, err := indexConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	// Load both input files concurrently.
	var (
		boxes    []float32
		numItems int
		x, y, z  []float32
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		boxes, numItems, err = input.ReadBoxes(boxFile, cfg.Dimension)
		return err
	})
	g.Go(func() error {
		var err error
		x, y, z, err = input.ReadPoints(pointFile, cfg.Dimension)
		return err
	})
	if err = g.Wait(); err != nil {
		logger.Error(err)
		return err
	}
	logger.Infof("loaded %d boxes and %d query points", numItems, len(x))

	index, err := bvh.New(boxes, numItems, cfg)
	if err != nil {
		logger.Error(err)
		return err
	}
	if err = index.Build(); err != nil {
		logger.Error(err)
		return err
	}

	numPoints := len(x)
	offsets := make([]int32, numPoints)
	counts := make([]int32, numPoints)

	start := time.Now()
	candidates, err := index.FindPoints(offsets, counts, x, y, z)
	if err != nil {
		logger.Error(err)
		return err
	}
	logger.Noticef("%d candidates for %d query points in %d ms",
		len(candidates), numPoints, time.Since(start).Nanoseconds()/1e6)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for i := 0; i < numPoints; i++ {
		fmt.Fprintf(out, "%d:", i)
		for _, c := range candidates[offsets[i] : offsets[i]+counts[i]] {
			fmt.Fprintf(out, " %d", c)
		}
		fmt.Fprintln(out)
	}

	return nil
}
