package cmd

import (
	"fmt"

	"github.com/geodex/spindle/bvh"
	"github.com/geodex/spindle/exec"
	"github.com/urfave/cli"
)

// IndexFlags are the flags shared by every command that builds an index.
var IndexFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "dimension, d",
		Value: 3,
		Usage: "box dimension (2 or 3)",
	},
	cli.Float64Flag{
		Name:  "scale-factor",
		Value: bvh.DefaultScaleFactor,
		Usage: "multiplicative leaf box expansion",
	},
	cli.StringFlag{
		Name:  "backend",
		Value: "parallel",
		Usage: "execution backend (sequential or parallel)",
	},
	cli.IntFlag{
		Name:  "workers",
		Value: 0,
		Usage: "worker count for the parallel backend; 0 selects GOMAXPROCS",
	},
}

// indexConfig assembles a bvh.Config from the shared command flags.
func indexConfig(ctx *cli.Context) (bvh.Config, error) {
	var ex exec.Executor
	switch backend := ctx.String("backend"); backend {
	case "sequential":
		ex = exec.NewSequential()
	case "parallel":
		ex = exec.NewParallel(ctx.Int("workers"))
	default:
		return bvh.Config{}, fmt.Errorf("unsupported backend %q", backend)
	}

	return bvh.Config{
		Dimension:   ctx.Int("dimension"),
		ScaleFactor: float32(ctx.Float64("scale-factor")),
		Executor:    ex,
	}, nil
}
