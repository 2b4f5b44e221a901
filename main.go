package main

import (
	"os"

	"github.com/geodex/spindle/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "spindle"
	app.Usage = "build and query bounding volume hierarchies"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build an index over a box file and print its statistics",
			Description: `
Load axis-aligned bounding boxes from a text file (one box per line, min
corner then max corner per axis), build the hierarchy and print a summary of
the resulting tree. The tree structure can optionally be dumped to a VTK
file for visualization.`,
			ArgsUsage: "boxes.txt",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "vtk",
					Usage: "write the tree structure to this VTK file",
				},
			}, cmd.IndexFlags...),
			Action: cmd.BuildIndex,
		},
		{
			Name:  "query",
			Usage: "find the candidate boxes containing each query point",
			Description: `
Build an index over a box file and run a batch point query against it. Each
output line lists a query point's index followed by the indices of the boxes
that may contain it.`,
			ArgsUsage: "boxes.txt points.txt",
			Flags:     cmd.IndexFlags,
			Action:    cmd.QueryPoints,
		},
	}

	app.Run(os.Args)
}
