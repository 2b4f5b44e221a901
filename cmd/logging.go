package cmd

import (
	"github.com/geodex/spindle/log"
	"github.com/urfave/cli"
)

var logger = log.New("spindle")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
