// Command merkledrop builds airdrop distributions and inspects claim state.
package main

import (
	"errors"
	"os"

	"github.com/datatrails/go-datatrails-common/logger"
	flags "github.com/jessevdk/go-flags"
)

type options struct {
	LogLevel string `long:"log-level" default:"INFO" description:"log level (DEBUG, INFO, NOOP)"`
}

var opts options

func serviceLog() logger.Logger {
	logger.New(opts.LogLevel)
	return logger.Sugar.WithServiceName("merkledrop")
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = false

	mustAdd := func(name, short, long string, data any) {
		if _, err := parser.AddCommand(name, short, long, data); err != nil {
			panic(err)
		}
	}
	mustAdd("build", "build a distribution",
		"Read index,recipient,amount allocations and write the proof file. The root and total are printed.",
		&buildCommand{})
	mustAdd("verify", "verify a proof from a proof file",
		"Re-verify the proof for one index against the proof file root.",
		&verifyCommand{})
	mustAdd("sign", "sign a manifest",
		"Sign the manifest written by build with an ECDSA P-256 key, producing the COSE_Sign1 message epochs are initialized from.",
		&signCommand{})
	mustAdd("status", "show epoch and claim state",
		"Print the epoch record and claim state held in a claim database.",
		&statusCommand{})

	_, err := parser.Parse()
	defer logger.OnExit()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
