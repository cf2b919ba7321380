/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Command macrecon is the deliberately minimal CLI wrapper around the
// engine library (spec §6: "CLI surface is deliberately external: the
// core is invoked as a library"). It decodes a JSON manifest describing
// the out-of-scope firmware-extraction and SELinux-policy collaborators'
// output, runs the pipeline, and persists the result via report.Emit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/coldbrewsec/macrecon/engine"
	"github.com/coldbrewsec/macrecon/logging"
	"github.com/coldbrewsec/macrecon/report"
)

const (
	appName    = "macrecon"
	versionStr = "0.1.0"
)

var (
	manifestPath = flag.String("manifest", "", "Path to the JSON input manifest")
	firmwareName = flag.String("firmware-name", "", "Firmware identifier; artifacts land under eval/<firmware-name>")
	evalRoot     = flag.String("eval-root", "", "Output root for persisted artifacts (default: eval)")
	androidMajor = flag.Int("android-major", 0, "Firmware's Android major version")
	skipFileless = flag.Bool("skip-fileless", false, "Discard IPC object nodes with no backing file")
	logLevel     = flag.String("log-level", "", "Logging level (default: INFO)")
	ver          = flag.Bool("version", false, "Print the version and exit")

	lg *logging.Logger
)

func mainInit() {
	flag.Parse()
	if *ver {
		fmt.Fprintf(os.Stdout, "%s %s\n", appName, versionStr)
		os.Exit(0)
	}
	lg = logging.New(os.Stderr)
	lg.SetAppname(appName)
	if *manifestPath == "" {
		lg.Fatal("missing required -manifest flag")
	}
}

func main() {
	mainInit()

	in, err := loadManifest(*manifestPath)
	if err != nil {
		lg.Fatal("failed to load manifest", logging.KVErr(err))
	}

	cfg := engine.Config{
		FirmwareName: *firmwareName,
		EvalRoot:     *evalRoot,
		AndroidMajor: *androidMajor,
		SkipFileless: *skipFileless,
		LogLevel:     *logLevel,
	}
	if err := cfg.Verify(); err != nil {
		lg.Fatal("invalid configuration", logging.KVErr(err))
	}
	if err := lg.SetLevelString(cfg.LogLevel); err != nil {
		lg.Fatal("invalid log level", logging.KVErr(err))
	}

	p := engine.New(cfg, lg)
	res, err := p.Run(context.Background(), in)
	if err != nil {
		lg.Fatal("analysis failed", logging.KVErr(err))
	}

	if err := report.Emit(p.Config, in, res); err != nil {
		lg.Fatal("failed to persist artifacts", logging.KVErr(err))
	}

	lg.Info("analysis complete",
		logging.KV("firmware", p.Config.FirmwareName),
		logging.KV("warnings", res.Warnings.Len()))
}
