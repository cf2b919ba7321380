/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package engine wires the full analysis pipeline (spec §2's numbered
// stages) into a single Pipeline.Run call, and carries the ambient
// configuration a standalone invocation needs: firmware identity, the
// eval/ output root, and the Android major version the credential
// simulator gates on (spec §4.8 step 2).
package engine

import (
	"fmt"
	"strings"

	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/logging"
)

const (
	defaultEvalRoot = "eval"
	defaultLogLevel = "INFO"

	envFirmwareName = "MACRECON_FIRMWARE_NAME"
	envEvalRoot     = "MACRECON_EVAL_ROOT"
	envAndroidMajor = "MACRECON_ANDROID_MAJOR"
	envSkipFileless = "MACRECON_SKIP_FILELESS"
	envLogLevel     = "MACRECON_LOG_LEVEL"
)

// Config is macrecon's flat, file-free configuration surface. Modeled on
// gravwell/ingest/config.IngestConfig: exported fields, a Verify method
// that fills defaults and validates, MACRECON_* environment overrides via
// loadEnvVar* (ported from gravwell/ingest/config/env.go).
type Config struct {
	// FirmwareName keys every persisted artifact under EvalRoot (spec §6:
	// "eval/<firmware>/...").
	FirmwareName string
	EvalRoot     string

	// AndroidMajor gates the credential simulator's init supplementary
	// groups (spec §4.8 step 2, §8 S.B.2).
	AndroidMajor int

	// SkipFileless mirrors dataflow.Options.SkipFileless (spec §4.6.4):
	// discard an IPC object node whose discovered owner has no backing
	// file.
	SkipFileless bool

	LogLevel string
}

// Verify applies MACRECON_* environment overrides to any still-zero-valued
// field, fills remaining defaults, and validates the result.
func (c *Config) Verify() error {
	if err := loadEnvVarString(&c.FirmwareName, envFirmwareName, c.FirmwareName); err != nil {
		return err
	}
	if err := loadEnvVarString(&c.EvalRoot, envEvalRoot, c.EvalRoot); err != nil {
		return err
	}
	if err := loadEnvVarInt(&c.AndroidMajor, envAndroidMajor, c.AndroidMajor); err != nil {
		return err
	}
	if err := loadEnvVarBool(&c.SkipFileless, envSkipFileless, c.SkipFileless); err != nil {
		return err
	}
	if err := loadEnvVarString(&c.LogLevel, envLogLevel, c.LogLevel); err != nil {
		return err
	}

	if c.FirmwareName == "" {
		return errs.New(errs.MissingInput, "FirmwareName", fmt.Errorf("firmware name is required"))
	}
	if c.EvalRoot == "" {
		c.EvalRoot = defaultEvalRoot
	}
	if c.AndroidMajor <= 0 {
		return errs.New(errs.MalformedConfig, "AndroidMajor", fmt.Errorf("android major version must be positive"))
	}
	if c.AndroidMajor < 9 {
		return errs.New(errs.UnsupportedVersion, "AndroidMajor", fmt.Errorf("android major %d is below the supported floor of 9", c.AndroidMajor))
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if _, err := logging.LevelFromString(strings.ToUpper(c.LogLevel)); err != nil {
		return errs.New(errs.MalformedConfig, "LogLevel", err)
	}
	return nil
}
