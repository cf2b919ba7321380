/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package engine

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Ported from gravwell/ingest/config/env.go's LoadEnvVar dispatch, cut down
// to the three field types Config actually has (string, int, bool): each
// loader only overrides its field when the field is still at its zero
// value, so an explicitly-set Config field always wins over the
// environment.
var errNoEnvArg = errors.New("no env arg")

func loadEnv(name string) (string, error) {
	if s, ok := os.LookupEnv(name); ok {
		return s, nil
	}
	if fp, ok := os.LookupEnv(name + "_FILE"); ok {
		return loadEnvFile(fp)
	}
	return "", errNoEnvArg
}

func loadEnvFile(name string) (string, error) {
	fin, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer fin.Close()
	s := bufio.NewScanner(fin)
	s.Scan()
	if err := s.Err(); err != nil {
		return "", err
	}
	r := s.Text()
	if r == "" {
		return "", fmt.Errorf("environment secret file %s is empty", name)
	}
	return r, nil
}

func loadEnvVarString(cnd *string, envName, defVal string) error {
	if len(*cnd) > 0 || envName == "" {
		return nil
	}
	v, err := loadEnv(envName)
	if err == errNoEnvArg {
		*cnd = defVal
		return nil
	} else if err != nil {
		return err
	}
	*cnd = v
	return nil
}

func loadEnvVarInt(cnd *int, envName string, defVal int) error {
	if *cnd != 0 || envName == "" {
		return nil
	}
	v, err := loadEnv(envName)
	if err == errNoEnvArg {
		*cnd = defVal
		return nil
	} else if err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", envName, err)
	}
	*cnd = n
	return nil
}

func loadEnvVarBool(cnd *bool, envName string, defVal bool) error {
	if *cnd || envName == "" {
		return nil
	}
	v, err := loadEnv(envName)
	if err == errNoEnvArg {
		*cnd = defVal
		return nil
	} else if err != nil {
		return err
	}
	b, err := parseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", envName, err)
	}
	*cnd = b
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized boolean value %q", v)
	}
}
