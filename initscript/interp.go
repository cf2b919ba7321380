/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package initscript

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/coldbrewsec/macrecon/aid"
	"github.com/coldbrewsec/macrecon/errs"
	"github.com/coldbrewsec/macrecon/logging"
	"github.com/coldbrewsec/macrecon/propstore"
	"github.com/coldbrewsec/macrecon/vfs"
)

// Interpreter simulates the staged Android boot event loop against a VFS
// and a property store. One Interpreter corresponds to the AndroidInit of
// original_source/android/init.py, generalized from its single-file,
// imports-disabled reading into one that actually follows `import`
// statements (spec §4.2 names import_stmt as meaningful grammar; the
// python source's import loop is dead code -- `for imp in pending_imports:
// pass` -- which we do not carry forward).
type Interpreter struct {
	VFS   *vfs.VFS
	Props *propstore.Store

	prog    *Program
	loaded  map[string]bool
	queue   []int
	inQueue []bool

	warnings *errs.Warnings
	log      *logging.Logger
}

func New(v *vfs.VFS, props *propstore.Store, log *logging.Logger) *Interpreter {
	return &Interpreter{
		VFS:      v,
		Props:    props,
		prog:     NewProgram(),
		loaded:   make(map[string]bool),
		warnings: &errs.Warnings{},
		log:      log,
	}
}

func (in *Interpreter) Warnings() *errs.Warnings { return in.warnings }
func (in *Interpreter) Services() map[string]*Service { return in.prog.Services }
func (in *Interpreter) Actions() []*Action { return in.prog.Actions }

// Load reads the .rc file at the given VFS path, parses it, merges it into
// the running Program, and recursively loads any files it imports. A path
// already loaded is skipped (guards against import cycles).
func (in *Interpreter) Load(path string) error {
	if in.loaded[path] {
		return nil
	}
	in.loaded[path] = true

	data, err := in.readVFSFile(path)
	if err != nil {
		return errs.New(errs.MissingInput, path, err)
	}

	before := len(in.prog.Imports)
	if err := parseInto(in.prog, data, in.warnings); err != nil {
		return err
	}
	pending := append([]string(nil), in.prog.Imports[before:]...)
	for _, imp := range pending {
		if err := in.Load(imp); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) readVFSFile(path string) (string, error) {
	fp, ok := in.VFS.Get(path)
	if !ok || fp.OriginalPath == "" {
		return "", errors.New("no host-backed content for " + path)
	}
	data, err := os.ReadFile(fp.OriginalPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Boot runs the staged boot state machine: early-init, init, late-init in
// order, then drains the action queue to empty. Spec §4.2.
func (in *Interpreter) Boot() error {
	for _, stage := range []string{"early-init", "init", "late-init"} {
		in.Trigger(stage)
	}
	return in.drain()
}

// Trigger enqueues every action whose condition fires for stage against
// the current property store, skipping any action already in the queue
// (spec §4.2: "set semantics on queue membership").
func (in *Interpreter) Trigger(stage string) {
	if in.inQueue == nil {
		in.inQueue = make([]bool, len(in.prog.Actions))
	}
	for len(in.inQueue) < len(in.prog.Actions) {
		in.inQueue = append(in.inQueue, false)
	}
	for i, a := range in.prog.Actions {
		if in.inQueue[i] {
			continue
		}
		if fires(a, stage, in.Props) {
			in.inQueue[i] = true
			in.queue = append(in.queue, i)
		}
	}
}

// fires implements spec §4.2's trigger condition: "(stage-trigger equals
// incoming stage, OR incoming stage is boot and no stage-trigger exists)
// AND all property constraints are satisfied".
func fires(a *Action, stage string, props *propstore.Store) bool {
	stageTok := ""
	hasStage := false
	for _, t := range a.Triggers {
		if !t.IsProp {
			stageTok = t.Stage
			hasStage = true
			break
		}
	}
	stageOK := (hasStage && stageTok == stage) || (!hasStage && stage == "boot")
	if !stageOK {
		return false
	}
	for _, t := range a.Triggers {
		if !t.IsProp {
			continue
		}
		if t.PropVal == "*" {
			if _, ok := props.Get(t.PropKey); !ok {
				return false
			}
			continue
		}
		v, ok := props.Get(t.PropKey)
		if !ok || v != t.PropVal {
			return false
		}
	}
	return true
}

// drain executes queued actions' commands FIFO until the queue is empty. A
// command's own `trigger` may append further actions; set semantics means
// a re-triggered action that is still queued is not duplicated, but one
// already dequeued may be re-queued by a later trigger.
func (in *Interpreter) drain() error {
	for len(in.queue) > 0 {
		idx := in.queue[0]
		in.queue = in.queue[1:]
		in.inQueue[idx] = false
		for _, cmd := range in.prog.Actions[idx].Commands {
			if err := in.exec(cmd); err != nil {
				return err
			}
		}
	}
	return nil
}

// exec runs one action-body command. Spec §4.2's command table; setprop,
// write, copy, rm, rmdir are declared no-ops (the last five of that list).
// restorecon/restorecon_recursive are a supplemented no-op pair (not named
// in spec §4.2, but silently ignored by original_source/android/init.py).
func (in *Interpreter) exec(cmd Command) error {
	switch cmd.Name {
	case "trigger":
		if len(cmd.Args) == 1 {
			in.Trigger(cmd.Args[0])
		}
	case "mkdir":
		in.execMkdir(cmd.Args)
	case "chown":
		in.execChown(cmd.Args)
	case "chmod":
		in.execChmod(cmd.Args)
	case "mount":
		in.execMount(cmd.Args)
	case "mount_all":
		in.execMountAll(cmd.Args)
	case "enable":
		if len(cmd.Args) == 1 {
			if svc, ok := in.prog.Services[cmd.Args[0]]; ok {
				svc.Disabled = false
			}
		}
	case "setprop", "write", "copy", "rm", "rmdir", "restorecon", "restorecon_recursive":
		// declared no-ops, spec §4.2 (restorecon family supplemented from
		// original_source/android/init.py).
	default:
		return errs.New(errs.MalformedConfig, cmd.Name, errors.New("unknown init command"))
	}
	return nil
}

func (in *Interpreter) execMkdir(args []string) {
	if len(args) == 0 {
		return
	}
	path := args[0]
	mode := uint32(0755)
	if len(args) > 1 {
		if m, err := strconv.ParseUint(args[1], 8, 32); err == nil {
			mode = uint32(m)
		}
	}
	uid, gid := 0, 0
	if fp, ok := in.VFS.Get(path); ok {
		uid, gid = fp.UID, fp.GID
	}
	if len(args) > 2 {
		if id, ok := aid.ByName(args[2]); ok {
			uid = id
		}
	}
	if len(args) > 3 {
		if id, ok := aid.ByName(args[3]); ok {
			gid = id
		}
	}
	in.VFS.Mkdir(path, uid, gid, mode)
}

// lazyCreate materializes a pseudo file (device/sysfs node not present in
// the VFS) so chown/chmod have something to mutate. Spec §4.2: "lazy-
// creates device/sysfs pseudo files"; spec §8 S5 fixes the resulting mode
// at 0644|S_IFREG.
func (in *Interpreter) lazyCreate(path string) {
	if _, ok := in.VFS.Get(path); ok {
		return
	}
	in.VFS.AddOrUpdate(path, vfs.FilePolicy{Mode: vfs.ModeReg | 0644})
}

func (in *Interpreter) execChown(args []string) {
	if len(args) != 3 {
		return
	}
	u, g, path := args[0], args[1], args[2]
	in.lazyCreate(path)
	uid, uok := aid.ByName(u)
	gid, gok := aid.ByName(g)
	if !uok || !gok {
		return
	}
	in.VFS.Chown(path, uid, gid)
}

func (in *Interpreter) execChmod(args []string) {
	if len(args) != 2 {
		return
	}
	modeStr, path := args[0], args[1]
	mode, err := strconv.ParseUint(modeStr, 8, 32)
	if err != nil {
		return
	}
	in.lazyCreate(path)
	in.VFS.Chmod(path, uint32(mode))
}

func (in *Interpreter) execMount(args []string) {
	if len(args) < 3 {
		return
	}
	fstype, device, path := args[0], args[1], args[2]
	var opts []string
	if len(args) > 3 {
		opts = strings.Split(args[3], ",")
	}
	in.VFS.AddMountPoint(path, fstype, device, opts)
}

func (in *Interpreter) execMountAll(args []string) {
	if len(args) == 0 {
		return
	}
	fstabPath := args[0]
	late := len(args) > 1 && args[1] == "--late"

	data, err := in.readVFSFile(fstabPath)
	if err != nil {
		in.warnings.Add(errs.MissingInput, fstabPath, "%v", err)
		return
	}
	entries := ParseFstab(data)
	var selected []FstabEntry
	if late {
		selected = SelectLate(entries)
	} else {
		selected = SelectEarly(entries)
	}
	for _, e := range selected {
		in.VFS.AddMountPoint(e.Path, e.FSType, e.Device, e.Opts)
	}
}
