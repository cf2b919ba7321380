/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

package initscript

import (
	"strconv"
	"strings"

	"github.com/coldbrewsec/macrecon/aid"
	"github.com/coldbrewsec/macrecon/errs"
)

// NewProgram returns an empty Program ready for parseInto to populate.
func NewProgram() *Program {
	return &Program{Services: make(map[string]*Service)}
}

// parseInto lexes data and merges the result into p: new services are
// added (an existing name wins, mirroring original_source/android/init.py's
// `_add_service`: "if name in self.services: return"); actions are
// appended; import targets are appended to p.Imports for the interpreter
// to resolve.
func parseInto(p *Program, data string, warnings *errs.Warnings) error {
	for _, sec := range lex(data) {
		header := sec[0]
		action := header[0]
		args := header[1:]
		body := sec[1:]

		switch action {
		case "import":
			if len(args) != 1 {
				warnings.Add(errs.MalformedConfig, "import", "expected exactly one path, got %v", args)
				continue
			}
			p.Imports = append(p.Imports, args[0])
		case "service":
			if len(args) < 2 {
				warnings.Add(errs.MalformedConfig, "service", "expected a name and at least one argument")
				continue
			}
			name := args[0]
			svc := &Service{Name: name, Args: args[1:]}
			for _, opt := range body {
				if len(opt) == 0 {
					continue
				}
				applyOption(svc, opt[0], opt[1:])
			}
			if _, exists := p.Services[name]; !exists {
				p.Services[name] = svc
			}
		case "on":
			triggers, err := parseTriggers(args)
			if err != nil {
				warnings.Add(errs.MalformedConfig, "on", "%v", err)
				continue
			}
			act := &Action{Triggers: triggers}
			for _, cmd := range body {
				if len(cmd) == 0 {
					continue
				}
				act.Commands = append(act.Commands, Command{Name: cmd[0], Args: cmd[1:]})
			}
			p.Actions = append(p.Actions, act)
		default:
			return errs.New(errs.MalformedConfig, action, nil)
		}
	}
	return nil
}

// parseTriggers splits `trigger (&& trigger)*` args (already
// whitespace-tokenized) on literal "&&" tokens and classifies each group as
// a bare stage or a `property:KEY=VALUE` constraint.
func parseTriggers(args []string) ([]Trigger, error) {
	var groups [][]string
	var cur []string
	for _, tok := range args {
		if tok == "&&" {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	groups = append(groups, cur)

	triggers := make([]Trigger, 0, len(groups))
	for _, g := range groups {
		if len(g) != 1 {
			return nil, errs.New(errs.MalformedConfig, "on", nil)
		}
		tok := g[0]
		if strings.HasPrefix(tok, "property:") {
			kv := strings.TrimPrefix(tok, "property:")
			eq := strings.IndexByte(kv, '=')
			if eq < 0 {
				return nil, errs.New(errs.MalformedConfig, "on", nil)
			}
			triggers = append(triggers, Trigger{IsProp: true, PropKey: kv[:eq], PropVal: kv[eq+1:]})
		} else {
			triggers = append(triggers, Trigger{Stage: tok})
		}
	}
	return triggers, nil
}

// applyOption interprets one service option line, recognizing the set
// named in spec §4.2; anything else is retained in svc.Unknown verbatim.
func applyOption(svc *Service, name string, args []string) {
	switch name {
	case "user":
		if len(args) == 1 {
			if id, ok := aid.ByName(args[0]); ok {
				svc.UID = id
				svc.HasUID = true
			}
		}
	case "group":
		if len(args) >= 1 {
			if id, ok := aid.ByName(args[0]); ok {
				svc.GID = id
				svc.HasGID = true
			}
			for _, g := range args[1:] {
				if id, ok := aid.ByName(g); ok {
					svc.Groups = append(svc.Groups, id)
				}
			}
		}
	case "capabilities":
		svc.Ambient = append(svc.Ambient, args...)
	case "seclabel":
		if len(args) == 1 {
			svc.Seclabel = args[0]
			svc.HasSeclabel = true
		}
	case "class":
		if len(args) >= 1 {
			svc.Class = args[0]
			svc.ClassGroups = args[1:]
		}
	case "disabled":
		svc.Disabled = true
	case "oneshot":
		svc.Oneshot = true
	default:
		svc.Unknown = append(svc.Unknown, Option{Name: name, Args: args})
	}
}

// parseUint parses s as an unsigned 32-bit integer in base. No command
// handler calls it; execMkdir and execChmod call strconv.ParseUint
// directly.
func parseUint(s string, base int) (uint64, bool) {
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}
