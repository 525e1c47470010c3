// Package dispatch turns a parsed command line into table operations.
package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUsage is returned for malformed invocations. No table work is done.
var ErrUsage = errors.New("usage error")

// HashOnlyToken is the reserved flag accepted directly after the verb.
const HashOnlyToken = "hash-only"

// Usage is the command grammar printed on malformed input.
const Usage = "backup create|update|check|extract [hash-only] <archive> <directory>+"

// Action is the closed set of states an invocation can resolve to.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionCheck
	ActionExtract
	ActionError
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionCheck:
		return "check"
	case ActionExtract:
		return "extract"
	default:
		return "error"
	}
}

// ParseAction maps a verb to its action, ignoring case. Unknown verbs map to ActionError.
func ParseAction(verb string) Action {
	switch strings.ToLower(verb) {
	case "create":
		return ActionCreate
	case "update":
		return ActionUpdate
	case "check":
		return ActionCheck
	case "extract":
		return ActionExtract
	default:
		return ActionError
	}
}

// Invocation is one parsed command line.
type Invocation struct {
	Action  Action
	Archive string
	Dirs    []string
	// HashOnly is accepted and carried but has no effect yet.
	HashOnly bool
	// Reason explains why Action is ActionError.
	Reason string
}

// Err returns the usage error for an ActionError invocation, or nil.
func (inv Invocation) Err() error {
	if inv.Action != ActionError {
		return nil
	}
	return fmt.Errorf("%w: %s\nUse: %s", ErrUsage, inv.Reason, Usage)
}

// Parse reads args as <verb> [hash-only] <archive> <directory>+.
func Parse(args []string) Invocation {
	if len(args) == 0 {
		return Invocation{Action: ActionError, Reason: "missing command"}
	}

	inv := Invocation{Action: ParseAction(args[0])}
	if inv.Action == ActionError {
		inv.Reason = fmt.Sprintf("unknown command %q", args[0])
		return inv
	}

	rest := args[1:]
	if len(rest) > 0 && rest[0] == HashOnlyToken {
		inv.HashOnly = true
		rest = rest[1:]
	}

	if len(rest) == 0 {
		return Invocation{Action: ActionError, HashOnly: inv.HashOnly, Reason: "missing <archive> parameter"}
	}
	inv.Archive = rest[0]

	if len(rest) == 1 {
		return Invocation{Action: ActionError, Archive: inv.Archive, HashOnly: inv.HashOnly, Reason: "missing <directory> parameters"}
	}
	inv.Dirs = append([]string(nil), rest[1:]...)

	return inv
}
