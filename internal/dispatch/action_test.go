package dispatch

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		verb string
		want Action
	}{
		{"create", ActionCreate},
		{"CREATE", ActionCreate},
		{"Update", ActionUpdate},
		{"check", ActionCheck},
		{"eXtRaCt", ActionExtract},
		{"delete", ActionError},
		{"", ActionError},
	}

	for _, tt := range tests {
		if got := ParseAction(tt.verb); got != tt.want {
			t.Errorf("ParseAction(%q) = %v, want %v", tt.verb, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		want       Invocation
		wantReason string
	}{
		{
			name: "create one dir",
			args: []string{"create", "a.ddb", "src"},
			want: Invocation{Action: ActionCreate, Archive: "a.ddb", Dirs: []string{"src"}},
		},
		{
			name: "update many dirs",
			args: []string{"UPDATE", "a.ddb", "one", "two", "three"},
			want: Invocation{Action: ActionUpdate, Archive: "a.ddb", Dirs: []string{"one", "two", "three"}},
		},
		{
			name: "hash-only flag",
			args: []string{"check", "hash-only", "a.ddb", "src"},
			want: Invocation{Action: ActionCheck, Archive: "a.ddb", Dirs: []string{"src"}, HashOnly: true},
		},
		{
			name: "hash-only only directly after the verb",
			args: []string{"extract", "a.ddb", "hash-only"},
			want: Invocation{Action: ActionExtract, Archive: "a.ddb", Dirs: []string{"hash-only"}},
		},
		{
			name:       "no arguments",
			args:       nil,
			want:       Invocation{Action: ActionError},
			wantReason: "missing command",
		},
		{
			name:       "unknown verb",
			args:       []string{"backup", "a.ddb", "src"},
			want:       Invocation{Action: ActionError},
			wantReason: "unknown command",
		},
		{
			name:       "missing archive",
			args:       []string{"create"},
			want:       Invocation{Action: ActionError},
			wantReason: "missing <archive>",
		},
		{
			name:       "hash-only without archive",
			args:       []string{"create", "hash-only"},
			want:       Invocation{Action: ActionError, HashOnly: true},
			wantReason: "missing <archive>",
		},
		{
			name:       "missing directory",
			args:       []string{"extract", "a.ddb"},
			want:       Invocation{Action: ActionError, Archive: "a.ddb"},
			wantReason: "missing <directory>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.args)
			reason := got.Reason
			got.Reason = ""
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
			if !strings.Contains(reason, tt.wantReason) {
				t.Errorf("Parse(%v) reason = %q, want it to contain %q", tt.args, reason, tt.wantReason)
			}
		})
	}
}

func TestInvocationErr(t *testing.T) {
	if err := Parse([]string{"create", "a", "b"}).Err(); err != nil {
		t.Errorf("Err() = %v for a valid invocation", err)
	}

	err := Parse([]string{"create"}).Err()
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("Err() = %v, want ErrUsage", err)
	}
	if !strings.Contains(err.Error(), Usage) {
		t.Errorf("Err() = %q, want the usage line", err.Error())
	}
}

func TestActionString(t *testing.T) {
	for action, want := range map[Action]string{
		ActionCreate:  "create",
		ActionUpdate:  "update",
		ActionCheck:   "check",
		ActionExtract: "extract",
		ActionError:   "error",
		Action(42):    "error",
	} {
		if got := action.String(); got != want {
			t.Errorf("Action(%d).String() = %q, want %q", action, got, want)
		}
	}
}
