package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
)

// errInvalidActions is returned when at least one action has problems.
var errInvalidActions = errors.New("validate: actions have problems")

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check action definitions without loading them",
		ArgsUsage: "FILE...",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("validate: at least one file is required")
			}
			return validateFiles(cmd.Args().Slice(), cmd.Root().Writer)
		},
	}
}

// validateFiles reports every problem in every file and fails if any
// were found.
func validateFiles(paths []string, w io.Writer) error {
	bad := 0
	for _, path := range paths {
		actions, err := readActions(path)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", path, err)
			bad++
			continue
		}
		for i, a := range actions {
			name := a.ActionID
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			problems := automation.CheckAction(a)
			if len(problems) == 0 {
				fmt.Fprintf(w, "%s: %s ok\n", path, name)
				continue
			}
			bad++
			for _, p := range problems {
				fmt.Fprintf(w, "%s: %s: %v\n", path, name, p)
			}
		}
	}
	if bad > 0 {
		return fmt.Errorf("%w: %d", errInvalidActions, bad)
	}
	return nil
}

// readActions accepts one action or a list of actions in YAML or JSON.
// YAML is converted through JSON so the actions' json tags apply.
func readActions(path string) ([]*automation.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting: %w", err)
	}

	if _, isList := doc.([]any); isList {
		var actions []*automation.Action
		if err := json.Unmarshal(raw, &actions); err != nil {
			return nil, fmt.Errorf("decoding actions: %w", err)
		}
		return actions, nil
	}
	var a automation.Action
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}
	return []*automation.Action{&a}, nil
}
