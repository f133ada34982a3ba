package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"storage-visual/internal/adapter/tui/uxerror"
	"storage-visual/internal/adapter/tui/visual"
	"storage-visual/internal/domain"
	"storage-visual/internal/usecase"
)

// action is one parsed exec line.
type action struct {
	dismiss bool
	kind    domain.OperationKind
	key     string
	value   string
}

// parseAction accepts "status", "get NAME", "set NAME VALUE...",
// "remove NAME" and "dismiss". A set value is the rest of the line and may
// contain spaces.
func parseAction(fields []string) (action, error) {
	if len(fields) == 0 {
		return action{}, domain.NewDomainError("parseAction", domain.ErrInvalidInput, "empty action")
	}
	name, rest := fields[0], fields[1:]
	if name == "dismiss" {
		return action{dismiss: true}, nil
	}
	kind, ok := domain.ParseOperationKind(name)
	if !ok {
		return action{}, domain.NewDomainError("parseAction", domain.ErrInvalidInput, fmt.Sprintf("unknown action %q", name))
	}

	a := action{kind: kind}
	switch kind {
	case domain.OpStatusCheck:
		if len(rest) != 0 {
			return action{}, usageError(name, "takes no arguments")
		}
	case domain.OpGet, domain.OpRemove:
		if len(rest) != 1 {
			return action{}, usageError(name, "needs exactly one NAME")
		}
		a.key = rest[0]
	case domain.OpSet:
		if len(rest) < 1 {
			return action{}, usageError(name, "needs NAME [VALUE]")
		}
		a.key = rest[0]
		a.value = strings.Join(rest[1:], " ")
	}
	return a, nil
}

// parseLine parses one script line. Other actions split on whitespace, but a
// set value keeps its spacing: only the single separator after NAME is
// dropped.
func parseLine(line string) (action, error) {
	verb, rest := cutField(line)
	if verb != string(domain.OpSet) {
		return parseAction(strings.Fields(line))
	}
	key, value := cutField(rest)
	if key == "" {
		return action{}, usageError(verb, "needs NAME [VALUE]")
	}
	return action{kind: domain.OpSet, key: key, value: value}, nil
}

// cutField skips leading blanks and splits s at the blank ending the first
// field. The remainder starts right after that one blank.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

func usageError(name, detail string) error {
	return domain.NewDomainError("parseAction", domain.ErrInvalidInput, name+" "+detail)
}

// runExecCommand wires the app and runs the actions given on the command
// line, or read from stdin when the only argument is "-".
func runExecCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no action given (try 'visual exec status')")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 && args[0] == "-" {
		return runScript(ctx, a.ctrl, os.Stdin, os.Stdout)
	}
	act, err := parseAction(args)
	if err != nil {
		return err
	}
	return runActions(ctx, a.ctrl, []action{act}, os.Stdout)
}

// runScript reads one action per line. Blank lines and lines starting with
// '#' are skipped. The surface carries over between lines.
func runScript(ctx context.Context, ctrl *usecase.Controller, in io.Reader, out io.Writer) error {
	var actions []action
	scanner := bufio.NewScanner(in)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if trimmed := strings.TrimSpace(text); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		act, err := parseLine(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		actions = append(actions, act)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return runActions(ctx, ctrl, actions, out)
}

// runActions executes actions in order and prints the surface after each.
// An unexpected failure stops the run; its friendly rendering is printed and
// the original error returned.
func runActions(ctx context.Context, ctrl *usecase.Controller, actions []action, out io.Writer) error {
	for _, act := range actions {
		if act.dismiss {
			ctrl.DismissError(ctx)
			fmt.Fprintln(out, "> dismiss")
			printSurface(out, ctrl.Surface().Snapshot())
			continue
		}

		res, err := ctrl.Invoke(ctx, domain.NewOperationRequest(act.kind, act.key, act.value))
		fmt.Fprintf(out, "> %s", act.kind)
		if act.key != "" {
			fmt.Fprintf(out, " %s", act.key)
		}
		if err != nil {
			fmt.Fprintln(out, ": error")
			fmt.Fprintln(out, uxerror.Humanize(err).Render())
			return err
		}
		fmt.Fprintf(out, ": %s\n", res.Outcome)
		printSurface(out, ctrl.Surface().Snapshot())
	}
	return nil
}

func printSurface(out io.Writer, s domain.SurfaceSnapshot) {
	fmt.Fprintf(out, "  %s%s\n", visual.AvailabilityLabel, s.StatusText)
	fmt.Fprintf(out, "  %s%s\n", visual.ResultLabel, s.ResultText)
	if s.IndicatorShown() {
		fmt.Fprintf(out, "  %s [X]\n", s.Indicator)
	}
}
