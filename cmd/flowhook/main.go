package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/dukex/flowhook/pkg/log"
	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/pathtest"
	"github.com/dukex/flowhook/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var (
	errMissingCanvas = errors.New("canvas file argument is required")
	errCompileFailed = errors.New("canvas has compile errors")
	errPathFailed    = errors.New("path test failed")
)

func main() {
	command := &cli.Command{
		Name:                  "flowhook",
		Usage:                 "Compile workflow canvases and test subscription conditions offline",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "compile",
				Aliases:   []string{"c"},
				Usage:     "Compile a canvas JSON file into trigger to destination paths",
				ArgsUsage: "<canvas.json>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Exit non-zero when the compiler reports errors",
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					path := command.Args().First()
					if path == "" {
						return errMissingCanvas
					}

					raw, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("failed to read canvas: %w", err)
					}

					logger := log.Setup(command.String("log-level"), "text")

					return compileCanvas(os.Stdout, raw, command.Bool("strict"), logger)
				},
			},
			{
				Name:    "test-path",
				Aliases: []string{"t"},
				Usage:   "Evaluate conditions against a mock event",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "event-type",
						Aliases:  []string{"e"},
						Usage:    "Event type to mock, e.g. ft.transfer",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "conditions",
						Usage: "Conditions JSON object",
						Value: "{}",
					},
					&cli.StringFlag{
						Name:  "overrides",
						Usage: "JSON object merged over the mock event data",
						Value: "{}",
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return testPath(
						os.Stdout,
						command.String("event-type"),
						command.String("conditions"),
						command.String("overrides"),
					)
				},
			},
			{
				Name:  "event-types",
				Usage: "List event types and the trigger nodes that produce them",
				Action: func(ctx context.Context, command *cli.Command) error {
					return listEventTypes(os.Stdout)
				},
			},
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		slog.Error("flowhook failed", "error", err)
		os.Exit(1)
	}
}

func compileCanvas(w io.Writer, raw []byte, strict bool, logger *slog.Logger) error {
	graph, err := workflow.ParseCanvas(raw)
	if err != nil {
		return err
	}

	result := workflow.NewCompiler(logger).Compile(graph)

	if err := writeJSON(w, result); err != nil {
		return err
	}

	if strict && result.HasErrors() {
		return fmt.Errorf("%w: %d error(s)", errCompileFailed, len(result.Errors))
	}

	return nil
}

func testPath(w io.Writer, eventType, conditions, overrides string) error {
	if !json.Valid([]byte(conditions)) {
		return fmt.Errorf("conditions is not valid JSON: %s", conditions)
	}

	var extra map[string]any
	if err := json.Unmarshal([]byte(overrides), &extra); err != nil {
		return fmt.Errorf("failed to parse overrides: %w", err)
	}

	result := pathtest.Run(matcher.NewDefaultRegistry(), eventType, json.RawMessage(conditions), extra)

	if err := writeJSON(w, result); err != nil {
		return err
	}

	if result.TriggerStatus != pathtest.StatusPass {
		return errPathFailed
	}

	return nil
}

func listEventTypes(w io.Writer) error {
	types := make(map[string][]string)

	for _, nodeType := range workflow.TriggerNodeTypes() {
		if eventType, ok := workflow.EventTypeForTrigger(nodeType); ok {
			types[eventType] = append(types[eventType], nodeType)
		}
	}

	for _, nodes := range types {
		slices.Sort(nodes)
	}

	return writeJSON(w, types)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
