// Command sandvm is the CLI collaborator of §6: it reads a script file
// path, constructs a VM, invokes a fixed number of ticks with empty
// inputs, and prints each tick's debug text, instructions-used count,
// and outputs. This is illustrative, not normative — embedders are
// expected to drive pkg/host and pkg/tick directly.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kristofer/sandvm/pkg/host"
	"github.com/kristofer/sandvm/pkg/meter"
	"github.com/kristofer/sandvm/pkg/tick"
	"github.com/kristofer/sandvm/pkg/toolchain"
	"github.com/kristofer/sandvm/pkg/wasm"
)

const appVersion = "0.1.0"

func main() {
	app := &cli.Command{
		Name:      "sandvm",
		Usage:     "run and inspect metered WebAssembly guest scripts",
		ArgsUsage: "<script>",
		// Flags are declared on both the root command (so "sandvm <script>"
		// works without a subcommand) and on runCommand (so "sandvm run
		// <script>" does too) because cli/v3 commands don't inherit a
		// parent's Flags; runFlags keeps the two declarations from drifting.
		Flags: runFlags,
		Commands: []*cli.Command{
			runCommand,
			disasmCommand,
			versionCommand,
		},
		Action: runAction,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sandvm: %v\n", err)
		os.Exit(1)
	}
}

var compilerFlag = &cli.StringFlag{
	Name:  "compiler",
	Usage: "external compiler binary; omit to treat <script> as a pre-compiled .wasm module",
}

var ticksFlag = &cli.IntFlag{
	Name:  "ticks",
	Value: 10,
	Usage: "number of ticks to invoke with empty inputs",
}

var verboseFlag = &cli.BoolFlag{
	Name:    "verbose",
	Aliases: []string{"v"},
	Usage:   "enable debug-level logging of VM construction",
}

var runFlags = []cli.Flag{compilerFlag, ticksFlag, verboseFlag}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "run a script for a fixed number of ticks (the default action)",
	ArgsUsage: "<script>",
	Flags:     runFlags,
	Action:    runAction,
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("no script file specified; usage: sandvm [run] <script>")
	}

	logger := newLogger(cmd.Bool("verbose"))
	defer logger.Sync() //nolint:errcheck

	compiler, source, err := buildCompiler(path, cmd.String("compiler"))
	if err != nil {
		return err
	}

	vm, err := host.New(ctx, source, compiler, host.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("constructing VM: %w", err)
	}
	defer vm.Close(ctx) //nolint:errcheck

	for i := int64(0); i < cmd.Int("ticks"); i++ {
		outputs, runErr := tick.RunTick(ctx, vm, nil)
		if runErr != nil {
			fmt.Printf("tick %d: %v\n", i, runErr)
			continue
		}

		text, truncated, textErr := tick.ReadDebugText(ctx, vm)
		if textErr != nil {
			return fmt.Errorf("reading debug text after tick %d: %w", i, textErr)
		}
		used, instrErr := vm.GetInstructions(ctx)
		if instrErr != nil {
			return fmt.Errorf("reading instruction counter after tick %d: %w", i, instrErr)
		}

		fmt.Printf("tick %d: used=%d debug=%q outputs=%v", i, tick.Budget-used, text, outputs)
		if truncated {
			fmt.Print(" (debug text truncated)")
		}
		fmt.Println()
	}
	return nil
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "disassemble a compiled module after the metering transform",
	ArgsUsage: "<script>",
	Flags:     []cli.Flag{compilerFlag},
	Action:    disasmAction,
}

func disasmAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("no script file specified; usage: sandvm disasm <script>")
	}

	compiler, source, err := buildCompiler(path, cmd.String("compiler"))
	if err != nil {
		return err
	}

	raw, err := compiler.Compile(ctx, source)
	if err != nil {
		return fmt.Errorf("compiling: %w", err)
	}

	mod, err := wasm.Decode(raw)
	if err != nil {
		return fmt.Errorf("decoding compiled module: %w", err)
	}

	metered, err := meter.Inject(mod)
	if err != nil {
		return fmt.Errorf("injecting metering: %w", err)
	}

	fmt.Print(wasm.Disassemble(metered))
	return nil
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "print sandvm's version",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		fmt.Printf("sandvm version %s\n", appVersion)
		return nil
	},
}

// buildCompiler returns a toolchain.Compiler for path: an ExecCompiler
// reading script source from path when compilerPath is set, or a
// BytesCompiler treating path's contents as an already-compiled module.
func buildCompiler(path, compilerPath string) (toolchain.Compiler, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	if compilerPath != "" {
		return toolchain.ExecCompiler{Path: compilerPath}, string(data), nil
	}
	return toolchain.BytesCompiler{Module: data}, "", nil
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
