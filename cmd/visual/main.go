package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"storage-visual/internal/adapter/tui/visual"
	"storage-visual/internal/infra/config"
)

func main() {
	args := stripConfigFlag(os.Args[1:])

	if len(args) >= 1 {
		switch args[0] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(args) == 0 {
		if err := runTUI(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "exec":
		err = runExecCommand(ctx, args[1:])
	case "consent":
		err = runConsentCommand(ctx, args[1:])
	case "doctor":
		err = runDoctor(ctx, os.Stdout)
	case "encrypt":
		err = runEncrypt(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'visual --help' for usage information.\n", args[0])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`visual - interactive front end for privilege-gated local storage

USAGE:
    visual [COMMAND] [FLAGS]

COMMANDS:
    exec        Run storage actions without the UI
                Actions: status, get NAME, set NAME VALUE, remove NAME, dismiss
                Use 'exec -' to read one action per line from stdin
    consent     Manage the consent privilege source
                Subcommands: grant, revoke, show
    doctor      Run health checks on your setup
    encrypt     Encrypt a secret for the config file (needs VISUAL_CONFIG_KEY)

    (no command) - Launch the terminal UI

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./visual.yaml)

CONFIGURATION:
    Config file: ./visual.yaml
    Environment: VISUAL_* variables override config

EXAMPLES:
    visual                              # Launch the UI
    visual exec set color blue          # Store a value
    visual exec get color               # Read it back
    printf 'get x\nget y\n' | visual exec -
    visual consent grant                # Allow storage access`)
}

// configPath returns the --config flag value, VISUAL_CONFIG, or the default.
func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("VISUAL_CONFIG"); p != "" {
		return p
	}
	return "visual.yaml"
}

// stripConfigFlag removes --config and its value so subcommands only see
// their own arguments.
func stripConfigFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config":
			i++
		case strings.HasPrefix(args[i], "--config="):
		default:
			out = append(out, args[i])
		}
	}
	return out
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func runTUI() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	model := visual.NewModel(visual.Deps{
		Controller: a.ctrl,
		Bus:        a.bus,
		Backend:    a.service.Backend(),
		Logger:     a.log,
	})

	var opts []tea.ProgramOption
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(model, opts...)
	model.SetProgramSender(func(msg tea.Msg) { p.Send(msg) })

	a.log.Info("ui started", "backend", a.service.Backend())
	_, err = p.Run()
	return err
}
