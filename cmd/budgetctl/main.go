package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"budgetly/internal/api"
	"budgetly/internal/app"
	"budgetly/internal/cli"
	"budgetly/internal/config"
	"budgetly/internal/display"
	"budgetly/internal/log"
)

var errUsage = errors.New("usage")

// env is what every subcommand runs against.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	app    *app.App
	in     *bufio.Reader
	out    io.Writer
	money  *display.Formatter
}

type command struct {
	usage string
	// standalone commands run without the client stack.
	standalone bool
	run        func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"register":      {usage: "register -name NAME -email EMAIL [-password PASSWORD]", run: cmdRegister},
	"login":         {usage: "login -email EMAIL [-password PASSWORD]", run: cmdLogin},
	"logout":        {usage: "logout [-all]", run: cmdLogout},
	"profile":       {usage: "profile [-name NAME] [-email EMAIL] [-currency CODE] [-timezone TZ]", run: cmdProfile},
	"password":      {usage: "password -current OLD -new NEW", run: cmdPassword},
	"categories":    {usage: "categories [-type expense|income|savings]", run: cmdCategories},
	"budgets":       {usage: "budgets [-month YYYY-MM]", run: cmdBudgets},
	"budget":        {usage: "budget ID", run: cmdBudget},
	"create-budget": {usage: "create-budget -month YYYY-MM [-notes NOTES]", run: cmdCreateBudget},
	"add-item":      {usage: "add-item -budget ID -category ID|NAME -planned AMOUNT [-notes NOTES]", run: cmdAddItem},
	"add-income":    {usage: "add-income -budget ID -amount AMOUNT -source SOURCE [-date YYYY-MM-DD] [-note NOTE]", run: cmdAddIncome},
	"add-expense":   {usage: "add-expense -budget ID -item ID -amount AMOUNT [-merchant NAME] [-date YYYY-MM-DD] [-note NOTE]", run: cmdAddExpense},
	"dashboard":     {usage: "dashboard [-watch]", run: cmdDashboard},
	"serve-fake":    {usage: "serve-fake [-addr ADDR]", standalone: true, run: cmdServeFake},
}

func main() {
	cli.LoadEnvFile()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	e := &env{
		cfg:    cfg,
		logger: logger,
		in:     bufio.NewReader(stdin),
		out:    stdout,
		money:  display.NewFormatter(cfg.Locale, "USD"),
	}

	if !cmd.standalone {
		a, err := app.New(cfg, logger)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 1
		}
		defer a.Close()
		if err := a.Restore(ctx); err != nil {
			logger.Warn("Failed to restore session", log.FieldError, err)
		}
		a.StartBridge(ctx)
		e.app = a
		if u := a.Session.Snapshot().User; u != nil && u.CurrencyCode != "" {
			e.money = display.NewFormatter(cfg.Locale, u.CurrencyCode)
		}
	}

	if err := cmd.run(ctx, e, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			if err != errUsage {
				fmt.Fprintln(stderr, err)
			}
			fmt.Fprintln(stderr, "usage: budgetctl", cmd.usage)
			return 2
		}
		printError(stderr, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: budgetctl <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", api.FormatError(err))
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseFlags reports bad flags and stray arguments as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return nil
}

// prompt reads one line, used for passwords not given as flags.
func (e *env) prompt(label string) (string, error) {
	fmt.Fprint(e.out, label+": ")
	line, err := e.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
