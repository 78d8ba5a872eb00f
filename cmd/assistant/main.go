package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jeanpaul/assistant/internal/assistant"
	"github.com/jeanpaul/assistant/internal/config"
	"github.com/jeanpaul/assistant/internal/logging"
	"github.com/jeanpaul/assistant/internal/model"
	"github.com/jeanpaul/assistant/internal/shell"
	"github.com/jeanpaul/assistant/internal/store"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4136")).Bold(true)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		fatal("%s", err)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	cmd := &cobra.Command{
		Use:   "assistant [flags] [command [args...]]",
		Short: "Personal address book shell",
		Long: `assistant keeps contacts, phone numbers and birthdays in a local store.

Run without arguments to start the interactive shell. Anything after the
flags is run as a single shell command, e.g.

  assistant phones add "Alice Smith" 1234567890 --type work

Settings may also come from ASSISTANT_* environment variables
(ASSISTANT_DB_DIR, ASSISTANT_BACKEND, ASSISTANT_HISTORY_FILE,
ASSISTANT_INIT_FILE, ...) or from the YAML init file.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	// Everything after the first positional belongs to the one-shot command.
	cmd.Flags().SetInterspersed(false)

	flags := cmd.Flags()
	flags.BoolP("yes", "y", false, "Answer yes to all questions")
	flags.String("backend", "", "Storage backend: shelf, sqlite or snapshot (default shelf)")
	flags.String("db-dir", "", "Directory holding the address book (default .)")
	flags.String("db-name", "", "Address book file name without extension (default addressbook)")
	flags.String("db-file", "", "Explicit address book file, overrides --db-dir and --db-name")
	flags.String("config", "", "YAML init file with startup settings (default .assistant_init)")
	flags.String("log-file", "", "Write a JSON debug log to this file")
	flags.String("log-level", "", "Log level: debug, info, warn or error (default info)")

	bind(v, cmd, map[string]string{
		"yes":       "yes",
		"backend":   "backend",
		"db_dir":    "db-dir",
		"db_name":   "db-name",
		"db_file":   "db-file",
		"init_file": "config",
		"log_file":  "log-file",
		"log_level": "log-level",
	})
	return cmd
}

func bind(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// run opens the address book, serves one command or the interactive loop,
// and closes the book on every path out.
func run(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	logger, session, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts := cfg.StoreOptions()
	opts.Logger = logger
	book, err := store.New[model.Record](opts)
	if err != nil {
		return err
	}
	if err := book.Open(ctx); err != nil {
		return err
	}
	logger.Info("session started", zap.String("session", session), zap.String("backend", cfg.Backend), zap.String("path", opts.Path()))
	defer func() {
		if cerr := book.Close(); cerr != nil && err == nil {
			err = cerr
		}
		logger.Info("session finished")
	}()

	history, err := shell.LoadHistory(cfg.HistoryFile)
	if err != nil {
		return err
	}
	defer func() {
		if herr := history.Save(); herr != nil {
			logger.Warn("history not saved", zap.Error(herr))
		}
	}()

	line := shellquote.Join(args...)
	reader := newLineReader(stdin, stdout, history, isTerminal(stdin))
	console := shell.NewConsole(reader, stdout, stderr, shell.WithYes(cfg.Yes), shell.WithLogger(logger))
	app := assistant.New(book, console, cfg.User, assistant.WithLogger(logger))
	err = app.Run(ctx, line)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newLineReader returns the line editor whenever stdin is a terminal,
// including for one-shot lines that enter a mode or ask for confirmation.
func newLineReader(stdin io.Reader, stdout io.Writer, history *shell.History, tty bool) shell.LineReader {
	if tty {
		return shell.NewTerminal(stdin, stdout, history)
	}
	return shell.NewScanReader(stdin, stdout)
}

// isTerminal checks if r is an interactive terminal
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+msg))
	os.Exit(1)
}
