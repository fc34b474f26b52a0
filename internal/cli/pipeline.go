package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/logging"
	"github.com/reqtrace/reqtrace/internal/store"
)

// newFormatter builds the per-command output formatter. Verbose logs go to
// stderr so JSON output stays parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger builds the phase logger. Logger construction failures fall back
// to a nop logger rather than blocking the command.
func newLogger(opts *RootOptions) *zap.Logger {
	log, err := logging.New(opts.Verbose)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// openStore opens the trace store, mapping failures to command errors.
func openStore(opts *RootOptions) (*store.Store, error) {
	s, err := store.Open(opts.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("cannot open store %s", opts.DB), err)
	}
	return s, nil
}

// phaseErr maps phase ordering violations to command errors so callers get
// exit code 2 with the missing predecessor named. Other phase errors pass
// through unchanged.
func phaseErr(err error) error {
	if err == nil {
		return nil
	}
	var oe *store.OrderError
	if errors.As(err, &oe) {
		return WrapExitError(ExitCommandError, "pipeline order violation", err)
	}
	return err
}
