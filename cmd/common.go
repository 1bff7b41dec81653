package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	units "github.com/docker/go-units"

	"github.com/Murchiz/Gpucompress/internal/accel"
	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/config"
	"github.com/Murchiz/Gpucompress/internal/core"
	"github.com/Murchiz/Gpucompress/internal/crypto"
	"github.com/Murchiz/Gpucompress/internal/formats"
	"github.com/Murchiz/Gpucompress/internal/keyring"
	"github.com/Murchiz/Gpucompress/internal/logging"
	"github.com/Murchiz/Gpucompress/internal/storage"
)

// Globals are the flags every command accepts.
type Globals struct {
	ConfigPath  string
	Verbose     bool
	Debug       bool
	Accelerator string // Overrides the configured backend when set
	Level       int    // Overrides the configured level when non-zero
}

// Env is what a command runs with: settings, a logger and, once
// requested, the catalog and an archiver.
type Env struct {
	Config  *config.Config
	Log     logging.Logger
	catalog *storage.Catalog
}

// Setup loads the configuration and applies flag overrides. It exits on
// an invalid configuration.
func Setup(g Globals) *Env {
	cfg, used, err := config.Load(g.ConfigPath)
	if err != nil {
		HandleError(err)
	}
	if g.Accelerator != "" {
		cfg.Accelerator = g.Accelerator
	}
	if g.Level != 0 {
		cfg.Level = g.Level
	}
	if err := cfg.Validate(); err != nil {
		HandleError(err)
	}

	log := logging.Logger{Verbose: g.Verbose, Debug: g.Debug}
	if used != "" {
		log.Debugf("loaded config from %s", used)
	}
	return &Env{Config: cfg, Log: log}
}

// Catalog opens the catalog on first use. A catalog that cannot be
// opened is reported and left nil; archive operations work without it.
func (e *Env) Catalog() *storage.Catalog {
	if e.catalog != nil {
		return e.catalog
	}
	path := e.Config.CatalogPath
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		e.Log.Warnf("catalog disabled: %v", err)
		return nil
	}
	cat, err := storage.Open(path)
	if err != nil {
		e.Log.Warnf("catalog disabled: %v", err)
		return nil
	}
	e.Log.Debugf("opened catalog %s", path)
	e.catalog = cat
	return cat
}

// MustCatalog is Catalog for commands that cannot run without one.
func (e *Env) MustCatalog() *storage.Catalog {
	path := e.Config.CatalogPath
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		HandleError(fmt.Errorf("failed to create catalog directory: %w", err))
	}
	if e.catalog == nil {
		cat, err := storage.Open(path)
		if err != nil {
			HandleError(err)
		}
		e.catalog = cat
	}
	return e.catalog
}

// Close releases the catalog.
func (e *Env) Close() {
	if e.catalog != nil {
		if err := e.catalog.Close(); err != nil {
			e.Log.Warnf("failed to close catalog: %v", err)
		}
		e.catalog = nil
	}
}

// Accelerator discovers the configured backend. It returns nil when none
// comes up; codecs that need one then report ErrAcceleratorRequired.
func (e *Env) Accelerator() accel.Accelerator {
	b := e.Config.Backend()
	if b == accel.BackendNone {
		e.Log.Debugf("accelerator disabled by configuration")
		return nil
	}
	acc, err := accel.Shared(b)
	if err != nil {
		e.Log.Debugf("no accelerator: %v", err)
		return nil
	}
	e.Log.Debugf("using %s accelerator", acc.Name())
	return acc
}

// Registry builds every codec with the configured level and accelerator.
// The second result names the accelerator, or "none".
func (e *Env) Registry() (*archive.Registry, string) {
	acc := e.Accelerator()
	backend := accel.BackendNone.String()
	if acc != nil {
		backend = acc.Name()
	}
	return formats.NewRegistry(archive.Options{Level: e.Config.Level, Accelerator: acc}), backend
}

// Archiver builds an archiver over every codec. withCatalog controls
// whether written archives are recorded and verified against the catalog.
func (e *Env) Archiver(withCatalog bool) *core.Archiver {
	registry, backend := e.Registry()
	opts := core.Options{
		Logger:        e.Log,
		DefaultFormat: e.Config.Format(),
		Level:         e.Config.Level,
		Backend:       backend,
	}
	if withCatalog {
		opts.Catalog = e.Catalog()
	}
	return core.New(registry, opts)
}

// PasswordSource says where a password came from.
type PasswordSource int

const (
	SourceNone PasswordSource = iota
	SourceEnv
	SourceKeyring
	SourcePrompt
)

func (s PasswordSource) String() string {
	switch s {
	case SourceEnv:
		return core.PasswordEnv
	case SourceKeyring:
		return "keyring"
	case SourcePrompt:
		return "prompt"
	default:
		return "none"
	}
}

// NewPassword returns the password for a new archive: the environment
// first, then a confirmed prompt. The caller clears it.
func NewPassword() ([]byte, PasswordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, nil
	}
	password, err := core.ReadPasswordConfirm()
	if err != nil {
		return nil, SourceNone, err
	}
	return password, SourcePrompt, nil
}

// CurrentPassword returns an existing archive's password from the
// environment, the keyring or a prompt, in that order.
func (e *Env) CurrentPassword(prompt, archivePath string) ([]byte, PasswordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, nil
	}
	if e.Config.UseKeyring {
		if stored, err := keyring.GetPassword(archivePath); err == nil && stored != "" {
			return []byte(stored), SourceKeyring, nil
		}
	}
	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, SourceNone, err
	}
	return password, SourcePrompt, nil
}

// WithPassword runs op against an archive, finding a password only when
// one is needed. op is first tried without one; for a name ending in .enc
// that fails with ErrPasswordRequired before anything is read. Passwords
// then come from the environment, the keyring and a prompt. A keyring
// password that fails to authenticate is reported as stale and the user
// is prompted instead.
func (e *Env) WithPassword(archivePath string, forcePrompt bool, op func(password []byte) error) error {
	var plainErr error
	if !forcePrompt {
		plainErr = op(nil)
		if plainErr == nil || !needsPassword(plainErr) {
			return plainErr
		}
		e.Log.Debugf("retrying with a password: %v", plainErr)
	}

	if password := core.GetPasswordFromEnv(); password != nil {
		defer crypto.ClearBytes(password)
		e.Log.Debugf("using password from %s", core.PasswordEnv)
		return op(password)
	}

	if e.Config.UseKeyring {
		if stored, err := keyring.GetPassword(archivePath); err == nil && stored != "" {
			password := []byte(stored)
			err := op(password)
			crypto.ClearBytes(password)
			if err == nil || !rejectedPassword(err) {
				return err
			}
			e.Log.Warnf("password stored in keyring was rejected")
		}
	}

	password, err := core.ReadPassword("Enter password: ")
	if err != nil {
		if plainErr != nil {
			return plainErr
		}
		return err
	}
	defer crypto.ClearBytes(password)
	if err := op(password); err != nil {
		return err
	}
	e.OfferToSavePassword(archivePath, password)
	return nil
}

func needsPassword(err error) bool {
	if errors.Is(err, archive.ErrAcceleratorRequired) {
		return false
	}
	return errors.Is(err, core.ErrPasswordRequired) || errors.Is(err, archive.ErrUnrecognized)
}

func rejectedPassword(err error) bool {
	if errors.Is(err, archive.ErrAcceleratorRequired) {
		return false
	}
	return errors.Is(err, crypto.ErrAuthFailed) || errors.Is(err, archive.ErrUnrecognized)
}

// OfferToSavePassword asks once whether to store a prompted password.
func (e *Env) OfferToSavePassword(archivePath string, password []byte) {
	if !e.Config.UseKeyring || keyring.HasPassword(archivePath) {
		return
	}
	fmt.Fprint(os.Stderr, "Save password to keyring? [y/N]: ")
	var answer string
	fmt.Scanln(&answer)
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		return
	}
	if err := keyring.SavePassword(archivePath, string(password)); err != nil {
		e.Log.Warnf("failed to save password: %v", err)
		return
	}
	fmt.Println("Password saved to keyring")
}

// startSpinner shows progress unless verbose output would interleave
// with it. The returned func stops it, printing finalMsg when set.
func startSpinner(message string, log logging.Logger) func(finalMsg string) {
	if log.Verbose || log.Debug {
		log.Infof("%s", message)
		return func(finalMsg string) {
			if finalMsg != "" {
				fmt.Println(strings.TrimSuffix(finalMsg, "\n"))
			}
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		log.Debugf("failed to set spinner color: %v", err)
	}
	s.Start()
	return func(finalMsg string) {
		if finalMsg != "" && !strings.HasSuffix(finalMsg, "\n") {
			finalMsg += "\n"
		}
		s.FinalMSG = finalMsg
		s.Stop()
	}
}

func formatSize(size int64) string {
	return units.HumanSize(float64(size))
}

// ratio is the compressed size as a percentage of the input.
func ratio(compressed, input int64) string {
	if input <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(compressed)*100/float64(input))
}

// parseFormatFlag returns "" for an empty flag.
func parseFormatFlag(value string) archive.Format {
	if value == "" {
		return ""
	}
	f, err := archive.ParseFormat(value)
	if err != nil {
		HandleError(err)
	}
	return f
}

// HandleError prints err with a hint for known failures and exits.
func HandleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "Interrupted\n")
	case errors.Is(err, crypto.ErrAuthFailed):
		fmt.Fprintf(os.Stderr, "Wrong password, or the data has been modified\n")
	case errors.Is(err, crypto.ErrTooShort), errors.Is(err, crypto.ErrLikelyCorrupt):
		fmt.Fprintf(os.Stderr, "The file is not a password envelope, or is damaged\n")
	case errors.Is(err, core.ErrPasswordRequired):
		fmt.Fprintf(os.Stderr, "Set %s or run from a terminal to be prompted\n", core.PasswordEnv)
	case errors.Is(err, archive.ErrAcceleratorRequired):
		fmt.Fprintf(os.Stderr, "Run 'gpucompress accel' to see available backends, or pass --accel software\n")
	case errors.Is(err, archive.ErrUnrecognized):
		fmt.Fprintf(os.Stderr, "Pass --format if the archive type is known, or --password if it is encrypted\n")
	case errors.Is(err, archive.ErrUnknownFormat):
		fmt.Fprintf(os.Stderr, "Run 'gpucompress formats' to list supported formats\n")
	case errors.Is(err, archive.ErrNotImplemented):
		fmt.Fprintf(os.Stderr, "This operation is not supported for that format\n")
	case errors.Is(err, archive.ErrPasswordUnsupported):
		fmt.Fprintf(os.Stderr, "Use the envelope (.enc) instead of the format's own encryption\n")
	case errors.Is(err, core.ErrOutputExists):
		fmt.Fprintf(os.Stderr, "Use --force to overwrite\n")
	case errors.Is(err, core.ErrConflict):
		fmt.Fprintf(os.Stderr, "Extraction stopped; choose another --conflict strategy to continue\n")
	case errors.Is(err, core.ErrNoInputs):
		fmt.Fprintf(os.Stderr, "Name at least one file or directory to compress\n")
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Run 'gpucompress history' to list recorded archives\n")
	case errors.Is(err, config.ErrInvalid):
		fmt.Fprintf(os.Stderr, "Check the config file, or run 'gpucompress config init --force'\n")
	}
	os.Exit(1)
}
