package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/crypto"
	"github.com/Murchiz/Gpucompress/internal/logging"
	"github.com/Murchiz/Gpucompress/internal/security"
	"github.com/Murchiz/Gpucompress/internal/storage"
)

const (
	FilePerm         = 0644
	ArchivePerm      = 0600
	MaxArchiveCopies = 100 // Max numbered .from-archive.N copies
)

var (
	ErrNoInputs         = errors.New("no input files")
	ErrOutputExists     = errors.New("output already exists")
	ErrPasswordRequired = errors.New("password required")
	ErrNotEnveloped     = errors.New("file is not password-enveloped")
)

// Options configures an Archiver.
type Options struct {
	// Catalog records written archives. Nil disables recording.
	Catalog *storage.Catalog
	Logger  logging.Logger
	// DefaultFormat is used when neither the request nor the output
	// name selects one.
	DefaultFormat archive.Format
	// Level and Backend are recorded in the catalog.
	Level   int
	Backend string
}

// Archiver runs archive operations over a codec registry.
type Archiver struct {
	registry *archive.Registry
	opts     Options
	log      logging.Logger
}

// New creates an Archiver
func New(registry *archive.Registry, opts Options) *Archiver {
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = archive.FormatTarZst
	}
	return &Archiver{registry: registry, opts: opts, log: opts.Logger}
}

// CompressRequest describes one compress run.
type CompressRequest struct {
	Inputs []string
	// Output may be empty; it is then derived from the first input.
	Output string
	// Format may be empty; it is then inferred from Output.
	Format   archive.Format
	Password []byte
	Force    bool
}

// CompressResult summarises a written archive.
type CompressResult struct {
	Output    string
	Format    archive.Format
	Encrypted bool
	Entries   int
	InputSize int64
	Size      int64
	RecordID  string
}

// PlanOutput picks the format and output path for a compress run.
// An explicit format wins, then the output extension, then the default.
func (a *Archiver) PlanOutput(inputs []string, output string, format archive.Format, encrypted bool) (string, archive.Format, error) {
	if format == "" && output != "" {
		if f, _, err := archive.FormatFromPath(output); err == nil {
			format = f
		}
	}
	if format == "" {
		format = a.opts.DefaultFormat
	}
	if output != "" {
		return output, format, nil
	}
	if len(inputs) == 0 {
		return "", "", ErrNoInputs
	}

	abs, err := filepath.Abs(inputs[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	name := filepath.Base(abs)
	if name == string(filepath.Separator) {
		name = "archive"
	}
	output = name + format.Extension()
	if encrypted && !a.registry.NativePassword(format) {
		output += archive.EncryptedSuffix
	}
	return output, format, nil
}

// Compress collects the inputs, encodes them and writes the archive.
func (a *Archiver) Compress(ctx context.Context, req CompressRequest) (*CompressResult, error) {
	output, format, err := a.PlanOutput(req.Inputs, req.Output, req.Format, len(req.Password) > 0)
	if err != nil {
		return nil, err
	}
	if !req.Force {
		if _, err := os.Stat(output); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, output)
		}
	}

	codec, err := a.registry.Lookup(format)
	if err != nil {
		return nil, err
	}

	entries, err := Collect(ctx, req.Inputs, a.log)
	if err != nil {
		return nil, err
	}
	defer clearEntries(entries)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.log.Infof("compressing %d entries as %s", len(entries), format)
	data, err := codec.Compress(entries, req.Password)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(output, data, ArchivePerm); err != nil {
		return nil, err
	}

	result := &CompressResult{
		Output:    output,
		Format:    format,
		Encrypted: len(req.Password) > 0 && !a.registry.NativePassword(format),
		Entries:   len(entries),
		InputSize: archive.TotalSize(entries),
		Size:      int64(len(data)),
	}

	if a.opts.Catalog != nil {
		rec, err := a.record(output, result, entries)
		if err != nil {
			a.log.Warnf("failed to record archive in catalog: %v", err)
		} else {
			result.RecordID = rec.ID
		}
	}
	return result, nil
}

func (a *Archiver) record(output string, result *CompressResult, entries []archive.Entry) (*storage.Record, error) {
	abs, err := filepath.Abs(output)
	if err != nil {
		return nil, err
	}
	rec := &storage.Record{
		Path:      abs,
		Format:    string(result.Format),
		Encrypted: result.Encrypted,
		Level:     a.opts.Level,
		Backend:   a.opts.Backend,
		Size:      result.Size,
	}
	for _, e := range entries {
		rec.AddEntry(e.Name, e.Data)
	}
	if err := a.opts.Catalog.Put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Open reads and decodes an archive. An empty format sniffs the content.
func (a *Archiver) Open(ctx context.Context, path string, format archive.Format, password []byte) (archive.Format, []archive.Entry, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read archive: %w", err)
	}

	if len(password) == 0 {
		if _, encrypted, _ := archive.FormatFromPath(path); encrypted {
			return "", nil, ErrPasswordRequired
		}
	}

	if format != "" {
		codec, err := a.registry.Lookup(format)
		if err != nil {
			return "", nil, err
		}
		entries, err := codec.Decompress(data, password)
		if err != nil {
			return "", nil, err
		}
		return format, entries, nil
	}

	f, entries, err := a.registry.Detect(data, password)
	if err != nil {
		return "", nil, err
	}
	a.log.Debugf("detected %s archive", f)
	return f, entries, nil
}

// EntryInfo is one line of an archive listing.
type EntryInfo struct {
	Name string
	Size int64
}

// List decodes an archive and returns its entries in stored order.
func (a *Archiver) List(ctx context.Context, path string, format archive.Format, password []byte) (archive.Format, []EntryInfo, error) {
	f, entries, err := a.Open(ctx, path, format, password)
	if err != nil {
		return "", nil, err
	}
	defer clearEntries(entries)

	infos := make([]EntryInfo, len(entries))
	for i, e := range entries {
		infos[i] = EntryInfo{Name: e.Name, Size: int64(len(e.Data))}
	}
	return f, infos, nil
}

// ExtractRequest describes one extract run.
type ExtractRequest struct {
	Archive  string
	Dest     string
	Format   archive.Format
	Password []byte
	Strategy MergeStrategy
	// Patterns limits extraction to matching entry names (exact or glob).
	Patterns []string
	// Prompt receives StrategyAsk questions. Nil means stdout.
	Prompt io.Writer
}

// ExtractResult contains the results of an extract operation
type ExtractResult struct {
	Format    archive.Format
	Extracted []string // Entries written
	Skipped   []string // Entries skipped as unchanged or by choice
	Errors    []string // Entries that failed
}

// Extract writes archive entries below req.Dest. Duplicate names resolve
// to the last entry. Existing files that differ are handled by
// req.Strategy; StrategyAbort stops at the first conflict.
func (a *Archiver) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	format, entries, err := a.Open(ctx, req.Archive, req.Format, req.Password)
	if err != nil {
		return nil, err
	}
	defer clearEntries(entries)

	entries = archive.Dedupe(entries)
	if len(req.Patterns) > 0 {
		entries = filterEntries(entries, req.Patterns)
	}

	dest, err := security.Open(req.Dest)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	result := &ExtractResult{Format: format}
	resolver := &Resolver{Dest: dest, Strategy: req.Strategy, Out: req.Prompt}
	fail := func(msgFormat string, args ...any) {
		msg := fmt.Sprintf(msgFormat, args...)
		result.Errors = append(result.Errors, msg)
		a.log.Errorf("%s", msg)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name, err := security.CleanName(entry.Name)
		if err != nil {
			fail("%s: invalid path in archive: %v", entry.Name, err)
			continue
		}

		data := entry.Data
		localData, err := dest.ReadFile(name)
		fileExists := err == nil
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			fail("%s: cannot read existing file: %v", name, err)
			continue
		}

		if fileExists {
			if sameContent(localData, data) {
				result.Skipped = append(result.Skipped, name)
				a.log.Infof("skipped: %s (unchanged)", name)
				continue
			}

			written, err := resolver.Resolve(Conflict{Entry: archive.Entry{Name: name, Data: data}, Local: localData})
			if err != nil {
				if errors.Is(err, ErrConflict) {
					return result, err
				}
				fail("%s: %v", name, err)
				continue
			}
			switch written {
			case "":
				result.Skipped = append(result.Skipped, name)
				a.log.Infof("skipped: %s (kept local version)", name)
			case name:
				result.Extracted = append(result.Extracted, name)
				a.log.Infof("extracted: %s", name)
			default:
				result.Extracted = append(result.Extracted, written)
				result.Skipped = append(result.Skipped, name)
				a.log.Infof("saved: %s (archive version)", written)
			}
			continue
		}

		if err := dest.WriteFile(name, data, FilePerm); err != nil {
			fail("%s: cannot write file: %v", name, err)
			continue
		}
		result.Extracted = append(result.Extracted, name)
		a.log.Infof("extracted: %s", name)
	}

	return result, nil
}

// filterEntries filters entries by patterns (exact match or glob)
func filterEntries(entries []archive.Entry, patterns []string) []archive.Entry {
	var result []archive.Entry
	for _, e := range entries {
		for _, pattern := range patterns {
			normalized := filepath.ToSlash(pattern)
			if e.Name == normalized || strings.HasPrefix(e.Name, strings.TrimSuffix(normalized, "/")+"/") {
				result = append(result, e)
				break
			}
			if matched, _ := filepath.Match(normalized, e.Name); matched {
				result = append(result, e)
				break
			}
		}
	}
	return result
}

// VerifyResult reports how an archive compares with its catalog record.
type VerifyResult struct {
	Format  archive.Format
	Entries int
	Size    int64
	// Record is nil when the archive was not written by gpucompress or
	// has been forgotten; only decoding is checked then.
	Record     *storage.Record
	Mismatched []string // Content differs from the recorded hash
	Missing    []string // Recorded but absent from the archive
	Unexpected []string // Present but not recorded
}

// OK reports whether the archive matched its record.
func (r *VerifyResult) OK() bool {
	return len(r.Mismatched) == 0 && len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// Verify decodes an archive fully and checks entry hashes against the
// catalog manifest when one exists.
func (a *Archiver) Verify(ctx context.Context, path string, format archive.Format, password []byte) (*VerifyResult, error) {
	f, entries, err := a.Open(ctx, path, format, password)
	if err != nil {
		return nil, err
	}
	defer clearEntries(entries)
	entries = archive.Dedupe(entries)

	result := &VerifyResult{Format: f, Entries: len(entries), Size: archive.TotalSize(entries)}
	if a.opts.Catalog == nil {
		return result, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	rec, err := a.opts.Catalog.FindByPath(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if rec == nil {
		return result, nil
	}
	result.Record = rec

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name] = true
		switch {
		case rec.FindEntry(e.Name) == nil:
			result.Unexpected = append(result.Unexpected, e.Name)
		case !rec.Verify(e.Name, e.Data):
			result.Mismatched = append(result.Mismatched, e.Name)
		}
	}
	for _, m := range rec.Entries {
		if !present[m.Name] {
			result.Missing = append(result.Missing, m.Name)
		}
	}
	return result, nil
}

// DiffResult summarises a comparison between an archive and a directory.
type DiffResult struct {
	Changed   []string
	Unchanged []string
	Missing   []string // In the archive but not on disk
}

// Diff compares archive entries with files under dir and writes unified
// diffs for changed text files to out.
func (a *Archiver) Diff(ctx context.Context, path string, format archive.Format, password []byte, dir string, out io.Writer) (*DiffResult, error) {
	_, entries, err := a.Open(ctx, path, format, password)
	if err != nil {
		return nil, err
	}
	defer clearEntries(entries)
	entries = archive.Dedupe(entries)

	result := &DiffResult{}
	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		for _, e := range entries {
			result.Missing = append(result.Missing, e.Name)
		}
		return result, nil
	}

	dest, err := security.Open(dir)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name, err := security.CleanName(e.Name)
		if err != nil {
			a.log.Warnf("%s: invalid path in archive: %v", e.Name, err)
			continue
		}

		localData, err := dest.ReadFile(name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				result.Missing = append(result.Missing, name)
				fmt.Fprintf(out, "Only in archive: %s\n", name)
				continue
			}
			a.log.Errorf("cannot read %s: %v", name, err)
			continue
		}

		diff := Conflict{Entry: archive.Entry{Name: name, Data: e.Data}, Local: localData}.UnifiedDiff()
		if diff == "" {
			result.Unchanged = append(result.Unchanged, name)
			continue
		}
		result.Changed = append(result.Changed, name)
		fmt.Fprint(out, diff)
	}
	return result, nil
}

// SealFile wraps any file in the password envelope.
func SealFile(in, out string, password []byte, force bool) error {
	if len(password) == 0 {
		return ErrPasswordRequired
	}
	if err := checkOutput(out, force); err != nil {
		return err
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}
	defer crypto.ClearBytes(data)

	env, err := crypto.Encrypt(data, password)
	if err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}
	return writeFileAtomic(out, env, ArchivePerm)
}

// UnsealFile removes the envelope from a sealed file.
func UnsealFile(in, out string, password []byte, force bool) error {
	if len(password) == 0 {
		return ErrPasswordRequired
	}
	if err := checkOutput(out, force); err != nil {
		return err
	}
	env, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}

	data, err := crypto.Decrypt(env, password)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(data)
	return writeFileAtomic(out, data, ArchivePerm)
}

// UnsealedName strips the .enc suffix, or appends .dec when there is none.
func UnsealedName(path string) string {
	if trimmed, ok := strings.CutSuffix(path, archive.EncryptedSuffix); ok && trimmed != "" {
		return trimmed
	}
	return path + ".dec"
}

// Rekey re-encrypts an enveloped archive under a new password. The
// container bytes are untouched.
func (a *Archiver) Rekey(path string, current, next []byte) error {
	if len(current) == 0 || len(next) == 0 {
		return ErrPasswordRequired
	}
	if f, _, err := archive.FormatFromPath(path); err == nil && a.registry.NativePassword(f) {
		return archive.NewCodecError(f, "rekey", archive.ErrNotImplemented)
	}

	env, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	if len(env) < crypto.MinEnvelopeSize {
		return fmt.Errorf("%w: %w", ErrNotEnveloped, crypto.ErrTooShort)
	}

	plain, err := crypto.Decrypt(env, current)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(plain)

	rewrapped, err := crypto.Encrypt(plain, next)
	if err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}
	return writeFileAtomic(path, rewrapped, ArchivePerm)
}

func checkOutput(out string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, out)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".gpucompress-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// clearEntries zeroes decoded entry data once it is no longer needed.
func clearEntries(entries []archive.Entry) {
	for i := range entries {
		crypto.ClearBytes(entries[i].Data)
	}
}
