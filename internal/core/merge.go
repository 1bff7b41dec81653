package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/zeebo/blake3"
	"golang.org/x/term"

	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/security"
)

const (
	textSampleSize  = 8192 // leading bytes inspected by looksLikeText
	maxControlPct   = 10   // control bytes tolerated in text, in percent
	diffContext     = 3    // unchanged lines around each hunk
	mergeScratchTag = ".merge"
)

// ArchiveCopySuffix is appended to an entry name when both versions are kept.
const ArchiveCopySuffix = ".from-archive"

// MergeStrategy decides what extract does when a target file already
// exists with different content.
type MergeStrategy int

const (
	StrategyAsk MergeStrategy = iota
	StrategyKeepLocal
	StrategyOverwrite
	StrategyKeepBoth // archive data goes to <name>.from-archive[.N]
	StrategyAbort
)

var ErrConflict = errors.New("conflict with existing file")

var errMergeCancelled = errors.New("merge cancelled")

// ParseStrategy maps a config or flag value to a MergeStrategy.
func ParseStrategy(s string) (MergeStrategy, error) {
	for _, st := range []MergeStrategy{StrategyAsk, StrategyKeepLocal, StrategyOverwrite, StrategyKeepBoth, StrategyAbort} {
		if s == st.String() {
			return st, nil
		}
	}
	if s == "" {
		return StrategyAsk, nil
	}
	return StrategyAsk, fmt.Errorf("unknown conflict strategy %q", s)
}

func (s MergeStrategy) String() string {
	switch s {
	case StrategyKeepLocal:
		return "keep-local"
	case StrategyOverwrite:
		return "overwrite"
	case StrategyKeepBoth:
		return "keep-both"
	case StrategyAbort:
		return "abort"
	default:
		return "ask"
	}
}

// Conflict is an archive entry whose target already holds other content.
// Entry.Name is the cleaned name inside the destination.
type Conflict struct {
	Entry archive.Entry
	Local []byte
}

// Text reports whether both sides look like text.
func (c Conflict) Text() bool {
	return looksLikeText(c.Local) && looksLikeText(c.Entry.Data)
}

// UnifiedDiff renders the change from the local file to the archive entry.
// It is empty when both sides match.
func (c Conflict) UnifiedDiff() string {
	if sameContent(c.Local, c.Entry.Data) {
		return ""
	}
	if !c.Text() {
		return fmt.Sprintf("Binary entry %s differs\n", c.Entry.Name)
	}

	ops := lineOps(c.Local, c.Entry.Data)
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", c.Entry.Name, c.Entry.Name)
	for i := 0; i < len(ops); {
		for i < len(ops) && ops[i].kind == ' ' {
			i++
		}
		if i == len(ops) {
			break
		}

		last := i
		for j := i; j < len(ops); j++ {
			if ops[j].kind != ' ' {
				last = j
			} else if j-last > 2*diffContext {
				break
			}
		}
		start := max(0, i-diffContext)
		stop := min(len(ops), last+1+diffContext)
		writeHunk(&b, ops[start:stop])
		i = last + 1
	}
	return b.String()
}

// withMarkers returns the local file with each differing run wrapped in
// conflict markers. Shared lines appear once.
func (c Conflict) withMarkers() []byte {
	ops := lineOps(c.Local, c.Entry.Data)
	var buf bytes.Buffer
	for i := 0; i < len(ops); {
		if ops[i].kind == ' ' {
			buf.WriteString(ops[i].text)
			i++
			continue
		}
		var local, archived []string
		for ; i < len(ops) && ops[i].kind != ' '; i++ {
			if ops[i].kind == '-' {
				local = append(local, ops[i].text)
			} else {
				archived = append(archived, ops[i].text)
			}
		}
		buf.WriteString("<<<<<<< local\n")
		writeLines(&buf, local)
		buf.WriteString("=======\n")
		writeLines(&buf, archived)
		fmt.Fprintf(&buf, ">>>>>>> archive:%s\n", c.Entry.Name)
	}
	return buf.Bytes()
}

// lineOp is one line of a line-level diff. kind is ' ', '-' or '+'.
// oldLine and newLine are the 1-based positions the line sits at.
type lineOp struct {
	kind             byte
	text             string
	oldLine, newLine int
}

func lineOps(local, archived []byte) []lineOp {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(local), string(archived))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ops []lineOp
	oldN, newN := 0, 0
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			op := lineOp{text: line, oldLine: oldN + 1, newLine: newN + 1}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				op.kind = ' '
				oldN++
				newN++
			case diffmatchpatch.DiffDelete:
				op.kind = '-'
				oldN++
			case diffmatchpatch.DiffInsert:
				op.kind = '+'
				newN++
			}
			ops = append(ops, op)
		}
	}
	return ops
}

func writeHunk(b *strings.Builder, ops []lineOp) {
	oldCount, newCount := 0, 0
	for _, op := range ops {
		if op.kind != '+' {
			oldCount++
		}
		if op.kind != '-' {
			newCount++
		}
	}
	oldStart, newStart := ops[0].oldLine, ops[0].newLine
	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}

	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, op := range ops {
		b.WriteByte(op.kind)
		b.WriteString(op.text)
		if !strings.HasSuffix(op.text, "\n") {
			b.WriteString("\n\\ No newline at end of file\n")
		}
	}
}

func writeLines(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			buf.WriteByte('\n')
		}
	}
}

// hasMarkers reports whether any line still starts with a conflict marker.
func hasMarkers(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(line, []byte("<<<<<<< ")) ||
			bytes.HasPrefix(line, []byte(">>>>>>> ")) ||
			bytes.Equal(bytes.TrimRight(line, "\r"), []byte("=======")) {
			return true
		}
	}
	return false
}

// looksLikeText guesses text from the leading bytes: no NULs, valid UTF-8
// and few control characters.
func looksLikeText(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	sample := data[:min(len(data), textSampleSize)]
	// A multi-byte rune may straddle the sample boundary.
	for n := 1; n < utf8.UTFMax && len(sample) < len(data) && !utf8.Valid(sample); n++ {
		sample = sample[:len(sample)-1]
	}
	if !utf8.Valid(sample) {
		return false
	}

	control := 0
	for _, c := range sample {
		if (c < 0x20 && c != '\t' && c != '\n' && c != '\r') || c == 0x7f {
			control++
		}
	}
	return control*100 <= len(sample)*maxControlPct
}

// sameContent compares by BLAKE3 digest after a length check.
func sameContent(a, b []byte) bool {
	return len(a) == len(b) && blake3.Sum256(a) == blake3.Sum256(b)
}

// Resolver settles conflicts inside one extraction destination.
type Resolver struct {
	Dest     *security.Destination
	Strategy MergeStrategy

	// Out, Choose and Edit drive StrategyAsk. Nil values use the terminal
	// and $VISUAL or $EDITOR.
	Out    io.Writer
	Choose func() (string, error)
	Edit   func(file string) error
}

// Resolve applies the strategy to c and returns the name the archive data
// was written under. The name is empty when the local file was kept.
func (r *Resolver) Resolve(c Conflict) (string, error) {
	switch r.Strategy {
	case StrategyKeepLocal:
		return "", nil
	case StrategyOverwrite:
		return r.write(c.Entry.Name, c.Entry.Data)
	case StrategyKeepBoth:
		return r.keepBoth(c)
	case StrategyAbort:
		return "", fmt.Errorf("%w: %s", ErrConflict, c.Entry.Name)
	}
	return r.ask(c)
}

func (r *Resolver) ask(c Conflict) (string, error) {
	out := r.out()
	text := c.Text()
	kind := "binary"
	keys := "l, o, b, a"
	if text {
		kind = "text"
		keys = "l, o, d, e, b, a"
	}

	fmt.Fprintf(out, "\n%s exists and differs from the archive (%s)\n", c.Entry.Name, kind)
	fmt.Fprintln(out, "  [l] keep the local file")
	fmt.Fprintln(out, "  [o] overwrite with the archive entry")
	if text {
		fmt.Fprintln(out, "  [d] show the diff")
		fmt.Fprintln(out, "  [e] merge in an editor")
	}
	fmt.Fprintf(out, "  [b] keep both, archive entry goes to %s\n", ArchiveCopySuffix)
	fmt.Fprintln(out, "  [a] abort the extraction")

	for {
		fmt.Fprint(out, "choice: ")
		key, err := r.choose()
		if err != nil {
			return "", err
		}
		switch {
		case key == "l":
			return "", nil
		case key == "o":
			return r.write(c.Entry.Name, c.Entry.Data)
		case key == "b":
			return r.keepBoth(c)
		case key == "a":
			return "", fmt.Errorf("%w: %s", ErrConflict, c.Entry.Name)
		case key == "d" && text:
			fmt.Fprint(out, c.UnifiedDiff())
		case key == "e" && text:
			merged, err := r.editMerge(c)
			if err != nil {
				fmt.Fprintf(out, "merge failed: %v\n", err)
				continue
			}
			return r.write(c.Entry.Name, merged)
		default:
			fmt.Fprintf(out, "enter one of %s\n", keys)
		}
	}
}

func (r *Resolver) write(name string, data []byte) (string, error) {
	if err := r.Dest.WriteFile(name, data, FilePerm); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", name, err)
	}
	return name, nil
}

// keepBoth leaves the local file alone and writes the entry to the first
// free <name>.from-archive[.N] slot.
func (r *Resolver) keepBoth(c Conflict) (string, error) {
	candidate := c.Entry.Name + ArchiveCopySuffix
	for i := 1; i <= MaxArchiveCopies; i++ {
		taken, err := r.Dest.Exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return r.write(candidate, c.Entry.Data)
		}
		candidate = fmt.Sprintf("%s%s.%d", c.Entry.Name, ArchiveCopySuffix, i)
	}
	return "", fmt.Errorf("%s: too many archive copies (max %d)", c.Entry.Name, MaxArchiveCopies)
}

// editMerge writes a marked-up copy next to the target inside the
// destination, hands it to the editor and reads back the result.
func (r *Resolver) editMerge(c Conflict) ([]byte, error) {
	scratch := mergeScratchName(c.Entry.Name)
	taken, err := r.Dest.Exists(scratch)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%s already exists", scratch)
	}
	if err := r.Dest.WriteFile(scratch, c.withMarkers(), ArchivePerm); err != nil {
		return nil, err
	}
	defer r.Dest.Remove(scratch)

	file, err := r.Dest.Target(scratch)
	if err != nil {
		return nil, err
	}
	if err := r.edit(file); err != nil {
		return nil, err
	}
	merged, err := r.Dest.ReadFile(scratch)
	if err != nil {
		return nil, fmt.Errorf("cannot read merged file: %w", err)
	}

	if len(merged) == 0 && !r.confirm("merged file is empty, use it anyway?") {
		return nil, errMergeCancelled
	}
	if hasMarkers(merged) && !r.confirm("conflict markers remain, use the file anyway?") {
		return nil, errMergeCancelled
	}
	return merged, nil
}

// mergeScratchName hides the scratch copy and keeps the extension so
// editors pick the right syntax: src/app.yaml -> src/.app.merge.yaml.
func mergeScratchName(name string) string {
	dir, base := path.Split(name)
	ext := path.Ext(base)
	return dir + "." + strings.TrimSuffix(base, ext) + mergeScratchTag + ext
}

func (r *Resolver) confirm(question string) bool {
	fmt.Fprintf(r.out(), "%s [y/N]: ", question)
	key, err := r.choose()
	return err == nil && key == "y"
}

func (r *Resolver) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

func (r *Resolver) choose() (string, error) {
	choose := r.Choose
	if choose == nil {
		choose = readKey
	}
	key, err := choose()
	return strings.ToLower(strings.TrimSpace(key)), err
}

func (r *Resolver) edit(file string) error {
	if r.Edit != nil {
		return r.Edit(file)
	}
	return runEditor(file)
}

// readKey reads one keypress in raw mode, or a line when stdin is not a
// terminal.
func readKey() (string, error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		var line string
		if _, err := fmt.Scanln(&line); err != nil {
			return "", err
		}
		return line, nil
	}
	defer term.Restore(fd, state)

	key := make([]byte, 1)
	if _, err := os.Stdin.Read(key); err != nil {
		return "", err
	}
	fmt.Printf("%c\r\n", key[0])
	return string(key), nil
}

// runEditor opens file in $VISUAL, $EDITOR or the platform default. The
// variable may carry arguments, as in "code --wait".
func runEditor(file string) error {
	command := os.Getenv("VISUAL")
	if command == "" {
		command = os.Getenv("EDITOR")
	}
	if command == "" {
		command = "vi"
		if runtime.GOOS == "windows" {
			command = "notepad"
		}
	}

	args := strings.Fields(command)
	bin, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("editor %q not found, set VISUAL or EDITOR: %w", args[0], err)
	}
	cmd := exec.Command(bin, append(args[1:], file)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	var exitErr *exec.ExitError
	if err := cmd.Run(); errors.As(err, &exitErr) {
		return fmt.Errorf("editor exited with code %d", exitErr.ExitCode())
	} else if err != nil {
		return err
	}
	return nil
}
