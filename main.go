package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/Murchiz/Gpucompress/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compress", "c":
		runCompress(ctx, os.Args[2:])
	case "extract", "x":
		runExtract(ctx, os.Args[2:])
	case "list", "ls":
		runList(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "seal":
		runSeal(ctx, os.Args[2:])
	case "unseal":
		runUnseal(ctx, os.Args[2:])
	case "rekey", "passwd":
		runRekey(ctx, os.Args[2:])
	case "formats":
		runFormats(ctx, os.Args[2:])
	case "accel":
		runAccel(ctx, os.Args[2:])
	case "history":
		runHistory(ctx, os.Args[2:])
	case "forget":
		runForget(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "config":
		runConfig(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newFlagSet returns a flag set carrying the global flags.
func newFlagSet(name string) (*flag.FlagSet, *cmd.Globals) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	g := &cmd.Globals{}
	fs.StringVar(&g.ConfigPath, "config", "", "Config file")
	fs.BoolVarP(&g.Verbose, "verbose", "v", false, "Verbose output")
	fs.BoolVar(&g.Debug, "debug", false, "Debug output")
	fs.StringVar(&g.Accelerator, "accel", "", "Accelerator backend: auto, cuda, vulkan, software, none")
	fs.IntVar(&g.Level, "level", 0, "Compression level 1-9")
	fs.Usage = func() { printCommandHelp(name) }
	return fs, g
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// requireArgs exits with the usage line unless fs has at least n arguments.
func requireArgs(fs *flag.FlagSet, n int, usage string) {
	if fs.NArg() < n {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}

func runCompress(ctx context.Context, args []string) {
	fs, g := newFlagSet("compress")
	var opts cmd.CompressOptions
	fs.StringVarP(&opts.Output, "output", "o", "", "Output archive")
	fs.StringVarP(&opts.Format, "format", "f", "", "Archive format")
	fs.BoolVarP(&opts.Encrypt, "encrypt", "e", false, "Protect the archive with a password")
	fs.BoolVar(&opts.Force, "force", false, "Overwrite an existing archive")
	fs.BoolVar(&opts.SavePassword, "save-password", false, "Store the password in the keyring")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress compress [flags] <file|dir> [file|dir...]")

	cmd.Compress(ctx, cmd.Setup(*g), fs.Args(), opts)
}

func runExtract(ctx context.Context, args []string) {
	fs, g := newFlagSet("extract")
	var opts cmd.ExtractOptions
	fs.StringVarP(&opts.Dest, "dest", "d", ".", "Destination directory")
	fs.StringVarP(&opts.Format, "format", "f", "", "Archive format (default: detect)")
	fs.StringVar(&opts.Conflict, "conflict", "", "Conflict strategy: ask, keep-local, overwrite, keep-both, abort")
	fs.BoolVarP(&opts.Password, "password", "p", false, "Ask for a password")
	force := fs.Bool("force", false, "Overwrite local files without asking")
	keepLocal := fs.Bool("keep-local", false, "Skip all conflicts, keep local versions")
	keepBoth := fs.Bool("keep-both", false, "Keep both local and archived versions")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress extract [flags] <archive> [entry...]")

	switch {
	case *force:
		opts.Conflict = "overwrite"
	case *keepLocal:
		opts.Conflict = "keep-local"
	case *keepBoth:
		opts.Conflict = "keep-both"
	}
	opts.Patterns = fs.Args()[1:]

	cmd.Extract(ctx, cmd.Setup(*g), fs.Arg(0), opts)
}

func runList(ctx context.Context, args []string) {
	fs, g := newFlagSet("list")
	var opts cmd.ListOptions
	fs.StringVarP(&opts.Format, "format", "f", "", "Archive format (default: detect)")
	fs.BoolVarP(&opts.Password, "password", "p", false, "Ask for a password")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress list [flags] <archive>")

	cmd.List(ctx, cmd.Setup(*g), fs.Arg(0), opts)
}

func runVerify(ctx context.Context, args []string) {
	fs, g := newFlagSet("verify")
	format := fs.StringP("format", "f", "", "Archive format (default: detect)")
	password := fs.BoolP("password", "p", false, "Ask for a password")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress verify [flags] <archive>")

	cmd.Verify(ctx, cmd.Setup(*g), fs.Arg(0), *format, *password)
}

func runDiff(ctx context.Context, args []string) {
	fs, g := newFlagSet("diff")
	format := fs.StringP("format", "f", "", "Archive format (default: detect)")
	password := fs.BoolP("password", "p", false, "Ask for a password")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress diff [flags] <archive> [dir]")

	dir := "."
	if fs.NArg() > 1 {
		dir = fs.Arg(1)
	}
	cmd.Diff(ctx, cmd.Setup(*g), fs.Arg(0), dir, *format, *password)
}

func runSeal(_ context.Context, args []string) {
	fs, g := newFlagSet("seal")
	output := fs.StringP("output", "o", "", "Output file (default: <file>.enc)")
	force := fs.Bool("force", false, "Overwrite an existing output")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress seal [flags] <file>")

	cmd.Seal(cmd.Setup(*g), fs.Arg(0), *output, *force)
}

func runUnseal(_ context.Context, args []string) {
	fs, g := newFlagSet("unseal")
	output := fs.StringP("output", "o", "", "Output file (default: <file> without .enc)")
	force := fs.Bool("force", false, "Overwrite an existing output")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress unseal [flags] <file>")

	cmd.Unseal(cmd.Setup(*g), fs.Arg(0), *output, *force)
}

func runRekey(_ context.Context, args []string) {
	fs, g := newFlagSet("rekey")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress rekey <archive>")

	cmd.Rekey(cmd.Setup(*g), fs.Arg(0))
}

func runFormats(_ context.Context, args []string) {
	fs, g := newFlagSet("formats")
	parse(fs, args)

	cmd.Formats(cmd.Setup(*g))
}

func runAccel(_ context.Context, args []string) {
	fs, g := newFlagSet("accel")
	parse(fs, args)

	cmd.Accel(cmd.Setup(*g))
}

func runHistory(_ context.Context, args []string) {
	fs, g := newFlagSet("history")
	entries := fs.Bool("entries", false, "Show recorded entries")
	parse(fs, args)

	cmd.History(cmd.Setup(*g), *entries)
}

func runForget(_ context.Context, args []string) {
	fs, g := newFlagSet("forget")
	keepPassword := fs.Bool("keep-password", false, "Keep the keyring password")
	parse(fs, args)

	cmd.Forget(cmd.Setup(*g), fs.Args(), *keepPassword)
}

func runCompact(_ context.Context, args []string) {
	fs, g := newFlagSet("compact")
	parse(fs, args)

	cmd.Compact(cmd.Setup(*g))
}

func runKeyring(ctx context.Context, args []string) {
	fs, g := newFlagSet("keyring")
	parse(fs, args)
	requireArgs(fs, 2, "gpucompress keyring <save|delete|status> <archive>")

	archivePath := fs.Arg(1)
	switch fs.Arg(0) {
	case "save":
		cmd.KeyringSave(ctx, cmd.Setup(*g), archivePath)
	case "delete":
		cmd.KeyringDelete(archivePath)
	case "status":
		cmd.KeyringStatus(archivePath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring subcommand: %s\n", fs.Arg(0))
		fmt.Fprintln(os.Stderr, "Usage: gpucompress keyring <save|delete|status> <archive>")
		os.Exit(1)
	}
}

func runConfig(_ context.Context, args []string) {
	fs, g := newFlagSet("config")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	parse(fs, args)
	requireArgs(fs, 1, "gpucompress config <init|show>")

	switch fs.Arg(0) {
	case "init":
		cmd.ConfigInit(g.ConfigPath, *force)
	case "show":
		cmd.ConfigShow(cmd.Setup(*g))
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", fs.Arg(0))
		fmt.Fprintln(os.Stderr, "Usage: gpucompress config <init|show>")
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gpucompress completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("gpucompress - Archive tool with GPU-assisted codecs")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gpucompress <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  compress, c   Pack files and directories into an archive")
	fmt.Println("  extract, x    Unpack an archive into a directory")
	fmt.Println("  list, ls      List the entries of an archive")
	fmt.Println("  verify        Decode an archive and check it against its record")
	fmt.Println("  diff          Compare an archive with files on disk")
	fmt.Println("  seal          Encrypt any file with a password")
	fmt.Println("  unseal        Decrypt a sealed file")
	fmt.Println("  rekey         Change the password of an encrypted archive")
	fmt.Println("  formats       List supported formats")
	fmt.Println("  accel         Show GPU devices and the selected accelerator")
	fmt.Println("  history       List archives recorded in the catalog")
	fmt.Println("  forget        Remove archives from the catalog")
	fmt.Println("  compact       Compact the catalog to reclaim disk space")
	fmt.Println("  keyring       Manage archive passwords in the OS keyring")
	fmt.Println("  config        Create or show the configuration")
	fmt.Println("  completion    Generate shell completions")
	fmt.Println("  help          Show help for a command")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  --config <file>   Config file (default: $GPUCOMPRESS_CONFIG or the user config dir)")
	fmt.Println("  -v, --verbose     Verbose output")
	fmt.Println("  --debug           Debug output")
	fmt.Println("  --accel <name>    Accelerator backend: auto, cuda, vulkan, software, none")
	fmt.Println("  --level <1-9>     Compression level")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  gpucompress compress src/                  # Write src.tar.zst")
	fmt.Println("  gpucompress compress -e -f zip docs/       # Write docs.zip.enc")
	fmt.Println("  gpucompress extract docs.zip.enc -d out    # Decrypt and unpack into out/")
	fmt.Println("  gpucompress list backup.7z                 # Show entries")
	fmt.Println()
	fmt.Println("Use 'gpucompress help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "compress", "c":
		fmt.Println("gpucompress compress [flags] <file|dir> [file|dir...]")
		fmt.Println()
		fmt.Println("Packs files and directories into one archive.")
		fmt.Println("A file is stored under its base name; a directory keeps its name as a prefix.")
		fmt.Println("The format comes from --format, then the output extension, then the config.")
		fmt.Println("Written archives are recorded in the catalog for 'verify' and 'history'.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -o, --output <file>   Output archive (default: <first input><ext>)")
		fmt.Println("  -f, --format <name>   zip, tar.zst, tar.lz4, lat or paqg")
		fmt.Println("  -e, --encrypt         Protect with a password (adds .enc)")
		fmt.Println("  --force               Overwrite an existing archive")
		fmt.Println("  --save-password       Store the password in the keyring")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  gpucompress compress notes.txt               # notes.txt.tar.zst")
		fmt.Println("  gpucompress compress -f lat --accel software data/")
		fmt.Println("  gpucompress compress -e -o secrets.zip.enc .env keys/")
	case "extract", "x":
		fmt.Println("gpucompress extract [flags] <archive> [entry...]")
		fmt.Println()
		fmt.Println("Unpacks an archive below the destination directory.")
		fmt.Println("The format is detected unless --format is given.")
		fmt.Println("Entries may be exact names, directory prefixes or glob patterns.")
		fmt.Println("Entry names that would escape the destination are refused.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -d, --dest <dir>        Destination directory (default: .)")
		fmt.Println("  -f, --format <name>     Archive format")
		fmt.Println("  -p, --password          Ask for a password even without .enc")
		fmt.Println("  --conflict <strategy>   ask, keep-local, overwrite, keep-both or abort")
		fmt.Println("  --force                 Same as --conflict overwrite")
		fmt.Println("  --keep-local            Same as --conflict keep-local")
		fmt.Println("  --keep-both             Same as --conflict keep-both")
		fmt.Println()
		fmt.Println("Interactive mode (default):")
		fmt.Println("  - Skips unchanged files")
		fmt.Println("  - For conflicts, offers:")
		fmt.Println("    [l] Keep local version")
		fmt.Println("    [o] Overwrite with archive version")
		fmt.Println("    [d] Show diff (text files only)")
		fmt.Println("    [e] Edit merged (opens in $EDITOR, text files only)")
		fmt.Println("    [b] Keep both (save archive version as .from-archive)")
		fmt.Println("    [x] Skip this file")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  gpucompress extract src.tar.zst")
		fmt.Println("  gpucompress extract backup.zip -d restore \"*.conf\"")
		fmt.Println("  gpucompress extract --keep-both secrets.zip.enc")
	case "list", "ls":
		fmt.Println("gpucompress list [flags] <archive>")
		fmt.Println()
		fmt.Println("Lists the entries of an archive with their sizes.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -f, --format <name>   Archive format")
		fmt.Println("  -p, --password        Ask for a password even without .enc")
	case "verify":
		fmt.Println("gpucompress verify [flags] <archive>")
		fmt.Println()
		fmt.Println("Decodes every entry of an archive.")
		fmt.Println("When the archive is in the catalog, each entry is checked against")
		fmt.Println("the BLAKE3 hash recorded when it was written.")
		fmt.Println("Exits with status 1 on any mismatch.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -f, --format <name>   Archive format")
		fmt.Println("  -p, --password        Ask for a password even without .enc")
	case "diff":
		fmt.Println("gpucompress diff [flags] <archive> [dir]")
		fmt.Println()
		fmt.Println("Compares archive entries with files under dir (default: .).")
		fmt.Println("Shows a unified diff for changed text files.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -f, --format <name>   Archive format")
		fmt.Println("  -p, --password        Ask for a password even without .enc")
	case "seal":
		fmt.Println("gpucompress seal [flags] <file>")
		fmt.Println()
		fmt.Println("Encrypts any file with a password (AES-256-GCM, PBKDF2-SHA256).")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -o, --output <file>   Output file (default: <file>.enc)")
		fmt.Println("  --force               Overwrite an existing output")
	case "unseal":
		fmt.Println("gpucompress unseal [flags] <file>")
		fmt.Println()
		fmt.Println("Decrypts a file written by 'seal' or 'compress --encrypt'.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -o, --output <file>   Output file (default: <file> without .enc)")
		fmt.Println("  --force               Overwrite an existing output")
	case "rekey", "passwd":
		fmt.Println("gpucompress rekey <archive>")
		fmt.Println()
		fmt.Println("Changes the password of an encrypted archive.")
		fmt.Println("Only the envelope is rewritten; the archive is not recompressed.")
		fmt.Println("A password stored in the keyring is updated.")
	case "formats":
		fmt.Println("gpucompress formats")
		fmt.Println()
		fmt.Println("Lists supported formats, how each is protected by a password,")
		fmt.Println("and whether it can be written with the current accelerator.")
	case "accel":
		fmt.Println("gpucompress accel")
		fmt.Println()
		fmt.Println("Shows GPU devices found on this machine, the result of probing")
		fmt.Println("each backend, and the accelerator the codecs will use.")
	case "history":
		fmt.Println("gpucompress history [--entries]")
		fmt.Println()
		fmt.Println("Lists archives recorded in the catalog, oldest first.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --entries   Show recorded entries")
	case "forget":
		fmt.Println("gpucompress forget [--keep-password] <archive|id> [archive|id...]")
		fmt.Println()
		fmt.Println("Removes archives from the catalog. The archive files are kept.")
		fmt.Println("A stored keyring password is removed too.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --keep-password   Keep the keyring password")
	case "compact":
		fmt.Println("gpucompress compact")
		fmt.Println()
		fmt.Println("Compacts the catalog database to reclaim unused disk space.")
	case "keyring":
		fmt.Println("gpucompress keyring <save|delete|status> <archive>")
		fmt.Println()
		fmt.Println("Manages an archive's password in the OS keyring.")
		fmt.Println("'save' checks the password against the archive before storing it.")
	case "config":
		fmt.Println("gpucompress config <init|show> [--force]")
		fmt.Println()
		fmt.Println("'init' writes the default configuration to --config or the user config dir.")
		fmt.Println("'show' prints the effective configuration.")
	case "completion":
		fmt.Println("gpucompress completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(gpucompress completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(gpucompress completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  gpucompress completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
