package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_gpucompress() {
    local cur prev words cword
    _init_completion || return

    local commands="compress extract list verify diff seal unseal rekey formats accel history forget compact keyring config help completion"
    local global="--config -v --verbose --debug --accel --level"
    local formats="zip 7z tar.zst tar.lz4 lat paqg"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    case "$prev" in
        -f|--format)
            COMPREPLY=($(compgen -W "$formats" -- "$cur"))
            return
            ;;
        --accel)
            COMPREPLY=($(compgen -W "auto cuda vulkan software none" -- "$cur"))
            return
            ;;
        --conflict)
            COMPREPLY=($(compgen -W "ask keep-local overwrite keep-both abort" -- "$cur"))
            return
            ;;
        -d|--dest)
            _filedir -d
            return
            ;;
    esac

    local cmd="${words[1]}"
    case "$cmd" in
        compress)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "$global -o --output -f --format -e --encrypt --force --save-password" -- "$cur"))
            else
                _filedir
            fi
            ;;
        extract)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "$global -d --dest -f --format -p --password --conflict --force --keep-local --keep-both" -- "$cur"))
            else
                _filedir
            fi
            ;;
        list|verify|diff)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "$global -f --format -p --password" -- "$cur"))
            else
                _filedir
            fi
            ;;
        seal|unseal)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "$global -o --output --force" -- "$cur"))
            else
                _filedir
            fi
            ;;
        rekey)
            _filedir
            ;;
        history)
            COMPREPLY=($(compgen -W "$global --entries" -- "$cur"))
            ;;
        forget)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "$global --keep-password" -- "$cur"))
            else
                _filedir
            fi
            ;;
        keyring)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            else
                _filedir
            fi
            ;;
        config)
            COMPREPLY=($(compgen -W "init show" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _gpucompress gpucompress
`

const zshCompletion = `#compdef gpucompress

_gpucompress() {
    local -a commands
    commands=(
        'compress:Pack files and directories into an archive'
        'extract:Unpack an archive into a directory'
        'list:List the entries of an archive'
        'verify:Decode an archive and check it against its record'
        'diff:Compare an archive with files on disk'
        'seal:Encrypt any file with a password'
        'unseal:Decrypt a sealed file'
        'rekey:Change the password of an encrypted archive'
        'formats:List supported formats'
        'accel:Show GPU devices and the selected accelerator'
        'history:List archives recorded in the catalog'
        'forget:Remove archives from the catalog'
        'compact:Compact the catalog to reclaim disk space'
        'keyring:Manage archive passwords in the OS keyring'
        'config:Create or show the configuration'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    local -a global
    global=(
        '--config[Config file]:file:_files'
        {-v,--verbose}'[Verbose output]'
        '--debug[Debug output]'
        '--accel[Accelerator backend]:backend:(auto cuda vulkan software none)'
        '--level[Compression level 1-9]:level:(1 2 3 4 5 6 7 8 9)'
    )

    _arguments -C \
        '1: :->command' \
        '*:: :->args'

    case "$state" in
        command)
            _describe -t commands 'gpucompress commands' commands
            ;;
        args)
            case "${words[1]}" in
                compress)
                    _arguments $global \
                        {-o,--output}'[Output archive]:file:_files' \
                        {-f,--format}'[Archive format]:format:(zip tar.zst tar.lz4 lat paqg)' \
                        {-e,--encrypt}'[Protect with a password]' \
                        '--force[Overwrite an existing archive]' \
                        '--save-password[Store the password in the keyring]' \
                        '*:input:_files'
                    ;;
                extract)
                    _arguments $global \
                        {-d,--dest}'[Destination directory]:dir:_files -/' \
                        {-f,--format}'[Archive format]:format:(zip 7z tar.zst tar.lz4 lat paqg)' \
                        {-p,--password}'[Ask for a password]' \
                        '--conflict[Conflict strategy]:strategy:(ask keep-local overwrite keep-both abort)' \
                        '--force[Overwrite local files without asking]' \
                        '--keep-local[Skip all conflicts, keep local versions]' \
                        '--keep-both[Keep both local and archived versions]' \
                        '1:archive:_files' \
                        '*:entry:'
                    ;;
                list|verify|diff)
                    _arguments $global \
                        {-f,--format}'[Archive format]:format:(zip 7z tar.zst tar.lz4 lat paqg)' \
                        {-p,--password}'[Ask for a password]' \
                        '*:file:_files'
                    ;;
                seal|unseal)
                    _arguments $global \
                        {-o,--output}'[Output file]:file:_files' \
                        '--force[Overwrite an existing output]' \
                        '1:file:_files'
                    ;;
                rekey|forget)
                    _arguments $global '*:archive:_files'
                    ;;
                keyring)
                    _arguments '1:subcommand:(save delete status)' '2:archive:_files'
                    ;;
                config)
                    _values 'subcommand' init show
                    ;;
                help)
                    _describe -t commands 'gpucompress commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_gpucompress "$@"
`

const fishCompletion = `# gpucompress fish completions

set -l commands compress extract list verify diff seal unseal rekey formats accel history forget compact keyring config help completion

# Commands
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a compress -d 'Pack files into an archive'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a extract -d 'Unpack an archive'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a list -d 'List archive entries'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a verify -d 'Check an archive'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a diff -d 'Compare archive with files'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a seal -d 'Encrypt a file'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a unseal -d 'Decrypt a sealed file'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a rekey -d 'Change archive password'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a formats -d 'List formats'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a accel -d 'Show accelerators'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a history -d 'List recorded archives'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a forget -d 'Remove from catalog'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a compact -d 'Compact the catalog'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a keyring -d 'Manage keyring passwords'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a config -d 'Create or show config'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a help -d 'Show help'
complete -c gpucompress -n "not __fish_seen_subcommand_from $commands" -f -a completion -d 'Generate completions'

# Global flags
complete -c gpucompress -l config -r -d 'Config file'
complete -c gpucompress -s v -l verbose -d 'Verbose output'
complete -c gpucompress -l debug -d 'Debug output'
complete -c gpucompress -l accel -x -a "auto cuda vulkan software none" -d 'Accelerator backend'
complete -c gpucompress -l level -x -a "1 2 3 4 5 6 7 8 9" -d 'Compression level'

# Archive flags
complete -c gpucompress -n "__fish_seen_subcommand_from compress extract list verify diff" -s f -l format -x -a "zip 7z tar.zst tar.lz4 lat paqg" -d 'Archive format'
complete -c gpucompress -n "__fish_seen_subcommand_from compress seal unseal" -s o -l output -r -d 'Output file'
complete -c gpucompress -n "__fish_seen_subcommand_from compress seal unseal extract" -l force -d 'Overwrite'
complete -c gpucompress -n "__fish_seen_subcommand_from compress" -s e -l encrypt -d 'Protect with a password'
complete -c gpucompress -n "__fish_seen_subcommand_from compress" -l save-password -d 'Store password in keyring'
complete -c gpucompress -n "__fish_seen_subcommand_from extract list verify diff" -s p -l password -d 'Ask for a password'

# extract flags
complete -c gpucompress -n "__fish_seen_subcommand_from extract" -s d -l dest -x -a "(__fish_complete_directories)" -d 'Destination directory'
complete -c gpucompress -n "__fish_seen_subcommand_from extract" -l conflict -x -a "ask keep-local overwrite keep-both abort" -d 'Conflict strategy'
complete -c gpucompress -n "__fish_seen_subcommand_from extract" -l keep-local -d 'Keep local versions'
complete -c gpucompress -n "__fish_seen_subcommand_from extract" -l keep-both -d 'Keep both versions'

# history and forget flags
complete -c gpucompress -n "__fish_seen_subcommand_from history" -l entries -d 'Show recorded entries'
complete -c gpucompress -n "__fish_seen_subcommand_from forget" -l keep-password -d 'Keep keyring password'

# Subcommands
complete -c gpucompress -n "__fish_seen_subcommand_from keyring" -f -a "save delete status"
complete -c gpucompress -n "__fish_seen_subcommand_from config" -f -a "init show"
complete -c gpucompress -n "__fish_seen_subcommand_from help" -f -a "$commands"
complete -c gpucompress -n "__fish_seen_subcommand_from completion" -f -a "bash zsh fish"
`
