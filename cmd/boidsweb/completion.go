package main

import (
	"fmt"
)

func (c *cli) usageCompletion() {
	fmt.Fprint(c.stderr, `Generate shell completion script

Usage:
  boidsweb completion <shell>

Shells:
  bash, zsh, fish

Examples:
  boidsweb completion bash > /etc/bash_completion.d/boidsweb
  boidsweb completion zsh > "${fpath[1]}/_boidsweb"
  boidsweb completion fish > ~/.config/fish/completions/boidsweb.fish
`)
}

func (c *cli) cmdCompletion(args []string) int {
	if len(args) < 1 {
		c.usageCompletion()
		return 2
	}

	switch args[0] {
	case "bash":
		fmt.Fprint(c.stdout, bashCompletion)
	case "zsh":
		fmt.Fprint(c.stdout, zshCompletion)
	case "fish":
		fmt.Fprint(c.stdout, fishCompletion)
	case "--help", "-h":
		c.usageCompletion()
	default:
		c.errOut.Error(fmt.Sprintf("Unsupported shell: %s", args[0]))
		fmt.Fprintln(c.stderr, "Supported: bash, zsh, fish")
		return 2
	}
	return 0
}

const bashCompletion = `# boidsweb bash completion
_boidsweb() {
    local cur prev
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    commands="build clean doctor inspect events serve completion version help"

    case "${prev}" in
        boidsweb)
            COMPREPLY=( $(compgen -W "${commands} --config --dry-run" -- ${cur}) )
            return 0
            ;;
        build)
            local opts="--config --dry-run --parallel --no-verify --json --verbose --quiet --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            return 0
            ;;
        clean)
            local opts="--config --dry-run --state --all --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            return 0
            ;;
        doctor)
            COMPREPLY=( $(compgen -W "--config --verbose --help" -- ${cur}) )
            return 0
            ;;
        inspect)
            COMPREPLY=( $(compgen -W "--json --help" -- ${cur}) $(compgen -f -X '!*.wasm' -- ${cur}) )
            return 0
            ;;
        events)
            COMPREPLY=( $(compgen -W "--config --build --level --list --json --help" -- ${cur}) )
            return 0
            ;;
        --level)
            COMPREPLY=( $(compgen -W "info error" -- ${cur}) )
            return 0
            ;;
        serve)
            local opts="--config --addr --dir --build --verbose --quiet --help"
            COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            return 0
            ;;
        --config)
            COMPREPLY=( $(compgen -f -X '!*.y*ml' -- ${cur}) )
            return 0
            ;;
        --dir)
            COMPREPLY=( $(compgen -d -- ${cur}) )
            return 0
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            return 0
            ;;
        help)
            COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
            return 0
            ;;
    esac
}
complete -F _boidsweb boidsweb
`

const zshCompletion = `#compdef boidsweb

_boidsweb() {
    local -a commands
    commands=(
        'build:Compile, stage web/dist and generate bindings'
        'clean:Remove build output and state'
        'doctor:Check tools, target and project layout'
        'inspect:Show exports and imports of a .wasm file'
        'events:Show recorded build events'
        'serve:Serve the output directory over HTTP'
        'completion:Generate shell completion'
        'version:Show version'
        'help:Show help'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[2] in
                build)
                    _arguments \
                        '--config[Config file]:file:_files -g "*.y(a|)ml"' \
                        '--dry-run[Print the planned steps]' \
                        '--parallel[Stage while compiling]' \
                        '--no-verify[Skip the artifact check]' \
                        '--json[Print the result as JSON]' \
                        '--verbose[Debug logging]' \
                        '--quiet[Only warnings and errors]'
                    ;;
                clean)
                    _arguments \
                        '--config[Config file]:file:_files -g "*.y(a|)ml"' \
                        '--dry-run[Show what would be removed]' \
                        '--state[Also remove logs and events]' \
                        '--all[Same as --state]'
                    ;;
                doctor)
                    _arguments \
                        '--config[Config file]:file:_files -g "*.y(a|)ml"' \
                        '--verbose[Debug logging]'
                    ;;
                inspect)
                    _arguments \
                        '--json[Print the report as JSON]' \
                        '1:module:_files -g "*.wasm"'
                    ;;
                events)
                    _arguments \
                        '--config[Config file]:file:_files -g "*.y(a|)ml"' \
                        '--build[Build ID]:id:' \
                        '--level[Filter by level]:level:(info error)' \
                        '--list[List recorded builds]' \
                        '--json[Output raw JSON lines]'
                    ;;
                serve)
                    _arguments \
                        '--config[Config file]:file:_files -g "*.y(a|)ml"' \
                        '--addr[Listen address]:address:' \
                        '--dir[Directory to serve]:directory:_files -/' \
                        '--build[Build before serving]' \
                        '--verbose[Log every request]' \
                        '--quiet[Only warnings and errors]'
                    ;;
                completion)
                    _arguments '1:shell:(bash zsh fish)'
                    ;;
                help)
                    _describe 'command' commands
                    ;;
            esac
            ;;
    esac
}

_boidsweb "$@"
`

const fishCompletion = `# boidsweb fish completion
complete -c boidsweb -e

# Commands
complete -c boidsweb -n __fish_use_subcommand -a build -d 'Compile, stage web/dist and generate bindings'
complete -c boidsweb -n __fish_use_subcommand -a clean -d 'Remove build output and state'
complete -c boidsweb -n __fish_use_subcommand -a doctor -d 'Check tools, target and project layout'
complete -c boidsweb -n __fish_use_subcommand -a inspect -d 'Show exports and imports of a .wasm file'
complete -c boidsweb -n __fish_use_subcommand -a events -d 'Show recorded build events'
complete -c boidsweb -n __fish_use_subcommand -a serve -d 'Serve the output directory over HTTP'
complete -c boidsweb -n __fish_use_subcommand -a completion -d 'Generate shell completion'
complete -c boidsweb -n __fish_use_subcommand -a version -d 'Show version'
complete -c boidsweb -n __fish_use_subcommand -a help -d 'Show help'

# Shared options
complete -c boidsweb -n '__fish_seen_subcommand_from build clean doctor events serve' -l config -d 'Config file' -r
complete -c boidsweb -n '__fish_seen_subcommand_from build doctor serve' -l verbose -d 'Debug logging'
complete -c boidsweb -n '__fish_seen_subcommand_from build serve' -l quiet -d 'Only warnings and errors'

# build options
complete -c boidsweb -n '__fish_seen_subcommand_from build' -l dry-run -d 'Print the planned steps'
complete -c boidsweb -n '__fish_seen_subcommand_from build' -l parallel -d 'Stage while compiling'
complete -c boidsweb -n '__fish_seen_subcommand_from build' -l no-verify -d 'Skip the artifact check'
complete -c boidsweb -n '__fish_seen_subcommand_from build' -l json -d 'Print the result as JSON'

# clean options
complete -c boidsweb -n '__fish_seen_subcommand_from clean' -l dry-run -d 'Show what would be removed'
complete -c boidsweb -n '__fish_seen_subcommand_from clean' -l state -d 'Also remove logs and events'
complete -c boidsweb -n '__fish_seen_subcommand_from clean' -l all -d 'Same as --state'

# inspect options
complete -c boidsweb -n '__fish_seen_subcommand_from inspect' -l json -d 'Print the report as JSON'

# events options
complete -c boidsweb -n '__fish_seen_subcommand_from events' -l build -d 'Build ID' -x
complete -c boidsweb -n '__fish_seen_subcommand_from events' -l level -d 'Filter by level' -xa 'info error'
complete -c boidsweb -n '__fish_seen_subcommand_from events' -l list -d 'List recorded builds'
complete -c boidsweb -n '__fish_seen_subcommand_from events' -l json -d 'Output raw JSON lines'

# serve options
complete -c boidsweb -n '__fish_seen_subcommand_from serve' -l addr -d 'Listen address' -x
complete -c boidsweb -n '__fish_seen_subcommand_from serve' -l dir -d 'Directory to serve' -xa '(__fish_complete_directories)'
complete -c boidsweb -n '__fish_seen_subcommand_from serve' -l build -d 'Build before serving'

# completion shells
complete -c boidsweb -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish'
`
