// Package cli implements the nodebeat command-line interface.
//
// The root command is the polling run itself; everything else is a small
// helper around the same configuration:
//
//	nodebeat [flags] <command>  - Poll the selected targets until interrupted
//	nodebeat targets            - Show each target's index and resolved connection
//	nodebeat init               - Create .nodebeat.yaml
//	nodebeat version            - Print build information
//	nodebeat completion         - Generate shell completion scripts
//
// # Configuration
//
// Settings merge in this order, highest first: flags, NODEBEAT_* environment
// variables, the config file, then defaults. The config file is the one
// passed with --config, else ./.nodebeat.yaml, else
// ~/.config/nodebeat/config.yaml.
//
// # Output
//
// On a terminal the run shows a Bubble Tea dashboard. Otherwise, or with
// --plain, every status line is printed as "<target>: <line>". While the
// dashboard owns the screen, log output goes to $NODEBEAT_LOG or nowhere.
//
// Fatal errors (bad selection, unreadable ssh config, nothing pollable) are
// printed in the structured error format and exit with status 1.
package cli
