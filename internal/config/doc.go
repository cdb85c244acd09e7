// Package config manages the feathertrace user configuration file.
//
// The file holds defaults for the CLI so a developer debugging the same board
// every day does not have to repeat --board, --elf-path or tool paths.
// Command-line flags always win over the file.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/feathertrace/config.yaml or $HOME/.config/feathertrace/config.yaml
//   - macOS: $HOME/.config/feathertrace/config.yaml
//   - Windows: %LOCALAPPDATA%\feathertrace\config.yaml
//
// # Example
//
//	version: 1
//	board: feather_m0
//	elf_path: /home/me/sketches/logger/build/logger.ino.elf
//	bossac:
//	  path: /opt/bossa/bin/bossac
//	openocd:
//	  gdb_path: arm-none-eabi-gdb
//	  host: localhost
//	  port: 3333
//	timeout: 2m
//	demangle: full
//	format: text
package config
