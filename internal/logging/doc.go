// Package logging provides structured logging for feathertrace.
//
// The package wraps a global zap logger. Logging is silent unless a level is
// given on the command line (--log-level) or through FEATHERTRACE_LOG_LEVEL,
// so normal runs only show the recovered report.
//
// # Log Levels
//
//   - Debug: rejected scan candidates, hex dumps, per-address symbol misses
//   - Info: image acquisition, external tool runs, the located record
//   - Warn: discarded address tokens, marker mismatches
//   - Error: failures that end a command
//
// # Usage
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
//	scanner := trace.NewScanner(logging.Named("scan"))
//
// Output goes to stderr in zap's console format so stdout stays usable for
// YAML and JSON reports:
//
//	2026-03-02T10:30:45.123Z  INFO  scan  Found FeatherTrace record  {"offset": 512, "cause": "HardFault"}
package logging
