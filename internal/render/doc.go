// Package render formats recovered fault reports and symbol lookups for
// output as plain text, YAML or JSON.
package render
