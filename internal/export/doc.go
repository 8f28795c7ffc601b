// Package export renders logged signals as standalone SVG documents.
package export
