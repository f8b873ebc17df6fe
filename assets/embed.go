// Package assets embeds the default puzzle source so the server runs without
// any external data file.
package assets

import (
	"embed"
	"io"
)

//go:embed connections_data.csv
var FS embed.FS

// PuzzlesCSV opens the embedded puzzle table.
func PuzzlesCSV() (io.ReadCloser, error) {
	return FS.Open("connections_data.csv")
}
