// Package storage persists uploaded PDFs and generated summaries.
package storage

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Store saves named blobs and returns where each one ended up (a file path
// or an s3:// URL).
type Store interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// windowsDevices are reserved on Windows whatever the extension.
var windowsDevices = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeFilename reduces name to a safe ASCII file name: accents are
// decomposed and dropped, path separators and whitespace runs become "_",
// anything outside [A-Za-z0-9_.-] is removed, and leading or trailing dots
// and underscores are trimmed. A Windows device name such as "con.pdf" gets
// a leading "_". The result can be empty.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	s := strings.NewReplacer("/", " ", `\`, " ").Replace(ascii.String())
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")

	stem, _, _ := strings.Cut(s, ".")
	if windowsDevices[strings.ToUpper(stem)] {
		s = "_" + s
	}
	return s
}
