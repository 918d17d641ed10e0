// Package sink writes a cleaned Arrow record to its destination. Local paths
// and gs:// object URLs are supported; the format is independent of the
// destination. Re-running with the same path overwrites deterministically.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/flightline/config"
)

// Write serializes rec to path in the given format (config.FormatCSV,
// FormatParquet, or FormatXLSX).
func Write(ctx context.Context, rec arrow.Record, path, format string) error {
	if strings.HasPrefix(path, "gs://") {
		return writeObject(ctx, rec, path, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %q: %w", path, err)
	}
	if err := writeTo(f, rec, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output %q: %w", path, err)
	}
	return nil
}

func writeTo(w io.Writer, rec arrow.Record, format string) error {
	switch format {
	case config.FormatCSV:
		return writeCSV(w, rec)
	case config.FormatParquet:
		return writeParquet(w, rec)
	case config.FormatXLSX:
		return writeXLSX(w, rec)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
