package sink

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/apache/arrow-go/v18/arrow"
	"google.golang.org/api/option"
)

// ClientOptions are passed to the GCS client when an object URL is used as
// the output path. Overridable for tests and alternate credentials.
var ClientOptions []option.ClientOption

// writeObject uploads the serialized record to a gs://bucket/key URL.
func writeObject(ctx context.Context, rec arrow.Record, url, format string) error {
	bucket, key, err := splitObjectURL(url)
	if err != nil {
		return err
	}

	client, err := gcs.NewClient(ctx, ClientOptions...)
	if err != nil {
		return fmt.Errorf("gcs client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	w := client.Bucket(bucket).Object(key).NewWriter(ctx)
	if err := writeTo(w, rec, format); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", url, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %q: %w", url, err)
	}
	return nil
}

func splitObjectURL(url string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(url, "gs://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("object URL %q: want gs://bucket/key", url)
	}
	return bucket, key, nil
}
