package corekb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/minio/minio-go/v7"
)

// ObjectSource serves the knowledge core from an S3-compatible object store.
// The object is fetched once and cached for the life of the process; restart
// to pick up a new revision.
type ObjectSource struct {
	client *minio.Client
	bucket string
	object string
	logger *slog.Logger

	once sync.Once
	text string
	err  error
}

// NewObjectSource constructs a lazy object-store source.
func NewObjectSource(client *minio.Client, bucket, object string, logger *slog.Logger) *ObjectSource {
	return &ObjectSource{
		client: client,
		bucket: bucket,
		object: object,
		logger: logger.With("component", "corekb.object"),
	}
}

// Text returns the knowledge core, fetching it on first call.
func (s *ObjectSource) Text(ctx context.Context) (string, error) {
	s.once.Do(func() {
		obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
		if err != nil {
			s.err = fmt.Errorf("get knowledge core %s/%s: %w", s.bucket, s.object, err)
			return
		}
		defer obj.Close()
		data, err := io.ReadAll(obj)
		if err != nil {
			s.err = fmt.Errorf("read knowledge core %s/%s: %w", s.bucket, s.object, err)
			return
		}
		s.text = string(data)
		s.logger.Info("knowledge core loaded", "bucket", s.bucket, "object", s.object, "bytes", len(data))
	})
	return s.text, s.err
}
