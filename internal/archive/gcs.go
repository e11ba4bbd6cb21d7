package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const objectPrefix = "runs/"

// GCSStore stores each record as a JSON object in a Cloud Storage bucket.
type GCSStore struct {
	client     *storage.Client
	bucketName string
}

// NewGCSStore creates a store backed by bucketName.
func NewGCSStore(ctx context.Context, bucketName string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &GCSStore{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Save writes record to runs/<id>.json.
func (s *GCSStore) Save(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}

	writer := s.client.Bucket(s.bucketName).Object(objectName(record.ID)).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("writing object data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing object writer: %w", err)
	}

	return nil
}

// Get reads the record with id.
func (s *GCSStore) Get(ctx context.Context, id string) (*Record, error) {
	return s.read(ctx, objectName(id))
}

// List reads the newest records under the runs/ prefix. Objects are ordered
// by creation time from the listing, so only the returned records are
// downloaded.
func (s *GCSStore) List(ctx context.Context, limit int) ([]*Record, error) {
	query := &storage.Query{Prefix: objectPrefix}
	if err := query.SetAttrSelection([]string{"Name", "Created"}); err != nil {
		return nil, fmt.Errorf("selecting object attributes: %w", err)
	}
	it := s.client.Bucket(s.bucketName).Objects(ctx, query)

	var objects []*storage.ObjectAttrs
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing objects: %w", err)
		}
		objects = append(objects, attrs)
	}

	names := newestObjects(objects, limit)
	records := make([]*Record, 0, len(names))
	for _, name := range names {
		record, err := s.read(ctx, name)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return newestFirst(records, limit), nil
}

// Close closes the Cloud Storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) read(ctx context.Context, name string) (*Record, error) {
	reader, err := s.client.Bucket(s.bucketName).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening object reader: %w", err)
	}
	defer reader.Close()

	return decodeRecord(reader)
}

func decodeRecord(r io.Reader) (*Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object data: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling run record: %w", err)
	}
	return &record, nil
}

// newestObjects returns the names of up to limit record objects, most
// recently created first.
func newestObjects(objects []*storage.ObjectAttrs, limit int) []string {
	records := make([]*storage.ObjectAttrs, 0, len(objects))
	for _, attrs := range objects {
		if strings.HasSuffix(attrs.Name, ".json") {
			records = append(records, attrs)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Created.After(records[j].Created)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	names := make([]string, len(records))
	for i, attrs := range records {
		names[i] = attrs.Name
	}
	return names
}

func objectName(id string) string {
	return objectPrefix + id + ".json"
}
