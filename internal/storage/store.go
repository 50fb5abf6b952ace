package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/maruel/natural"
	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/submission"
)

// ErrBadURL is returned for s3:// paths without a bucket or key.
var ErrBadURL = errors.New("malformed s3 url")

const scheme = "s3://"

// IsRemote reports whether path names an S3 object or prefix.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, scheme)
}

// ParseURL splits s3://bucket/key. The key may be empty for a bucket root.
func ParseURL(u string) (string, string, error) {
	if !IsRemote(u) {
		return "", "", fmt.Errorf("%w: %q", ErrBadURL, u)
	}
	bucket, key, _ := strings.Cut(strings.TrimPrefix(u, scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q has no bucket", ErrBadURL, u)
	}
	return bucket, key, nil
}

// Store routes reads and writes to local disk or S3. The S3 client is
// created on first use, so purely local runs never touch AWS config.
type Store struct {
	mu      sync.Mutex
	client  ObjectClient
	connect func(ctx context.Context) (ObjectClient, error)
}

// NewStore returns a Store that connects to S3 in region when needed.
func NewStore(region string) *Store {
	return &Store{
		connect: func(ctx context.Context) (ObjectClient, error) {
			return NewS3Adapter(ctx, region)
		},
	}
}

// NewStoreWithClient returns a Store backed by an existing client.
func NewStoreWithClient(client ObjectClient) *Store {
	return &Store{client: client}
}

func (s *Store) objects(ctx context.Context) (ObjectClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	if s.connect == nil {
		return nil, fmt.Errorf("no object store configured")
	}
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

// Read returns the bytes at path.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	if !IsRemote(path) {
		return os.ReadFile(path)
	}
	bucket, key, err := ParseURL(path)
	if err != nil {
		return nil, err
	}
	c, err := s.objects(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	klog.V(1).Infof("fetched %s (%d bytes)", path, len(data))
	return data, nil
}

// Write stores data at path, creating local parent directories.
func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	if !IsRemote(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		return os.WriteFile(path, data, 0644)
	}
	bucket, key, err := ParseURL(path)
	if err != nil {
		return err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: %q names a prefix, not an object", ErrBadURL, path)
	}
	c, err := s.objects(ctx)
	if err != nil {
		return err
	}
	if err := c.PutObject(ctx, bucket, key, data); err != nil {
		return fmt.Errorf("failed to put %s: %w", path, err)
	}
	klog.V(1).Infof("uploaded %s (%d bytes)", path, len(data))
	return nil
}

// Expand turns every s3://bucket/prefix/ entry into the submission files
// under it, in natural order. Other entries pass through unchanged.
func (s *Store) Expand(ctx context.Context, paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if !IsRemote(p) || !strings.HasSuffix(p, "/") {
			out = append(out, p)
			continue
		}
		bucket, prefix, err := ParseURL(p)
		if err != nil {
			return nil, err
		}
		c, err := s.objects(ctx)
		if err != nil {
			return nil, err
		}
		keys, err := c.ListObjects(ctx, bucket, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", p, err)
		}
		var found []string
		for _, k := range keys {
			switch strings.ToLower(filepath.Ext(k)) {
			case ".csv", ".xlsx":
				found = append(found, scheme+bucket+"/"+k)
			}
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no submissions under %s", p)
		}
		sort.Sort(natural.StringSlice(found))
		out = append(out, found...)
	}
	return out, nil
}

// LoadSubmission reads a CSV or Excel submission from path.
func (s *Store) LoadSubmission(ctx context.Context, path string, opts submission.DecodeOptions) (model.Submission, error) {
	if !IsRemote(path) {
		return submission.LoadFile(path, opts)
	}
	data, err := s.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	tmp, err := spool(path, data)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(filepath.Dir(tmp))
	return submission.LoadFile(tmp, opts)
}

// SaveSubmission writes sub to path in the format its extension names.
func (s *Store) SaveSubmission(ctx context.Context, path string, sub model.Submission, decimals int) error {
	if !IsRemote(path) {
		return submission.SaveFile(path, sub, decimals)
	}
	dir, err := os.MkdirTemp("", "treepack-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	tmp := filepath.Join(dir, "out"+filepath.Ext(path))
	if err := submission.SaveFile(tmp, sub, decimals); err != nil {
		return err
	}
	data, err := os.ReadFile(tmp)
	if err != nil {
		return err
	}
	return s.Write(ctx, path, data)
}

// spool writes data to a fresh temp directory under the object's base name
// so the codec can pick the format by extension.
func spool(path string, data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "treepack-")
	if err != nil {
		return "", err
	}
	tmp := filepath.Join(dir, filepath.Base(path))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return tmp, nil
}
