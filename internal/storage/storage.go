package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrInvalidUpload  = errors.New("storage: invalid upload")
	ErrInvalidRef     = errors.New("storage: invalid object reference")
	ErrObjectNotFound = errors.New("storage: object not found")
)

// Container partitions stored objects by sensitivity. Scanned clinical
// documents always live in the records container and are only ever streamed
// through an authenticated handler; the public container exists for
// non-sensitive assets such as staff avatars.
type Container string

const (
	ContainerRecords Container = "records"
	ContainerPublic  Container = "public"
)

func (c Container) String() string {
	return string(c)
}

func (c Container) valid() bool {
	return c == ContainerRecords || c == ContainerPublic
}

// Upload is the payload handed to a backend when persisting an object.
type Upload struct {
	Container   Container
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Ref identifies a stored object. Container and Key together are what gets
// persisted on the owning record; URL is backend-specific and informational.
type Ref struct {
	Container Container
	Key       string
	URL       string
}

// Stream is an opened object ready to be copied to a response.
type Stream struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store is implemented by every document backend.
type Store interface {
	Save(ctx context.Context, up *Upload) (*Ref, error)
	Open(ctx context.Context, ref *Ref) (*Stream, error)
	Remove(ctx context.Context, ref *Ref) error
}

func (up *Upload) validate() error {
	if up == nil || up.Body == nil {
		return fmt.Errorf("%w: missing body", ErrInvalidUpload)
	}
	if !up.Container.valid() {
		return fmt.Errorf("%w: unknown container %q", ErrInvalidUpload, up.Container)
	}
	if up.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidUpload)
	}
	return nil
}

func (ref *Ref) validate() error {
	if ref == nil {
		return ErrInvalidRef
	}
	if !ref.Container.valid() {
		return fmt.Errorf("%w: unknown container %q", ErrInvalidRef, ref.Container)
	}
	if ref.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidRef)
	}
	return nil
}

// cleanKey normalizes an object key and rejects anything that could escape
// the container root when a backend maps keys onto a filesystem.
func cleanKey(key string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: unsafe key %q", ErrInvalidUpload, key)
	}
	return clean, nil
}
