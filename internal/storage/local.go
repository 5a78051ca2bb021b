package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps documents on the local filesystem, one directory per
// container. It is the default backend for single-node deployments and for
// development, where an Azure account is not available.
type DiskStore struct {
	basePath string
}

func NewDiskStore(basePath string) *DiskStore {
	return &DiskStore{basePath: basePath}
}

func (s *DiskStore) Save(ctx context.Context, up *Upload) (*Ref, error) {
	if err := up.validate(); err != nil {
		return nil, err
	}
	key, err := cleanKey(up.Key)
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(s.basePath, up.Container.String(), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("disk store: mkdir: %w", err)
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("disk store: create: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, up.Body); err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("disk store: write: %w", err)
	}

	return &Ref{
		Container: up.Container,
		Key:       key,
		URL:       fullPath,
	}, nil
}

func (s *DiskStore) Open(ctx context.Context, ref *Ref) (*Stream, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	key, err := cleanKey(ref.Key)
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(s.basePath, ref.Container.String(), filepath.FromSlash(key))
	handle, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("disk store: open: %w", err)
	}

	info, err := handle.Stat()
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("disk store: stat: %w", err)
	}

	return &Stream{
		Body: handle,
		Size: info.Size(),
	}, nil
}

func (s *DiskStore) Remove(ctx context.Context, ref *Ref) error {
	if err := ref.validate(); err != nil {
		return err
	}
	key, err := cleanKey(ref.Key)
	if err != nil {
		return err
	}

	fullPath := filepath.Join(s.basePath, ref.Container.String(), filepath.FromSlash(key))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disk store: remove: %w", err)
	}
	return nil
}
