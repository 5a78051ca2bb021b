package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureBlobStore backs the document archive with Azure Blob Storage. Each
// logical container maps to a real blob container configured per deployment.
type AzureBlobStore struct {
	client     *azblob.Client
	endpoint   string
	containers map[Container]string
}

func NewAzureBlobStore(endpoint, accountName, accountKey, publicContainer, recordsContainer string) (*AzureBlobStore, error) {
	if endpoint == "" || accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("azure blob: missing endpoint or credentials")
	}
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure blob: credential error: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure blob: client init failed: %w", err)
	}
	return &AzureBlobStore{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		containers: map[Container]string{
			ContainerPublic:  publicContainer,
			ContainerRecords: recordsContainer,
		},
	}, nil
}

func (s *AzureBlobStore) Save(ctx context.Context, up *Upload) (*Ref, error) {
	if err := up.validate(); err != nil {
		return nil, err
	}
	container, err := s.containerName(up.Container)
	if err != nil {
		return nil, err
	}
	key, err := cleanKey(up.Key)
	if err != nil {
		return nil, err
	}

	options := &azblob.UploadStreamOptions{}
	if up.ContentType != "" {
		options.HTTPHeaders = &blob.HTTPHeaders{
			BlobContentType: &up.ContentType,
		}
	}

	if _, err := s.client.UploadStream(ctx, container, key, up.Body, options); err != nil {
		return nil, fmt.Errorf("azure blob: upload failed: %w", err)
	}

	return &Ref{
		Container: up.Container,
		Key:       key,
		URL:       fmt.Sprintf("%s/%s/%s", s.endpoint, container, key),
	}, nil
}

func (s *AzureBlobStore) Open(ctx context.Context, ref *Ref) (*Stream, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	container, err := s.containerName(ref.Container)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, ref.Key, nil)
	if err != nil {
		if isBlobNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("azure blob: download failed: %w", err)
	}

	stream := &Stream{Body: resp.Body}
	if resp.ContentType != nil {
		stream.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		stream.Size = *resp.ContentLength
	}
	return stream, nil
}

func (s *AzureBlobStore) Remove(ctx context.Context, ref *Ref) error {
	if err := ref.validate(); err != nil {
		return err
	}
	container, err := s.containerName(ref.Container)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteBlob(ctx, container, ref.Key, nil); err != nil {
		if isBlobNotFound(err) {
			return nil
		}
		return fmt.Errorf("azure blob: delete failed: %w", err)
	}
	return nil
}

func (s *AzureBlobStore) containerName(c Container) (string, error) {
	name := s.containers[c]
	if name == "" {
		return "", fmt.Errorf("azure blob: container %q not configured", c)
	}
	return name, nil
}

func isBlobNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound)
}
