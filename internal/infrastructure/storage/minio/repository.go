package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

var ErrArtifactNotFound = errors.New(errors.ErrCodeNotFound, "artifact not found")

// ArtifactRepository stores and retrieves run artifacts.  Upload matches the
// runner's ArtifactStore contract and returns the stored object's URI.
type ArtifactRepository interface {
	Upload(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (string, error)
	Download(ctx context.Context, objectName string) ([]byte, error)
	DownloadTo(ctx context.Context, objectName string, w io.Writer) error
	Exists(ctx context.Context, objectName string) (bool, error)
	Delete(ctx context.Context, objectName string) error
	List(ctx context.Context, prefix string) ([]ArtifactInfo, error)
	Stat(ctx context.Context, objectName string) (*ArtifactInfo, error)
	PresignedDownloadURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ArtifactInfo describes one stored artifact.
type ArtifactInfo struct {
	ObjectName   string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

type artifactRepository struct {
	client *Client
	logger logging.Logger
}

func NewArtifactRepository(client *Client, log logging.Logger) ArtifactRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &artifactRepository{
		client: client,
		logger: log.Named("artifacts"),
	}
}

// Upload writes the object and returns its s3:// URI.  Size may be -1 for
// streams of unknown length.
func (r *artifactRepository) Upload(ctx context.Context, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	if objectName == "" {
		return "", errors.New(errors.ErrCodeValidation, "object name required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := r.client.API().PutObject(ctx, r.client.Bucket(), objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "failed to upload artifact").
			WithDetail(objectName)
	}

	r.logger.Debug("artifact uploaded",
		logging.String("object", info.Key),
		logging.Int64("size", info.Size))
	return fmt.Sprintf("s3://%s/%s", r.client.Bucket(), objectName), nil
}

func (r *artifactRepository) Download(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := r.client.API().GetObject(ctx, r.client.Bucket(), objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to open artifact").
			WithDetail(objectName)
	}
	defer obj.Close()

	// GetObject is lazy; missing keys surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrArtifactNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to read artifact").
			WithDetail(objectName)
	}
	return data, nil
}

func (r *artifactRepository) DownloadTo(ctx context.Context, objectName string, w io.Writer) error {
	obj, err := r.client.API().GetObject(ctx, r.client.Bucket(), objectName, minio.GetObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to open artifact").
			WithDetail(objectName)
	}
	defer obj.Close()

	if _, err := io.Copy(w, obj); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrArtifactNotFound
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to stream artifact").
			WithDetail(objectName)
	}
	return nil
}

func (r *artifactRepository) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := r.client.API().StatObject(ctx, r.client.Bucket(), objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "failed to stat artifact").
			WithDetail(objectName)
	}
	return true, nil
}

func (r *artifactRepository) Delete(ctx context.Context, objectName string) error {
	if err := r.client.API().RemoveObject(ctx, r.client.Bucket(), objectName, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to delete artifact").
			WithDetail(objectName)
	}
	return nil
}

// List returns the artifacts under prefix, e.g. "runs/<run-id>/".
func (r *artifactRepository) List(ctx context.Context, prefix string) ([]ArtifactInfo, error) {
	ch := r.client.API().ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var infos []ArtifactInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "failed to list artifacts").
				WithDetail(prefix)
		}
		infos = append(infos, ArtifactInfo{
			ObjectName:   obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return infos, nil
}

func (r *artifactRepository) Stat(ctx context.Context, objectName string) (*ArtifactInfo, error) {
	info, err := r.client.API().StatObject(ctx, r.client.Bucket(), objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrArtifactNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to stat artifact").
			WithDetail(objectName)
	}
	return &ArtifactInfo{
		ObjectName:   objectName,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

func (r *artifactRepository) PresignedDownloadURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return r.client.PresignedGetURL(ctx, objectName, expiry)
}

//Personal.AI order the ending
