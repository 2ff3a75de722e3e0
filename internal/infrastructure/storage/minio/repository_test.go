package minio

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/MolScore/internal/config"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.Object), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func newTestClient(api MinIOAPI) *Client {
	cfg := config.MinIOConfig{Bucket: "artifacts", PresignExpiry: time.Hour}
	return &Client{
		api:    api,
		cfg:    cfg,
		logger: logging.NewNopLogger(),
	}
}

type ArtifactRepositorySuite struct {
	suite.Suite
	api  *MockMinIOAPI
	repo ArtifactRepository
}

func (s *ArtifactRepositorySuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.repo = NewArtifactRepository(newTestClient(s.api), logging.NewNopLogger())
}

func (s *ArtifactRepositorySuite) TestUpload_ReturnsURI() {
	s.api.On("PutObject", mock.Anything, "artifacts", "runs/run-1/scores.csv",
		mock.Anything, int64(9), mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
			return opts.ContentType == "text/csv"
		})).
		Return(minio.UploadInfo{Bucket: "artifacts", Key: "runs/run-1/scores.csv", Size: 9}, nil)

	uri, err := s.repo.Upload(context.Background(), "runs/run-1/scores.csv", "text/csv",
		strings.NewReader("step,smil"), 9)
	s.Require().NoError(err)
	s.Equal("s3://artifacts/runs/run-1/scores.csv", uri)
	s.api.AssertExpectations(s.T())
}

func (s *ArtifactRepositorySuite) TestUpload_DefaultsContentType() {
	s.api.On("PutObject", mock.Anything, "artifacts", "runs/run-1/model.bin",
		mock.Anything, int64(-1), mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
			return opts.ContentType == "application/octet-stream"
		})).
		Return(minio.UploadInfo{}, nil)

	_, err := s.repo.Upload(context.Background(), "runs/run-1/model.bin", "",
		strings.NewReader("x"), -1)
	s.NoError(err)
}

func (s *ArtifactRepositorySuite) TestUpload_EmptyObjectName() {
	_, err := s.repo.Upload(context.Background(), "", "text/csv", strings.NewReader(""), 0)
	s.True(errors.IsCode(err, errors.ErrCodeValidation))
}

func (s *ArtifactRepositorySuite) TestUpload_WrapsBackendFailure() {
	s.api.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, assert.AnError)

	_, err := s.repo.Upload(context.Background(), "runs/run-1/scores.csv", "text/csv",
		strings.NewReader("data"), 4)
	s.True(errors.IsCode(err, errors.ErrCodeArtifactWriteFailed))
}

func (s *ArtifactRepositorySuite) TestExists() {
	s.api.On("StatObject", mock.Anything, "artifacts", "present", mock.Anything).
		Return(minio.ObjectInfo{Key: "present"}, nil)
	s.api.On("StatObject", mock.Anything, "artifacts", "absent", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

	exists, err := s.repo.Exists(context.Background(), "present")
	s.NoError(err)
	s.True(exists)

	exists, err = s.repo.Exists(context.Background(), "absent")
	s.NoError(err)
	s.False(exists)
}

func (s *ArtifactRepositorySuite) TestStat_NotFound() {
	s.api.On("StatObject", mock.Anything, "artifacts", "gone", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

	_, err := s.repo.Stat(context.Background(), "gone")
	s.True(errors.IsCode(err, errors.ErrCodeNotFound))
}

func (s *ArtifactRepositorySuite) TestDelete() {
	s.api.On("RemoveObject", mock.Anything, "artifacts", "runs/run-1/scores.csv", mock.Anything).
		Return(nil)
	s.NoError(s.repo.Delete(context.Background(), "runs/run-1/scores.csv"))
}

func (s *ArtifactRepositorySuite) TestList() {
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "runs/run-1/scores.csv", Size: 128}
	ch <- minio.ObjectInfo{Key: "runs/run-1/config.json", Size: 64}
	close(ch)

	s.api.On("ListObjects", mock.Anything, "artifacts", mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
		return opts.Prefix == "runs/run-1/" && opts.Recursive
	})).Return((<-chan minio.ObjectInfo)(ch))

	infos, err := s.repo.List(context.Background(), "runs/run-1/")
	s.Require().NoError(err)
	s.Len(infos, 2)
	s.Equal("runs/run-1/scores.csv", infos[0].ObjectName)
}

func (s *ArtifactRepositorySuite) TestPresignedDownloadURL() {
	u, _ := url.Parse("https://minio.local/artifacts/runs/run-1/scores.csv?sig=abc")
	s.api.On("PresignedGetObject", mock.Anything, "artifacts", "runs/run-1/scores.csv",
		time.Hour, url.Values(nil)).
		Return(u, nil)

	got, err := s.repo.PresignedDownloadURL(context.Background(), "runs/run-1/scores.csv", 0)
	s.Require().NoError(err)
	s.Equal(u.String(), got)
}

func TestArtifactRepositorySuite(t *testing.T) {
	suite.Run(t, new(ArtifactRepositorySuite))
}

//Personal.AI order the ending
