package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBase(S3Config{PublicURL: "https://cdn.example.com/", Endpoint: "https://x"}))
	assert.Equal(t, "http://localhost:9000/photos", publicBase(S3Config{Endpoint: "http://localhost:9000/", Bucket: "photos"}))
	assert.Equal(t, "https://photos.s3.eu-west-1.amazonaws.com", publicBase(S3Config{Bucket: "photos", Region: "eu-west-1"}))
}

func TestS3PresignPut(t *testing.T) {
	s, err := NewS3Storage(S3Config{
		Region:    "auto",
		Bucket:    "amenities",
		AccessKey: "test-access",
		SecretKey: "test-secret",
		Endpoint:  "https://account.r2.cloudflarestorage.com",
		PublicURL: "https://images.example.com",
	})
	require.NoError(t, err)

	key := "amenities/pending/1700000000000-abcd1234-photo.jpg"
	u, err := s.PresignPut(context.Background(), key, "image/jpeg", 5*time.Minute)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(u, "https://account.r2.cloudflarestorage.com/amenities/"+key), u)
	assert.Contains(t, u, "X-Amz-Expires=300")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Equal(t, "https://images.example.com/"+key, s.PublicURL(key))
}

func put(t *testing.T, url, contentType, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestMemoryStoragePresignedPut(t *testing.T) {
	mem := NewMemoryStorage("")
	srv := httptest.NewServer(mem.Handler())
	defer srv.Close()
	mem.SetBaseURL(srv.URL)
	ctx := context.Background()

	u, err := mem.PresignPut(ctx, "amenities/a1/photo.jpg", "image/jpeg", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, put(t, u, "image/jpeg", "jpeg-bytes"))
	assert.Equal(t, http.StatusForbidden, put(t, u, "image/jpeg", "again"), "credential is single use")

	data, ct, err := mem.Get("amenities/a1/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", ct)

	resp, err := http.Get(mem.PublicURL("amenities/a1/photo.jpg"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMemoryStorageRejectsMismatchedContentType(t *testing.T) {
	mem := NewMemoryStorage("")
	srv := httptest.NewServer(mem.Handler())
	defer srv.Close()
	mem.SetBaseURL(srv.URL)

	u, err := mem.PresignPut(context.Background(), "k.png", "image/png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, put(t, u, "image/jpeg", "x"))
}

func TestMemoryStorageExpiredCredential(t *testing.T) {
	mem := NewMemoryStorage("")
	srv := httptest.NewServer(mem.Handler())
	defer srv.Close()
	mem.SetBaseURL(srv.URL)

	now := time.Now()
	mem.SetClock(func() time.Time { return now })
	u, err := mem.PresignPut(context.Background(), "k.jpg", "image/jpeg", 5*time.Minute)
	require.NoError(t, err)

	now = now.Add(5*time.Minute + time.Second)
	assert.Equal(t, http.StatusForbidden, put(t, u, "image/jpeg", "late"))

	_, _, err = mem.Get("k.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStorageListAndDelete(t *testing.T) {
	mem := NewMemoryStorage("http://mem")
	ctx := context.Background()
	mem.Put("amenities/a/1.jpg", "image/jpeg", []byte("1"), time.Now())
	mem.Put("amenities/b/2.jpg", "image/jpeg", []byte("22"), time.Now())
	mem.Put("other/3.jpg", "image/jpeg", []byte("333"), time.Now())

	objects, err := mem.List(ctx, "amenities/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "amenities/a/1.jpg", objects[0].Key)
	assert.Equal(t, int64(2), objects[1].Size)

	require.NoError(t, mem.Delete(ctx, "amenities/a/1.jpg"))
	objects, err = mem.List(ctx, "amenities/")
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}
