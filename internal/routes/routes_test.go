package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/amenitymap/internal/apiclient"
	"github.com/templui/amenitymap/internal/app"
	"github.com/templui/amenitymap/internal/config"
	"github.com/templui/amenitymap/internal/db/dbtest"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/storage"
	"github.com/templui/amenitymap/internal/submission"
	"github.com/templui/amenitymap/internal/upload"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "development",
		StorageDriver:      "memory",
		ImagePresignExpiry: 5 * time.Minute,
		ImageMaxPerAmenity: 3,
		RegionMinLat:       1.15,
		RegionMaxLat:       1.5,
		RegionMinLng:       103.6,
		RegionMaxLng:       104.1,
		RateLimitPerMinute: 600,
		RateLimitBurst:     100,
	}
}

func newServer(t *testing.T, cfg *config.Config) (*httptest.Server, *storage.MemoryStorage) {
	t.Helper()
	mem := storage.NewMemoryStorage("")
	a := app.Assemble(cfg, dbtest.New(t), mem)

	srv := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(srv.Close)
	mem.SetBaseURL(srv.URL)
	return srv, mem
}

// expiringIssuer lets the credential for one filename lapse before it is used.
type expiringIssuer struct {
	*apiclient.Client
	mem    *storage.MemoryStorage
	expire string
}

func (e *expiringIssuer) Presign(ctx context.Context, req model.PresignRequest) (*model.UploadCredential, error) {
	e.mem.SetClock(time.Now)
	cred, err := e.Client.Presign(ctx, req)
	if err == nil && req.Filename == e.expire {
		e.mem.SetClock(func() time.Time { return time.Now().Add(10 * time.Minute) })
	}
	return cred, err
}

func TestSubmissionEndToEnd(t *testing.T) {
	srv, mem := newServer(t, testConfig())
	client := apiclient.New(srv.URL)

	issuer := &expiringIssuer{Client: client, mem: mem, expire: "second.jpg"}
	images := upload.New(issuer, client)
	res := images.Add(context.Background(), []upload.File{
		{Name: "first.jpg", ContentType: "image/jpeg", Data: []byte("first")},
		{Name: "second.jpg", ContentType: "image/jpeg", Data: []byte("second")},
		{Name: "third.png", ContentType: "image/png", Data: []byte("third")},
	})
	require.Len(t, res.Accepted, 3)

	flow := submission.New(client, images, client)
	result, err := flow.Submit(context.Background(), model.CreateAmenityRequest{
		CategoryID: dbtest.CategoryPowerOutlets,
		Name:       "Library outlet",
		Lat:        1.2966,
		Lng:        103.8526,
	})
	require.NoError(t, err)
	require.NoError(t, result.ImageErr)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "second.jpg", result.Failed[0].Filename)
	assert.Contains(t, result.Failed[0].Err, "403")

	require.Len(t, result.Images, 2)
	assert.Equal(t, "first.jpg", result.Images[0].Filename)
	assert.Equal(t, "third.png", result.Images[1].Filename)

	stored, err := client.Images(context.Background(), result.AmenityID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for i, img := range stored {
		assert.Equal(t, i, img.DisplayOrder)
		assert.True(t, strings.HasPrefix(img.R2Key, "amenities/"+result.AmenityID+"/"), img.R2Key)

		data, contentType, err := mem.Get(img.R2Key)
		require.NoError(t, err)
		assert.Equal(t, img.ContentType, contentType)
		assert.Equal(t, img.FileSize, int64(len(data)))

		resp, err := http.Get(img.CDNURL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Equal(t, submission.StateDone, flow.State())
	assert.Zero(t, images.Len())
}

func TestCapacityAcrossSubmissions(t *testing.T) {
	srv, _ := newServer(t, testConfig())
	client := apiclient.New(srv.URL)
	ctx := context.Background()

	id, err := client.CreateAmenity(ctx, model.CreateAmenityRequest{CategoryID: dbtest.CategoryPowerOutlets, Name: "x", Lat: 1.3, Lng: 103.8})
	require.NoError(t, err)

	first := upload.New(client, client)
	first.Add(ctx, []upload.File{
		{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("a")},
		{Name: "b.jpg", ContentType: "image/jpeg", Data: []byte("b")},
	})
	_, err = client.ConfirmImages(ctx, id, upload.Descriptors(first.UploadAll(ctx, id)))
	require.NoError(t, err)

	second := upload.New(client, client)
	second.Add(ctx, []upload.File{
		{Name: "c.jpg", ContentType: "image/jpeg", Data: []byte("c")},
		{Name: "d.jpg", ContentType: "image/jpeg", Data: []byte("d")},
	})
	_, err = client.ConfirmImages(ctx, id, upload.Descriptors(second.UploadAll(ctx, id)))
	require.Error(t, err)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, model.CodeCapacityExceeded, apiErr.Code)

	stored, err := client.Images(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPresignIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 1
	cfg.RateLimitBurst = 1
	srv, _ := newServer(t, cfg)
	client := apiclient.New(srv.URL)

	req := model.PresignRequest{Filename: "a.jpg", ContentType: "image/jpeg", FileSize: 1}
	_, err := client.Presign(context.Background(), req)
	require.NoError(t, err)

	_, err = client.Presign(context.Background(), req)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, model.CodeRateLimited, apiErr.Code)
}

func TestOperationalRoutes(t *testing.T) {
	srv, _ := newServer(t, testConfig())

	for path, want := range map[string]int{
		"/healthz":  http.StatusOK,
		"/metrics":  http.StatusOK,
		"/nowhere":  http.StatusNotFound,
		"/images/x": http.StatusOK,
		"/images/":  http.StatusBadRequest,
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), path)
	}
}

func TestImagesWithoutAmenityID(t *testing.T) {
	srv, _ := newServer(t, testConfig())

	_, err := apiclient.New(srv.URL).Images(context.Background(), "")
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, model.CodeValidation, apiErr.Code)
}

func TestConcurrentConfirmsNeverOvershoot(t *testing.T) {
	srv, _ := newServer(t, testConfig())
	client := apiclient.New(srv.URL)
	ctx := context.Background()

	id, err := client.CreateAmenity(ctx, model.CreateAmenityRequest{CategoryID: dbtest.CategoryPowerOutlets, Name: "x", Lat: 1.3, Lng: 103.8})
	require.NoError(t, err)

	var ok atomic.Int32
	done := make(chan struct{})
	for i := range 6 {
		go func() {
			defer func() { done <- struct{}{} }()
			key := "amenities/" + id + "/" + time.Now().Format("150405.000000000") + "-" + string(rune('a'+i)) + ".jpg"
			_, err := client.ConfirmImages(ctx, id, []model.ImageDescriptor{{
				R2Key: key, CDNURL: "https://cdn/" + key, Filename: "p.jpg", ContentType: "image/jpeg", FileSize: 1,
			}})
			if err == nil {
				ok.Add(1)
			}
		}()
	}
	for range 6 {
		<-done
	}

	stored, err := client.Images(ctx, id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(stored), 3)
	assert.Equal(t, int(ok.Load()), len(stored))
}
