package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/upload"
)

type fakeAPI struct {
	createErr  error
	confirmErr error
	putErr     map[string]error // by filename suffix of the key

	confirmed [][]model.ImageDescriptor
	creates   int
}

func (f *fakeAPI) CreateAmenity(ctx context.Context, req model.CreateAmenityRequest) (string, error) {
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "amenity-1", nil
}

func (f *fakeAPI) Presign(ctx context.Context, req model.PresignRequest) (*model.UploadCredential, error) {
	key := fmt.Sprintf("amenities/%s/%s", req.AmenityID, req.Filename)
	return &model.UploadCredential{PresignedURL: "https://put/" + key, R2Key: key, CDNURL: "https://cdn/" + key, ExpiresIn: 300}, nil
}

func (f *fakeAPI) Put(ctx context.Context, cred *model.UploadCredential, contentType string, data []byte) error {
	for suffix, err := range f.putErr {
		if strings.HasSuffix(cred.R2Key, suffix) {
			return err
		}
	}
	return nil
}

func (f *fakeAPI) ConfirmImages(ctx context.Context, amenityID string, images []model.ImageDescriptor) ([]*model.Image, error) {
	f.confirmed = append(f.confirmed, images)
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	out := make([]*model.Image, len(images))
	for i, d := range images {
		out[i] = &model.Image{ID: fmt.Sprint(i), AmenityID: amenityID, R2Key: d.R2Key, DisplayOrder: d.DisplayOrder}
	}
	return out, nil
}

func file(name string) upload.File {
	return upload.File{Name: name, ContentType: "image/jpeg", Data: []byte(name)}
}

func newFlow(api *fakeAPI, files ...upload.File) (*Flow, *upload.Orchestrator, *[]State) {
	images := upload.New(api, api)
	images.Add(context.Background(), files)

	var states []State
	flow := New(api, images, api, OnState(func(s State) { states = append(states, s) }))
	return flow, images, &states
}

var request = model.CreateAmenityRequest{CategoryID: "c", Name: "Outlet", Lat: 1.3, Lng: 103.8}

func TestSubmitWithImages(t *testing.T) {
	api := &fakeAPI{putErr: map[string]error{"b.jpg": upload.ErrTransport}}
	flow, images, states := newFlow(api, file("a.jpg"), file("b.jpg"), file("c.jpg"))

	res, err := flow.Submit(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, "amenity-1", res.AmenityID)
	assert.NoError(t, res.ImageErr)
	require.Len(t, res.Images, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "b.jpg", res.Failed[0].Filename)

	require.Len(t, api.confirmed, 1)
	batch := api.confirmed[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "amenities/amenity-1/a.jpg", batch[0].R2Key)
	assert.Equal(t, 0, batch[0].DisplayOrder)
	assert.Equal(t, "amenities/amenity-1/c.jpg", batch[1].R2Key)
	assert.Equal(t, 1, batch[1].DisplayOrder)

	assert.Equal(t, []State{StateCreatingEntity, StateUploadingImages, StateConfirmingImages, StateDone}, *states)
	assert.Zero(t, images.Len())
	assert.Zero(t, images.Previews().Len())
}

func TestSubmitWithoutImagesSkipsUpload(t *testing.T) {
	api := &fakeAPI{}
	flow, _, states := newFlow(api)

	res, err := flow.Submit(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "amenity-1", res.AmenityID)
	assert.Empty(t, api.confirmed)
	assert.Equal(t, []State{StateCreatingEntity, StateDone}, *states)
}

func TestSubmitCreateFailureKeepsImages(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("name is required")}
	flow, images, _ := newFlow(api, file("a.jpg"))

	_, err := flow.Submit(context.Background(), request)
	require.Error(t, err)
	assert.Equal(t, StateFailed, flow.State())
	assert.Equal(t, 1, images.Pending())
	assert.Empty(t, api.confirmed)

	// retry succeeds with the same draft
	api.createErr = nil
	res, err := flow.Submit(context.Background(), request)
	require.NoError(t, err)
	assert.Len(t, res.Images, 1)
	assert.Equal(t, 2, api.creates)
}

func TestSubmitSwallowsConfirmFailure(t *testing.T) {
	for _, confirmErr := range []error{repository.ErrCapacityExceeded, errors.New("connection reset")} {
		t.Run(confirmErr.Error(), func(t *testing.T) {
			api := &fakeAPI{confirmErr: confirmErr}
			flow, images, _ := newFlow(api, file("a.jpg"))

			res, err := flow.Submit(context.Background(), request)
			require.NoError(t, err)
			assert.Equal(t, "amenity-1", res.AmenityID)
			assert.ErrorIs(t, res.ImageErr, confirmErr)
			assert.Empty(t, res.Images)
			assert.Equal(t, StateDone, flow.State())
			assert.Zero(t, images.Len())
		})
	}
}

func TestSubmitAllUploadsFailed(t *testing.T) {
	api := &fakeAPI{putErr: map[string]error{".jpg": upload.ErrTransport}}
	flow, _, _ := newFlow(api, file("a.jpg"), file("b.jpg"))

	res, err := flow.Submit(context.Background(), request)
	require.NoError(t, err)
	assert.Error(t, res.ImageErr)
	assert.Len(t, res.Failed, 2)
	assert.Empty(t, api.confirmed)
	assert.Equal(t, StateDone, flow.State())
}

func TestReset(t *testing.T) {
	api := &fakeAPI{}
	flow, images, _ := newFlow(api, file("a.jpg"), file("b.jpg"))

	flow.Reset()
	assert.Equal(t, StateIdle, flow.State())
	assert.Zero(t, images.Len())
	assert.Zero(t, images.Previews().Len())
}
