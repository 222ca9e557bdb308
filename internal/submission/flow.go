// Package submission drives one amenity submission: create the amenity, then
// upload and attach its photos.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/upload"
)

type State string

const (
	StateIdle             State = "idle"
	StateCreatingEntity   State = "creating_entity"
	StateUploadingImages  State = "uploading_images"
	StateConfirmingImages State = "confirming_images"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// ErrInProgress is returned when Submit is called while another submission
// on the same Flow is running.
var ErrInProgress = errors.New("submission already in progress")

type EntityCreator interface {
	CreateAmenity(ctx context.Context, req model.CreateAmenityRequest) (string, error)
}

type Confirmer interface {
	ConfirmImages(ctx context.Context, amenityID string, images []model.ImageDescriptor) ([]*model.Image, error)
}

// Result describes a submission whose amenity was created. Image problems
// never fail the submission; they are reported in ImageErr and Failed.
type Result struct {
	AmenityID string
	Uploaded  []upload.Candidate
	Failed    []upload.Candidate
	Images    []*model.Image
	ImageErr  error
}

type Flow struct {
	creator   EntityCreator
	images    *upload.Orchestrator
	confirmer Confirmer
	onState   func(State)

	mu    sync.Mutex
	state State
}

type Option func(*Flow)

// OnState registers fn to observe every state transition.
func OnState(fn func(State)) Option {
	return func(f *Flow) {
		f.onState = fn
	}
}

func New(creator EntityCreator, images *upload.Orchestrator, confirmer Confirmer, opts ...Option) *Flow {
	f := &Flow{
		creator:   creator,
		images:    images,
		confirmer: confirmer,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()

	if f.onState != nil {
		f.onState(s)
	}
}

// Submit creates the amenity and attaches the orchestrator's pending images.
// Only a failed amenity creation is returned as an error; the candidates are
// then kept so the user can retry. Once the amenity exists the orchestrator
// is cleared and Submit succeeds even if no image could be attached.
func (f *Flow) Submit(ctx context.Context, req model.CreateAmenityRequest) (*Result, error) {
	f.mu.Lock()
	switch f.state {
	case StateCreatingEntity, StateUploadingImages, StateConfirmingImages:
		f.mu.Unlock()
		return nil, ErrInProgress
	}
	f.state = StateCreatingEntity
	f.mu.Unlock()
	if f.onState != nil {
		f.onState(StateCreatingEntity)
	}

	amenityID, err := f.creator.CreateAmenity(ctx, req)
	if err != nil {
		f.setState(StateFailed)
		return nil, fmt.Errorf("failed to create amenity: %w", err)
	}

	result := &Result{AmenityID: amenityID}
	defer f.images.Clear()

	if f.images.Pending() == 0 {
		f.setState(StateDone)
		return result, nil
	}

	f.setState(StateUploadingImages)
	result.Uploaded = f.images.UploadAll(ctx, amenityID)
	for _, c := range f.images.Candidates() {
		if c.State == upload.StateError {
			result.Failed = append(result.Failed, c)
		}
	}

	descriptors := upload.Descriptors(result.Uploaded)
	if len(descriptors) == 0 {
		result.ImageErr = errors.New("no image was uploaded")
		slog.Warn("amenity created without images", "amenity_id", amenityID, "failed", len(result.Failed))
		f.setState(StateDone)
		return result, nil
	}

	f.setState(StateConfirmingImages)
	result.Images, err = f.confirmer.ConfirmImages(ctx, amenityID, descriptors)
	if err != nil {
		result.ImageErr = err
		// The amenity exists, so the submission still succeeds; the objects
		// already written are left for the orphan sweep.
		if errors.Is(err, repository.ErrCapacityExceeded) {
			slog.Warn("image confirmation rejected", "amenity_id", amenityID, "images", len(descriptors), "error", err)
		} else {
			slog.Error("image confirmation failed", "amenity_id", amenityID, "images", len(descriptors), "error", err)
		}
	}

	f.setState(StateDone)
	return result, nil
}

// Reset cancels the current draft: pending images are dropped and their
// previews released.
func (f *Flow) Reset() {
	f.images.Clear()
	f.setState(StateIdle)
}
