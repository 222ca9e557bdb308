package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/templui/amenitymap/internal/model"
)

var (
	// ErrTransport marks a failed network call or a non-2xx response from
	// the credential issuer or the object store.
	ErrTransport = errors.New("upload transport error")

	// ErrCapacityWarning is reported by Add when files were dropped because
	// the orchestrator was full.
	ErrCapacityWarning = errors.New("too many images")
)

// DefaultMax is the number of images one amenity may carry.
const DefaultMax = 3

// Issuer mints a write credential for one object.
type Issuer interface {
	Presign(ctx context.Context, req model.PresignRequest) (*model.UploadCredential, error)
}

// ObjectWriter performs the direct write to storage with a credential.
type ObjectWriter interface {
	Put(ctx context.Context, cred *model.UploadCredential, contentType string, data []byte) error
}

// Orchestrator tracks a bounded, ordered set of candidates and uploads them
// one at a time. It is safe for concurrent use: Remove and Clear may be
// called while UploadAll runs.
type Orchestrator struct {
	issuer   Issuer
	writer   ObjectWriter
	previews *PreviewStore
	max      int
	onChange func(Candidate)

	mu         sync.Mutex
	candidates []*Candidate
}

type Option func(*Orchestrator)

// WithMax sets the capacity. Values below 1 are ignored.
func WithMax(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.max = n
		}
	}
}

// WithPreviewStore shares an existing preview store.
func WithPreviewStore(s *PreviewStore) Option {
	return func(o *Orchestrator) {
		o.previews = s
	}
}

// OnChange registers fn to receive a snapshot after every state or progress
// change. fn runs on the goroutine that caused the change.
func OnChange(fn func(Candidate)) Option {
	return func(o *Orchestrator) {
		o.onChange = fn
	}
}

func New(issuer Issuer, writer ObjectWriter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		issuer: issuer,
		writer: writer,
		max:    DefaultMax,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.previews == nil {
		o.previews = NewPreviewStore()
	}
	return o
}

// Max returns the capacity.
func (o *Orchestrator) Max() int {
	return o.max
}

// Previews returns the store backing candidate previews.
func (o *Orchestrator) Previews() *PreviewStore {
	return o.previews
}

// Rejection is a file Add refused.
type Rejection struct {
	Filename string
	Err      error
}

// AddResult reports the outcome of one Add call. Nothing in it is fatal.
type AddResult struct {
	Accepted []Candidate
	Rejected []Rejection
	Dropped  int
	Warning  error // wraps ErrCapacityWarning when Dropped > 0
}

// Add prepares files and appends the valid ones in arrival order. Files
// beyond the remaining capacity are dropped with a single warning.
func (o *Orchestrator) Add(ctx context.Context, files []File) AddResult {
	var res AddResult

	remaining := o.max - o.Len()
	if remaining < 0 {
		remaining = 0
	}
	if len(files) > remaining {
		res.Dropped = len(files) - remaining
		res.Warning = fmt.Errorf("%w: only %d more allowed, %d ignored", ErrCapacityWarning, remaining, res.Dropped)
		files = files[:remaining]
	}

	prepared := make([]*Candidate, 0, len(files))
	for _, f := range files {
		c, err := Prepare(ctx, f, o.previews)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Filename: f.Name, Err: err})
			continue
		}
		prepared = append(prepared, c)
	}

	o.mu.Lock()
	for _, c := range prepared {
		// A concurrent Add may have used the slots in the meantime
		if len(o.candidates) >= o.max {
			o.previews.Release(c.Preview)
			res.Dropped++
			continue
		}
		o.candidates = append(o.candidates, c)
		res.Accepted = append(res.Accepted, *c)
	}
	o.mu.Unlock()

	if res.Dropped > 0 && res.Warning == nil {
		res.Warning = fmt.Errorf("%w: %d ignored", ErrCapacityWarning, res.Dropped)
	}

	for _, c := range res.Accepted {
		o.notify(c)
	}
	return res
}

// Remove drops the candidate with id and releases its preview. An upload
// still in flight for it completes but its result is discarded.
func (o *Orchestrator) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := slices.IndexFunc(o.candidates, func(c *Candidate) bool { return c.ID == id })
	if i < 0 {
		return false
	}
	o.previews.Release(o.candidates[i].Preview)
	o.candidates = slices.Delete(o.candidates, i, i+1)
	return true
}

// Clear releases every preview and empties the collection.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, c := range o.candidates {
		o.previews.Release(c.Preview)
	}
	o.candidates = nil
}

// Candidates returns snapshots in insertion order.
func (o *Orchestrator) Candidates() []Candidate {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Candidate, len(o.candidates))
	for i, c := range o.candidates {
		out[i] = *c
	}
	return out
}

func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.candidates)
}

// Pending reports how many candidates are waiting to be uploaded.
func (o *Orchestrator) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, c := range o.candidates {
		if c.State == StatePending {
			n++
		}
	}
	return n
}

// UploadAll uploads every pending candidate sequentially in insertion order.
// A failure marks that candidate as errored and moves on to the next one.
// Cancelling ctx stops before the next candidate; those not started stay
// pending. It returns the candidates that reached StateUploaded.
func (o *Orchestrator) UploadAll(ctx context.Context, amenityID string) []Candidate {
	o.mu.Lock()
	var queue []string
	for _, c := range o.candidates {
		if c.State == StatePending {
			queue = append(queue, c.ID)
		}
	}
	o.mu.Unlock()

	var uploaded []Candidate
	for _, id := range queue {
		if ctx.Err() != nil {
			break
		}

		c, ok := o.update(id, func(c *Candidate) {
			c.State = StateUploading
			c.Progress = 0
			c.Err = ""
		})
		if !ok {
			continue
		}

		key, url, err := o.upload(ctx, amenityID, c)
		if err != nil {
			slog.Warn("image upload failed", "filename", c.Filename, "error", err)
			o.update(id, func(c *Candidate) {
				c.State = StateError
				c.Err = err.Error()
			})
			continue
		}

		done, ok := o.update(id, func(c *Candidate) {
			c.State = StateUploaded
			c.Progress = 100
			c.Key = key
			c.URL = url
		})
		if ok {
			uploaded = append(uploaded, done)
		}
	}

	return uploaded
}

func (o *Orchestrator) upload(ctx context.Context, amenityID string, c Candidate) (string, string, error) {
	cred, err := o.issuer.Presign(ctx, model.PresignRequest{
		Filename:    c.Filename,
		ContentType: c.ContentType,
		FileSize:    c.Size,
		AmenityID:   amenityID,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to get upload URL: %w", err)
	}

	o.update(c.ID, func(c *Candidate) { c.Progress = 50 })

	err = o.writer.Put(ctx, cred, c.ContentType, c.Data)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload %s: %w", c.Filename, err)
	}

	return cred.R2Key, cred.CDNURL, nil
}

// update applies fn to the tracked candidate id and returns a snapshot. It
// reports false when the candidate has been removed.
func (o *Orchestrator) update(id string, fn func(*Candidate)) (Candidate, bool) {
	o.mu.Lock()
	i := slices.IndexFunc(o.candidates, func(c *Candidate) bool { return c.ID == id })
	if i < 0 {
		o.mu.Unlock()
		return Candidate{}, false
	}
	fn(o.candidates[i])
	snapshot := *o.candidates[i]
	o.mu.Unlock()

	o.notify(snapshot)
	return snapshot, true
}

func (o *Orchestrator) notify(c Candidate) {
	if o.onChange != nil {
		o.onChange(c)
	}
}

// Descriptors builds the confirm batch for uploaded candidates. Display
// order is the position among successful uploads, so failures leave no gap.
func Descriptors(uploaded []Candidate) []model.ImageDescriptor {
	out := make([]model.ImageDescriptor, 0, len(uploaded))
	for _, c := range uploaded {
		if c.State != StateUploaded {
			continue
		}
		d := model.ImageDescriptor{
			R2Key:        c.Key,
			CDNURL:       c.URL,
			Filename:     c.Filename,
			ContentType:  c.ContentType,
			FileSize:     c.Size,
			DisplayOrder: len(out),
		}
		if c.Width > 0 && c.Height > 0 {
			w, h := c.Width, c.Height
			d.Width, d.Height = &w, &h
		}
		out = append(out, d)
	}
	return out
}
