package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// MemoryStorage is an in-process Storage whose presigned URLs are served by
// Handler. It enforces the same rules the real provider does: one write per
// credential, matching content type, and expiry.
type MemoryStorage struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]memoryObject
	grants  map[string]grant
	now     func() time.Time
}

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

type grant struct {
	key         string
	contentType string
	expires     time.Time
}

// NewMemoryStorage returns a MemoryStorage whose URLs are rooted at baseURL.
// baseURL may be set later with SetBaseURL, once an httptest server exists.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]memoryObject),
		grants:  make(map[string]grant),
		now:     time.Now,
	}
}

func (m *MemoryStorage) SetBaseURL(baseURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseURL = strings.TrimSuffix(baseURL, "/")
}

// SetClock overrides the time source used for expiry checks.
func (m *MemoryStorage) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStorage) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.grants[token] = grant{key: key, contentType: contentType, expires: m.now().Add(expiry)}
	return m.baseURL + "/upload/" + key + "?token=" + url.QueryEscape(token), nil
}

func (m *MemoryStorage) PublicURL(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseURL + "/public/" + key
}

// Put stores an object directly, bypassing presigned grants.
func (m *MemoryStorage) Put(key, contentType string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType, lastModified: modified}
}

// Get returns a stored object's bytes and content type.
func (m *MemoryStorage) Get(key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return obj.data, obj.contentType, nil
}

func (m *MemoryStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var objects []Object
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, Object{Key: key, Size: int64(len(obj.data)), LastModified: obj.lastModified})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Handler serves presigned PUTs under /upload/ and stored objects under /public/.
func (m *MemoryStorage) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /upload/{key...}", m.handlePut)
	mux.HandleFunc("GET /public/{key...}", m.handleGet)
	return mux
}

func (m *MemoryStorage) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	token := r.URL.Query().Get("token")

	m.mu.Lock()
	g, ok := m.grants[token]
	if ok {
		delete(m.grants, token)
	}
	now := m.now()
	m.mu.Unlock()

	switch {
	case !ok || g.key != key:
		http.Error(w, "AccessDenied: invalid signature", http.StatusForbidden)
		return
	case now.After(g.expires):
		http.Error(w, "AccessDenied: request has expired", http.StatusForbidden)
		return
	case r.Header.Get("Content-Type") != g.contentType:
		http.Error(w, "SignatureDoesNotMatch: content-type", http.StatusForbidden)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.Put(key, g.contentType, data, now)
	w.WriteHeader(http.StatusOK)
}

func (m *MemoryStorage) handleGet(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := m.Get(r.PathValue("key"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}
