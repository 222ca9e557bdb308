package upload

// State is the lifecycle position of a Candidate.
type State string

const (
	StatePending   State = "pending"
	StateUploading State = "uploading"
	StateUploaded  State = "uploaded"
	StateError     State = "error"
)

// Candidate is an image held by the client until it is uploaded and
// confirmed. Values handed out by the Orchestrator are snapshots.
type Candidate struct {
	ID           string
	Filename     string
	ContentType  string
	Data         []byte
	Size         int64
	OriginalSize int64
	Width        int
	Height       int
	Preview      PreviewHandle

	State    State
	Progress int // 0..100
	Err      string

	// Set once uploaded
	Key string
	URL string
}

// Compressed reports whether recompression replaced the original bytes.
func (c Candidate) Compressed() bool {
	return c.Size < c.OriginalSize
}
