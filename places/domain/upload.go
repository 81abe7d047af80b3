package domain

// TaskState is the lifecycle state of a single file upload.
// Uploading is the only non-terminal state; a task never returns to it.
type TaskState int

const (
	TaskUploading TaskState = iota
	TaskSucceeded
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskUploading:
		return "uploading"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is Succeeded or Failed.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// UploadTask tracks one file of an upload batch. Index is fixed when the task is created
// and is the only stable link back to the originating file.
type UploadTask struct {
	Index int
	Name  string
	State TaskState
	Ref   ImageReference
	Err   string
}
