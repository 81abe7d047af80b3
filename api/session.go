package api

import (
	"time"

	"github.com/dfryer1193/goplaces/places/domain"
)

type Task struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	State string `json:"state"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

type Session struct {
	ID       string    `json:"id"`
	PlaceID  string    `json:"place_id"`
	OpenedAt time.Time `json:"opened_at"`
	Original []string  `json:"original"`
	Working  []string  `json:"working"`
	Tasks    []Task    `json:"tasks"`
}

type UploadResult struct {
	Tasks   []Task   `json:"tasks"`
	Working []string `json:"working"`
}

type SaveResult struct {
	PlaceID string            `json:"place_id"`
	Images  []string          `json:"images"`
	Deleted map[string]string `json:"deleted"`
	// Warning is set when the images were saved but orphan cleanup failed.
	Warning string   `json:"warning,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

type Error struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func NewTask(t domain.UploadTask) Task {
	return Task{
		Index: t.Index,
		Name:  t.Name,
		State: t.State.String(),
		URL:   string(t.Ref),
		Error: t.Err,
	}
}

func NewTasks(tasks []domain.UploadTask) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = NewTask(t)
	}
	return out
}
