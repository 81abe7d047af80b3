package application

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dfryer1193/goplaces/places/domain"
)

var (
	ErrUploadsInFlight     = errors.New("uploads are still in progress")
	ErrSessionClosing      = errors.New("edit session is being saved or discarded")
	ErrImageNotInSession   = errors.New("image is not in the working list")
	ErrTaskIndexOutOfRange = errors.New("task index out of range")
)

// EditSession holds one admin's in-progress edit of a place's image list.
//
// The original list is captured when the session opens and never changes. The working
// list and task list are mutated by concurrent uploads and are guarded by mu.
type EditSession struct {
	ID       string
	PlaceID  string
	OpenedAt time.Time

	original []domain.ImageReference

	mu      sync.Mutex
	working []domain.ImageReference
	tasks   []domain.UploadTask
	// published is the index of the first task whose reference has not yet been
	// released to the working list in submission order.
	published int
	// closing is set by a save or discard; no new uploads or removals are accepted.
	closing bool
}

func NewEditSession(id string, place *domain.Place, openedAt time.Time) *EditSession {
	return &EditSession{
		ID:       id,
		PlaceID:  place.ID,
		OpenedAt: openedAt,
		original: slices.Clone(place.Images),
		working:  slices.Clone(place.Images),
	}
}

// Original returns a copy of the image list as it was when the session opened.
func (s *EditSession) Original() []domain.ImageReference {
	return slices.Clone(s.original)
}

// Working returns a copy of the current working image list.
func (s *EditSession) Working() []domain.ImageReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.working)
}

// Tasks returns a copy of the task list.
func (s *EditSession) Tasks() []domain.UploadTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

func (s *EditSession) Task(index int) (domain.UploadTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tasks) {
		return domain.UploadTask{}, ErrTaskIndexOutOfRange
	}
	return s.tasks[index], nil
}

// appendTasks creates one Uploading task per name and returns the index of the first.
// Indices are fixed here, before any upload starts.
func (s *EditSession) appendTasks(names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return 0, ErrSessionClosing
	}
	base := len(s.tasks)
	for i, name := range names {
		s.tasks = append(s.tasks, domain.UploadTask{
			Index: base + i,
			Name:  name,
			State: domain.TaskUploading,
		})
	}
	return base, nil
}

// beginClose freezes the session for a save or discard. It fails while any upload is
// still running, since a reference published after the final snapshot would be lost.
func (s *EditSession) beginClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrSessionClosing
	}
	for _, t := range s.tasks {
		if !t.State.Terminal() {
			return ErrUploadsInFlight
		}
	}
	s.closing = true
	return nil
}

// abortClose reopens a session whose save did not commit.
func (s *EditSession) abortClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = false
}

// completeTask marks a task Succeeded and publishes its reference. With inOrder set the
// reference is held back until every earlier task is terminal.
func (s *EditSession) completeTask(index int, ref domain.ImageReference, inOrder bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tasks) {
		return ErrTaskIndexOutOfRange
	}
	if s.tasks[index].State.Terminal() {
		return nil
	}
	s.tasks[index].State = domain.TaskSucceeded
	s.tasks[index].Ref = ref

	if !inOrder {
		s.working = append(s.working, ref)
		return nil
	}
	s.releaseInOrder()
	return nil
}

func (s *EditSession) failTask(index int, reason string, inOrder bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tasks) {
		return ErrTaskIndexOutOfRange
	}
	if s.tasks[index].State.Terminal() {
		return nil
	}
	s.tasks[index].State = domain.TaskFailed
	s.tasks[index].Err = reason

	if inOrder {
		s.releaseInOrder()
	}
	return nil
}

// releaseInOrder must be called with mu held.
func (s *EditSession) releaseInOrder() {
	for s.published < len(s.tasks) && s.tasks[s.published].State.Terminal() {
		if t := s.tasks[s.published]; t.State == domain.TaskSucceeded {
			s.working = append(s.working, t.Ref)
		}
		s.published++
	}
}

// RemoveImage drops every occurrence of ref from the working list.
func (s *EditSession) RemoveImage(ref domain.ImageReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrSessionClosing
	}
	n := len(s.working)
	s.working = slices.DeleteFunc(s.working, func(r domain.ImageReference) bool { return r == ref })
	if len(s.working) == n {
		return ErrImageNotInSession
	}
	return nil
}

// ClearTasks empties the task list once every task is terminal.
func (s *EditSession) ClearTasks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if !t.State.Terminal() {
			return ErrUploadsInFlight
		}
	}
	s.tasks = nil
	s.published = 0
	return nil
}
