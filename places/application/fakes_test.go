package application

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/dfryer1193/goplaces/places/domain"
)

const testBase = "https://res.cloudinary.com/demo/image/upload/"

func ref(id string) domain.ImageReference {
	return domain.ImageReference(testBase + "v1/cambodia-travel/" + id + ".jpg")
}

// fakeUploader returns a reference derived from the file name, or fails for names in fail.
type fakeUploader struct {
	mu      sync.Mutex
	fail    map[string]error
	block   map[string]chan struct{}
	folders []string
	got     map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{fail: map[string]error{}, block: map[string]chan struct{}{}, got: map[string][]byte{}}
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte, filename string, folder string) (domain.ImageReference, error) {
	u.mu.Lock()
	ch := u.block[filename]
	u.mu.Unlock()
	if ch != nil {
		<-ch
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.folders = append(u.folders, folder)
	u.got[filename] = data
	if err := u.fail[filename]; err != nil {
		return "", err
	}
	return ref(strings.TrimSuffix(filename, ".jpg")), nil
}

// fakeDeleter keeps a set of live identifiers so repeated deletes report NotFound.
type fakeDeleter struct {
	mu    sync.Mutex
	live  map[string]bool
	calls [][]string
	err   error
}

func newFakeDeleter(live ...string) *fakeDeleter {
	d := &fakeDeleter{live: map[string]bool{}}
	for _, id := range live {
		d.live[id] = true
	}
	return d
}

func (d *fakeDeleter) Delete(ctx context.Context, ids []string) (map[string]domain.DeleteOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, slices.Clone(ids))
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[string]domain.DeleteOutcome, len(ids))
	for _, id := range ids {
		if d.live[id] {
			delete(d.live, id)
			out[id] = domain.OutcomeDeleted
		} else {
			out[id] = domain.OutcomeNotFound
		}
	}
	return out, nil
}

func (d *fakeDeleter) Calls() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

type fakeResampler struct {
	err error
}

func (r *fakeResampler) Resample(data []byte) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append([]byte("small:"), data...), nil
}

// fakeRepo is an in-memory PlaceRepository.
type fakeRepo struct {
	mu        sync.Mutex
	places    map[string]*domain.Place
	updateErr error
	deleteErr error
}

func newFakeRepo(places ...*domain.Place) *fakeRepo {
	r := &fakeRepo{places: map[string]*domain.Place{}}
	for _, p := range places {
		r.places[p.ID] = p
	}
	return r
}

func (r *fakeRepo) ListPlaces(ctx context.Context) ([]*domain.Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Place, 0, len(r.places))
	for _, p := range r.places {
		cp := *p
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *domain.Place) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *fakeRepo) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.places[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.Images = slices.Clone(p.Images)
	return &cp, nil
}

func (r *fakeRepo) CreatePlace(ctx context.Context, p *domain.Place) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.places[p.ID]; ok {
		return errors.New("duplicate id")
	}
	cp := *p
	r.places[p.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateImages(ctx context.Context, id string, images []domain.ImageReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	p, ok := r.places[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Images = slices.Clone(images)
	return nil
}

func (r *fakeRepo) DeletePlace(ctx context.Context, id string) (*domain.Place, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return nil, r.deleteErr
	}
	p, ok := r.places[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.places, id)
	cp := *p
	cp.Images = slices.Clone(p.Images)
	return &cp, nil
}
