package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dfryer1193/goplaces/internal/metrics"
	"github.com/dfryer1193/goplaces/places/assets"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/places/geo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionNotFound = fmt.Errorf("edit session %w", domain.ErrNotFound)
	ErrInvalidPlace    = errors.New("place requires a name")
)

// SaveResult reports what a save committed and which orphaned assets were deleted.
type SaveResult struct {
	PlaceID  string
	Images   []domain.ImageReference
	Outcomes map[string]domain.DeleteOutcome
}

type PlaceService struct {
	repo         domain.PlaceRepository
	deleter      domain.AssetDeleter
	codec        *assets.Codec
	orchestrator *UploadOrchestrator
	reconciler   *OrphanReconciler
	now          func() time.Time

	sessionsMu sync.RWMutex
	sessions   map[string]*EditSession

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

func NewPlaceService(repo domain.PlaceRepository, deleter domain.AssetDeleter, codec *assets.Codec, orchestrator *UploadOrchestrator) *PlaceService {
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	return &PlaceService{
		repo:         repo,
		deleter:      deleter,
		codec:        codec,
		orchestrator: orchestrator,
		reconciler:   NewOrphanReconciler(codec, deleter),
		now:          time.Now,
		sessions:     make(map[string]*EditSession),
		ctx:          ctx,
		cancel:       cancel,
		wg:           &wg,
	}
}

// Close gracefully shuts down the PlaceService, cancelling in-flight uploads and
// waiting for detached deletes to return.
func (s *PlaceService) Close() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

func (s *PlaceService) Codec() *assets.Codec {
	return s.codec
}

// SearchPlaces lists places matching filter, newest first. Province matches either
// language exactly, ignoring case. Query is a case-insensitive substring of a name or keyword.
func (s *PlaceService) SearchPlaces(ctx context.Context, filter domain.PlaceFilter) ([]*domain.Place, error) {
	places, err := s.repo.ListPlaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	province := strings.TrimSpace(filter.Province)

	matched := make([]*domain.Place, 0, len(places))
	for _, p := range places {
		if province != "" && !strings.EqualFold(p.ProvinceEN, province) && !strings.EqualFold(p.ProvinceKM, province) {
			continue
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func matchesQuery(p *domain.Place, query string) bool {
	if strings.Contains(strings.ToLower(p.NameEN), query) || strings.Contains(strings.ToLower(p.NameKM), query) {
		return true
	}
	for _, k := range p.Keywords {
		if strings.Contains(strings.ToLower(k), query) {
			return true
		}
	}
	return false
}

func (s *PlaceService) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	p, err := s.repo.GetPlace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get place %s: %w", id, err)
	}
	return p, nil
}

// NearbyPlaces ranks every other place by distance from the place with the given id.
func (s *PlaceService) NearbyPlaces(ctx context.Context, id string, opts geo.NearbyOptions) ([]geo.DistanceResult, error) {
	start := time.Now()
	metrics.NearbyRequestsTotal.Inc()
	defer func() {
		metrics.NearbyDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	ref, err := s.GetPlace(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.ListPlaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate places: %w", err)
	}

	return geo.Nearby(ref, candidates, opts), nil
}

// CreatePlace assigns an id and creation time to p and persists it.
func (s *PlaceService) CreatePlace(ctx context.Context, p *domain.Place) (*domain.Place, error) {
	if strings.TrimSpace(p.NameEN) == "" && strings.TrimSpace(p.NameKM) == "" {
		return nil, ErrInvalidPlace
	}

	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	if p.Images == nil {
		p.Images = []domain.ImageReference{}
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}

	if err := s.repo.CreatePlace(ctx, p); err != nil {
		return nil, &domain.RecordStoreError{Op: "create", PlaceID: p.ID, Err: err}
	}
	return p, nil
}

// DeletePlace removes the place record and then, only once that commits, deletes every
// asset the record held at deletion. Open edit sessions on the place are discarded; the
// delete is refused while any of them has an upload running.
func (s *PlaceService) DeletePlace(ctx context.Context, id string) (map[string]domain.DeleteOutcome, error) {
	sessions, err := s.closeSessionsFor(id)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.DeletePlace(ctx, id)
	if err != nil {
		for _, session := range sessions {
			session.abortClose()
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to delete place %s: %w", id, err)
		}
		return nil, &domain.RecordStoreError{Op: "delete", PlaceID: id, Err: err}
	}

	for _, session := range sessions {
		s.removeSession(session.ID)
	}

	outcomes, err := s.reconciler.Reconcile(ctx, p.Images, nil)
	if err != nil {
		log.Error().Err(err).Str("placeID", id).Msg("Place deleted but its assets were not")
		return nil, err
	}
	return outcomes, nil
}

// OpenSession snapshots the place's current image list into a new edit session.
func (s *PlaceService) OpenSession(ctx context.Context, placeID string) (*EditSession, error) {
	p, err := s.GetPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}

	session := NewEditSession(uuid.NewString(), p, s.now().UTC())

	s.sessionsMu.Lock()
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()
	metrics.ActiveSessions.Inc()

	return session, nil
}

func (s *PlaceService) Session(id string) (*EditSession, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DiscardSession ends a session without touching the record or any asset. It is refused
// while uploads are running, since their assets would then belong to no session.
func (s *PlaceService) DiscardSession(id string) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	if err := session.beginClose(); err != nil {
		return err
	}
	s.removeSession(id)
	return nil
}

func (s *PlaceService) removeSession(id string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		metrics.ActiveSessions.Dec()
	}
}

// closeSessionsFor freezes every session on placeID. If one cannot close, those already
// frozen are reopened.
func (s *PlaceService) closeSessionsFor(placeID string) ([]*EditSession, error) {
	s.sessionsMu.RLock()
	var open []*EditSession
	for _, session := range s.sessions {
		if session.PlaceID == placeID {
			open = append(open, session)
		}
	}
	s.sessionsMu.RUnlock()

	for i, session := range open {
		if err := session.beginClose(); err != nil {
			for _, frozen := range open[:i] {
				frozen.abortClose()
			}
			return nil, err
		}
	}
	return open, nil
}

// UploadImages runs a batch upload into the session. Uploads use the service's lifecycle
// context so that a dropped client connection does not abandon them half way.
func (s *PlaceService) UploadImages(sessionID string, files []File) ([]domain.UploadTask, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.UploadBatch(s.ctx, session, files)
}

// RemoveImage drops ref from the working list and dispatches a detached delete of its
// asset. The delete is not awaited; SaveSession's reconciliation is the authoritative cleanup.
func (s *PlaceService) RemoveImage(sessionID string, ref domain.ImageReference) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if err := session.RemoveImage(ref); err != nil {
		return err
	}

	id, ok := s.codec.ExtractIdentifier(ref)
	if !ok {
		return nil
	}
	// Another reference to the same asset may still be in the list.
	for _, r := range session.Working() {
		if other, ok := s.codec.ExtractIdentifier(r); ok && other == id {
			return nil
		}
	}

	s.wg.Go(func() {
		results, err := s.deleter.Delete(s.ctx, []string{id})
		if err != nil {
			log.Error().Err(err).Str("sessionID", sessionID).Str("publicID", id).Msg("Failed to delete removed image")
			return
		}
		metrics.RecordDeletes(results)
	})
	return nil
}

func (s *PlaceService) ClearTasks(sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return session.ClearTasks()
}

// SaveSession commits the working list to the record store and then deletes orphaned assets.
// It is refused while uploads are running. If the record update fails nothing is deleted
// and the session stays open for a retry. Once the record is committed the session ends,
// even if reconciliation reports an error.
func (s *PlaceService) SaveSession(ctx context.Context, sessionID string) (*SaveResult, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.beginClose(); err != nil {
		return nil, err
	}

	final := session.Working()
	if err := s.repo.UpdateImages(ctx, session.PlaceID, final); err != nil {
		session.abortClose()
		log.Error().Err(err).Str("placeID", session.PlaceID).Str("sessionID", sessionID).Msg("Failed to save images")
		return nil, &domain.RecordStoreError{Op: "update images", PlaceID: session.PlaceID, Err: err}
	}

	s.removeSession(sessionID)

	result := &SaveResult{PlaceID: session.PlaceID, Images: final}
	outcomes, err := s.reconciler.Reconcile(ctx, session.Original(), final)
	if err != nil {
		log.Error().Err(err).Str("placeID", session.PlaceID).Msg("Images saved but orphaned assets were not deleted")
		return result, err
	}
	result.Outcomes = outcomes
	return result, nil
}
