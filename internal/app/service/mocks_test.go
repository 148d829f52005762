package service

import (
	"context"

	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
	"github.com/taekabu/linkfan/internal/app/repository"
)

type mockMainLinkRepo struct {
	createFn     func(ctx context.Context, link *model.MainLink) error
	getByIDFn    func(ctx context.Context, id int64) (*model.MainLink, error)
	getOwnedFn   func(ctx context.Context, id, userID int64) (*model.MainLink, error)
	listByUserFn func(ctx context.Context, userID int64) ([]model.MainLink, error)
	listFn       func(ctx context.Context, limit, offset int) ([]model.MainLink, error)
	existsSlugFn func(ctx context.Context, userID int64, slug string) (bool, error)
	countFn      func(ctx context.Context, userID int64) (int64, error)
	updateFn     func(ctx context.Context, link *model.MainLink) error
	deleteFn     func(ctx context.Context, id int64) error
}

func (m *mockMainLinkRepo) Create(ctx context.Context, link *model.MainLink) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockMainLinkRepo) GetByID(ctx context.Context, id int64) (*model.MainLink, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrMainLinkNotFound
}

func (m *mockMainLinkRepo) GetOwned(ctx context.Context, id, userID int64) (*model.MainLink, error) {
	if m.getOwnedFn != nil {
		return m.getOwnedFn(ctx, id, userID)
	}
	return nil, repository.ErrMainLinkNotFound
}

func (m *mockMainLinkRepo) ListByUser(ctx context.Context, userID int64) ([]model.MainLink, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockMainLinkRepo) List(ctx context.Context, limit, offset int) ([]model.MainLink, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockMainLinkRepo) ExistsSlug(ctx context.Context, userID int64, slug string) (bool, error) {
	if m.existsSlugFn != nil {
		return m.existsSlugFn(ctx, userID, slug)
	}
	return false, nil
}

func (m *mockMainLinkRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockMainLinkRepo) Update(ctx context.Context, link *model.MainLink) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, link)
	}
	return nil
}

func (m *mockMainLinkRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockDestinationRepo struct {
	createFn    func(ctx context.Context, dest *model.DestinationLink) error
	getBySlugFn func(ctx context.Context, slug string) (*model.DestinationLink, error)
	getOwnedFn  func(ctx context.Context, id, userID int64) (*model.DestinationLink, error)
	listFn      func(ctx context.Context, mainLinkID int64) ([]model.DestinationLink, error)
	updateFn    func(ctx context.Context, dest *model.DestinationLink) error
	deleteFn    func(ctx context.Context, id int64) error
}

func (m *mockDestinationRepo) Create(ctx context.Context, dest *model.DestinationLink) error {
	if m.createFn != nil {
		return m.createFn(ctx, dest)
	}
	return nil
}

func (m *mockDestinationRepo) GetBySlug(ctx context.Context, slug string) (*model.DestinationLink, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, repository.ErrDestinationNotFound
}

func (m *mockDestinationRepo) GetOwned(ctx context.Context, id, userID int64) (*model.DestinationLink, error) {
	if m.getOwnedFn != nil {
		return m.getOwnedFn(ctx, id, userID)
	}
	return nil, repository.ErrDestinationNotFound
}

func (m *mockDestinationRepo) ListByMainLink(ctx context.Context, mainLinkID int64) ([]model.DestinationLink, error) {
	if m.listFn != nil {
		return m.listFn(ctx, mainLinkID)
	}
	return nil, nil
}

func (m *mockDestinationRepo) Update(ctx context.Context, dest *model.DestinationLink) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, dest)
	}
	return nil
}

func (m *mockDestinationRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockUserRepo struct {
	getByIDFn    func(ctx context.Context, id int64) (*model.User, error)
	getBySlugFn  func(ctx context.Context, slug string) (*model.User, error)
	updateSlugFn func(ctx context.Context, id int64, newSlug string) error
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) GetBySlug(ctx context.Context, slug string) (*model.User, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) UpdateSlug(ctx context.Context, id int64, newSlug string) error {
	if m.updateSlugFn != nil {
		return m.updateSlugFn(ctx, id, newSlug)
	}
	return nil
}

type mockSettingRepo struct {
	getFn     func(ctx context.Context, destinationLinkID int64) (*model.ConversionSetting, error)
	replaceFn func(ctx context.Context, setting *model.ConversionSetting) error
}

func (m *mockSettingRepo) GetByDestination(ctx context.Context, destinationLinkID int64) (*model.ConversionSetting, error) {
	if m.getFn != nil {
		return m.getFn(ctx, destinationLinkID)
	}
	return nil, repository.ErrConversionSettingNotFound
}

func (m *mockSettingRepo) Replace(ctx context.Context, setting *model.ConversionSetting) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, setting)
	}
	return nil
}

type mockSnapshotStore struct {
	getFn    func(ctx context.Context, key string) (*model.Snapshot, error)
	putFn    func(ctx context.Context, key string, snap *model.Snapshot) error
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockSnapshotStore) Get(ctx context.Context, key string) (*model.Snapshot, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, kv.ErrSnapshotNotFound
}

func (m *mockSnapshotStore) Put(ctx context.Context, key string, snap *model.Snapshot) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, snap)
	}
	return nil
}

func (m *mockSnapshotStore) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

// syncRunner executes scheduled tasks inline so tests can assert on their
// effects immediately.
type syncRunner struct {
	errs []error
}

func (r *syncRunner) Go(_ string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil {
		r.errs = append(r.errs, err)
	}
}

// recordingRunner queues tasks without running them, so tests can check
// the response exists before any deferred write happened.
type recordingRunner struct {
	tasks []func(ctx context.Context) error
}

func (r *recordingRunner) Go(_ string, fn func(ctx context.Context) error) {
	r.tasks = append(r.tasks, fn)
}

func (r *recordingRunner) runAll() []error {
	var errs []error
	for _, fn := range r.tasks {
		if err := fn(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	r.tasks = nil
	return errs
}

// collectSink records published click events.
type collectSink struct {
	events []model.ClickEvent
	err    error
}

func (s *collectSink) Publish(event model.ClickEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}
