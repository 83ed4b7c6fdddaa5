package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/legislator-panel/internal/model"
	"github.com/sells-group/legislator-panel/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) FinishRun(ctx context.Context, run *model.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) SaveLegislatures(ctx context.Context, runID string, records []model.PersonLegislature) error {
	return m.Called(ctx, runID, records).Error(0)
}

func (m *mockStore) LoadLegislatures(ctx context.Context, runID string) ([]model.PersonLegislature, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PersonLegislature), args.Error(1)
}

func (m *mockStore) SavePersonYears(ctx context.Context, runID string, rows []model.PersonYear) error {
	return m.Called(ctx, runID, rows).Error(0)
}

func (m *mockStore) LoadPersonYears(ctx context.Context, runID, legislature string) ([]model.PersonYear, error) {
	args := m.Called(ctx, runID, legislature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PersonYear), args.Error(1)
}

func (m *mockStore) SaveAudit(ctx context.Context, events []model.AuditEvent) error {
	return m.Called(ctx, events).Error(0)
}

func (m *mockStore) ClearAudit(ctx context.Context, runID, rule string) error {
	return m.Called(ctx, runID, rule).Error(0)
}

func (m *mockStore) ListAudit(ctx context.Context, runID string) ([]model.AuditEvent, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditEvent), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
