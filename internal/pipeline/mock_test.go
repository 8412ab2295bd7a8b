package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/neighborhood-cli/internal/interpret"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*model.Coordinate, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coordinate), args.Error(1)
}

type mockReverse struct {
	mock.Mock
}

func (m *mockReverse) ReverseGeocode(ctx context.Context, coord model.Coordinate) (*model.Location, error) {
	args := m.Called(ctx, coord)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Location), args.Error(1)
}

type mockBoundaries struct {
	mock.Mock
}

func (m *mockBoundaries) FetchBoundaries(ctx context.Context, state, county string, level model.GeographyLevel) ([]model.Feature, error) {
	args := m.Called(ctx, state, county, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Feature), args.Error(1)
}

type mockInterpreter struct {
	mock.Mock
}

func (m *mockInterpreter) Interpret(ctx context.Context, request string, loc model.Location) (*interpret.Interpretation, error) {
	args := m.Called(ctx, request, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interpret.Interpretation), args.Error(1)
}

type mockStatistics struct {
	mock.Mock
}

func (m *mockStatistics) FetchStatistics(ctx context.Context, q *model.StructuredQuery) ([]model.StatisticRow, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatisticRow), args.Error(1)
}
