package weather_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/i474232898/weather-retrieval/internal/weather"
	"github.com/i474232898/weather-retrieval/internal/weather/mocks"
)

func sampleRecord(source string) weather.Record {
	return weather.Record{
		Source:    source,
		Timestamp: time.Date(2025, 3, 1, 11, 55, 0, 0, time.UTC),
		Weather: weather.Conditions{
			Temperature:         21.5,
			ApparentTemperature: 22,
			Humidity:            64,
			WindSpeed:           12.6,
			ConditionCode:       weather.ConditionRain,
			Condition:           weather.ConditionRain.String(),
			Precipitation:       weather.Precipitation{Type: weather.PrecipRain, Intensity: 1.2},
			Moon:                weather.NewMoon(0.5),
		},
	}
}

func newMockProvider(ctrl *gomock.Controller, name string) *mocks.MockProvider {
	p := mocks.NewMockProvider(ctrl)
	p.EXPECT().Name().Return(name).AnyTimes()
	return p
}

func TestChainFallsBackInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1 := newMockProvider(ctrl, "p1")
	p2 := newMockProvider(ctrl, "p2")
	p3 := newMockProvider(ctrl, "p3")

	gomock.InOrder(
		p1.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(weather.Record{}, errors.New("timeout")).Times(1),
		p2.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(sampleRecord("p2"), nil).Times(1),
	)
	p3.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	chain := weather.NewChain([]weather.Provider{p1, p2, p3}, time.Second, nil)
	rec, err := chain.Fetch(context.Background(), weather.NewCoordinate(1, 2), "")
	require.NoError(t, err)
	require.Equal(t, "p2", rec.Source)
}

func TestChainAllFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1 := newMockProvider(ctrl, "p1")
	p2 := newMockProvider(ctrl, "p2")
	p1.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(weather.Record{}, weather.ErrRateLimited)
	p2.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(weather.Record{}, errors.New("status 503"))

	chain := weather.NewChain([]weather.Provider{p1, p2}, time.Second, nil)
	_, err := chain.Fetch(context.Background(), weather.NewCoordinate(1, 2), "")

	var all *weather.AllProvidersFailedError
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Attempts, 2)
	require.Equal(t, "p1", all.Attempts[0].Provider)
	require.ErrorIs(t, all.Attempts[0], weather.ErrRateLimited)
	require.Equal(t, "p2", all.Attempts[1].Provider)
}

func TestChainRejectsIncompleteRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1 := newMockProvider(ctrl, "p1")
	p2 := newMockProvider(ctrl, "p2")

	partial := sampleRecord("p1")
	partial.Weather.ConditionCode = weather.ConditionUnknown
	p1.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(partial, nil)
	p2.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(sampleRecord("p2"), nil)

	rec, err := weather.NewChain([]weather.Provider{p1, p2}, time.Second, nil).
		Fetch(context.Background(), weather.NewCoordinate(1, 2), "")
	require.NoError(t, err)
	require.Equal(t, "p2", rec.Source)
}

func TestChainForcedProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1 := newMockProvider(ctrl, "p1")
	p2 := newMockProvider(ctrl, "p2")
	p1.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)
	p2.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(weather.Record{}, errors.New("boom"))

	chain := weather.NewChain([]weather.Provider{p1, p2}, time.Second, nil)
	_, err := chain.Fetch(context.Background(), weather.NewCoordinate(1, 2), "p2")

	var perr *weather.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "p2", perr.Provider)

	_, err = chain.Fetch(context.Background(), weather.NewCoordinate(1, 2), "nope")
	require.ErrorIs(t, err, weather.ErrUnknownProvider)
}

func TestChainBoundsEachCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	slow := newMockProvider(ctrl, "slow")
	fast := newMockProvider(ctrl, "fast")

	slow.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ weather.Coordinate) (weather.Record, error) {
			<-ctx.Done()
			return weather.Record{}, ctx.Err()
		})
	fast.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(sampleRecord("fast"), nil)

	chain := weather.NewChain([]weather.Provider{slow, fast}, 20*time.Millisecond, nil)
	rec, err := chain.Fetch(context.Background(), weather.NewCoordinate(1, 2), "")
	require.NoError(t, err)
	require.Equal(t, "fast", rec.Source)
}

func TestChainIgnoresCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1 := newMockProvider(ctrl, "p1")
	p1.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ weather.Coordinate) (weather.Record, error) {
			if err := ctx.Err(); err != nil {
				return weather.Record{}, err
			}
			return sampleRecord("p1"), nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := weather.NewChain([]weather.Provider{p1}, time.Second, nil).Fetch(ctx, weather.NewCoordinate(1, 2), "")
	require.NoError(t, err)
	require.Equal(t, "p1", rec.Source)
}

func TestChainNoProviders(t *testing.T) {
	_, err := weather.NewChain(nil, time.Second, nil).Fetch(context.Background(), weather.NewCoordinate(1, 2), "")
	require.ErrorIs(t, err, weather.ErrNoProviders)
}
