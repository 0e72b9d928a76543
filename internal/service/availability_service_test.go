package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"repairshop/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAvailabilityService(t *testing.T, repo *MockBookingRepository) *availabilityService {
	svc := NewAvailabilityService(testCatalog(t), repo, 2, zerolog.Nop()).(*availabilityService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestAvailabilityService_AvailableSlots(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		slug          string
		date          string
		counts        map[string]int
		countErr      error
		expectCount   bool
		expectedSlots []string
		expectedCode  string
	}{
		{
			name:          "All slots free",
			slug:          testLocation,
			date:          "2030-03-04",
			counts:        map[string]int{},
			expectCount:   true,
			expectedSlots: []string{"09:00", "10:00", "11:00"},
		},
		{
			name:          "Full slot hidden",
			slug:          testLocation,
			date:          "2030-03-04",
			counts:        map[string]int{"10:00": 2, "11:00": 1},
			expectCount:   true,
			expectedSlots: []string{"09:00", "11:00"},
		},
		{
			name:          "Overbooked slot hidden",
			slug:          testLocation,
			date:          "2030-03-04",
			counts:        map[string]int{"09:00": 3},
			expectCount:   true,
			expectedSlots: []string{"10:00", "11:00"},
		},
		{
			name:          "Split day",
			slug:          testLocation,
			date:          "2030-03-06",
			counts:        map[string]int{},
			expectCount:   true,
			expectedSlots: []string{"09:00", "10:00", "13:00", "14:00"},
		},
		{
			name:          "Closed day has no slots",
			slug:          testLocation,
			date:          "2030-03-05",
			expectedSlots: []string{},
		},
		{
			name:          "Today is allowed",
			slug:          testLocation,
			date:          "2030-03-01",
			expectedSlots: []string{},
		},
		{
			name:         "Past date",
			slug:         testLocation,
			date:         "2030-02-28",
			expectedCode: model.ErrCodeInvalid,
		},
		{
			name:         "Malformed date",
			slug:         testLocation,
			date:         "04.03.2030",
			expectedCode: model.ErrCodeInvalid,
		},
		{
			name:         "Unknown location",
			slug:         "paris",
			date:         "2030-03-04",
			expectedCode: model.ErrCodeNotFound,
		},
		{
			name:         "Repository error",
			slug:         testLocation,
			date:         "2030-03-04",
			countErr:     errors.New("database error"),
			expectCount:  true,
			expectedCode: model.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockBookingRepository)
			svc := newTestAvailabilityService(t, repo)

			if tt.expectCount {
				repo.On("CountBySlot", ctx, tt.slug, date(tt.date)).Return(tt.counts, tt.countErr)
			}

			resp, err := svc.AvailableSlots(ctx, tt.slug, tt.date)

			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, model.CodeOf(err))
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedSlots, resp.Slots)
				assert.Equal(t, tt.date, resp.Date)
				assert.Equal(t, "Repair Workshop Berlin Mitte", resp.LocationName)
			}

			repo.AssertExpectations(t)
			if !tt.expectCount {
				repo.AssertNotCalled(t, "CountBySlot", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAvailabilityService_FullyBookedDates(t *testing.T) {
	ctx := context.Background()
	from := date("2030-03-01")
	to := date("2030-04-01")

	t.Run("Dates at total capacity are reported", func(t *testing.T) {
		repo := new(MockBookingRepository)
		svc := newTestAvailabilityService(t, repo)

		// Mondays offer 3 slots, Wednesdays 4 and Thursdays 2.
		repo.On("CountByDate", ctx, testLocation, from, to).Return(map[string]int{
			"2030-03-04": 6, // full Monday
			"2030-03-11": 5, // one place left
			"2030-03-06": 8, // full Wednesday
			"2030-03-13": 7,
			"2030-03-07": 4, // 2 slots x capacity 2
			"2030-03-14": 3,
			"2030-03-05": 3, // closed day
		}, nil)

		resp, err := svc.FullyBookedDates(ctx, testLocation, "2030-03")
		require.NoError(t, err)
		assert.Equal(t, "2030-03", resp.Month)
		assert.Equal(t, []string{"2030-03-04", "2030-03-06", "2030-03-07"}, resp.Dates)
		repo.AssertExpectations(t)
	})

	t.Run("No bookings", func(t *testing.T) {
		repo := new(MockBookingRepository)
		svc := newTestAvailabilityService(t, repo)
		repo.On("CountByDate", ctx, testLocation, from, to).Return(map[string]int{}, nil)

		resp, err := svc.FullyBookedDates(ctx, testLocation, "2030-03")
		require.NoError(t, err)
		assert.Empty(t, resp.Dates)
		assert.NotNil(t, resp.Dates)
	})

	t.Run("Invalid month", func(t *testing.T) {
		repo := new(MockBookingRepository)
		svc := newTestAvailabilityService(t, repo)

		_, err := svc.FullyBookedDates(ctx, testLocation, "2030-13")
		assert.Equal(t, model.ErrInvalidMonth, err)
		repo.AssertNotCalled(t, "CountByDate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown location", func(t *testing.T) {
		repo := new(MockBookingRepository)
		svc := newTestAvailabilityService(t, repo)

		_, err := svc.FullyBookedDates(ctx, "paris", "2030-03")
		assert.Equal(t, model.ErrLocationNotFound, err)
	})
}
