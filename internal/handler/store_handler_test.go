package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"repairshop/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStoreService is a mock implementation of StoreService.
type MockStoreService struct {
	mock.Mock
}

func (m *MockStoreService) Status(ctx context.Context) (*model.StoreStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoreStatus), args.Error(1)
}

func (m *MockStoreService) Settings(ctx context.Context) (*model.StoreSettingsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoreSettingsResponse), args.Error(1)
}

func (m *MockStoreService) UpdateSettings(ctx context.Context, req *model.StoreSettingsRequest) (*model.StoreSettingsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoreSettingsResponse), args.Error(1)
}

func TestStoreHandler_Status(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockStoreService)
		h := NewStoreHandler(svc, zerolog.Nop())
		svc.On("Status", mock.Anything).Return(&model.StoreStatus{
			Open:        true,
			ShopEnabled: true,
			Locations:   []model.LocationStatus{{Slug: "berlin-mitte", Name: "Workshop Mitte", Open: true}},
		}, nil)

		w := httptest.NewRecorder()
		h.Status(w, httptest.NewRequest(http.MethodGet, "/api/store-status", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, true, body["open"])
		assert.Equal(t, true, body["shopEnabled"])
		assert.NotContains(t, body, "closedMessage")
	})

	t.Run("Storage failure", func(t *testing.T) {
		svc := new(MockStoreService)
		h := NewStoreHandler(svc, zerolog.Nop())
		svc.On("Status", mock.Anything).Return(nil, errors.New("connection refused"))

		w := httptest.NewRecorder()
		h.Status(w, httptest.NewRequest(http.MethodGet, "/api/store-status", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal server error", decodeError(t, w.Body.Bytes()).Message)
	})
}

func TestStoreHandler_Settings(t *testing.T) {
	svc := new(MockStoreService)
	h := NewStoreHandler(svc, zerolog.Nop())
	svc.On("Settings", mock.Anything).Return(&model.StoreSettingsResponse{
		Mode:               model.StoreModeAuto,
		Open:               true,
		ShopEnabledByAdmin: true,
	}, nil)

	w := httptest.NewRecorder()
	h.Settings(w, httptest.NewRequest(http.MethodGet, "/api/admin/store-settings", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got model.StoreSettingsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, model.StoreModeAuto, got.Mode)
	assert.False(t, got.PaymentsConfigured)
}

func TestStoreHandler_UpdateSettings(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           `{"mode":"manual","open":false,"closedMessage":"Back soon"}`,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			body:           `{"mode":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Rejected by service",
			body:           `{"mode":"holiday"}`,
			mockError:      model.Invalid("mode must be auto or manual"),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockStoreService)
			h := NewStoreHandler(svc, zerolog.Nop())

			if tt.expectService {
				var resp *model.StoreSettingsResponse
				if tt.mockError == nil {
					resp = &model.StoreSettingsResponse{Mode: model.StoreModeManual}
				}
				svc.On("UpdateSettings", mock.Anything, mock.AnythingOfType("*model.StoreSettingsRequest")).
					Return(resp, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodPut, "/api/admin/store-settings", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			h.UpdateSettings(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if !tt.expectService {
				svc.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything)
				return
			}
			svc.AssertExpectations(t)
		})
	}

	t.Run("Decoded fields reach the service", func(t *testing.T) {
		svc := new(MockStoreService)
		h := NewStoreHandler(svc, zerolog.Nop())
		svc.On("UpdateSettings", mock.Anything, mock.MatchedBy(func(r *model.StoreSettingsRequest) bool {
			return r.Mode != nil && *r.Mode == "manual" &&
				r.Open != nil && !*r.Open &&
				r.ShopEnabled == nil
		})).Return(&model.StoreSettingsResponse{Mode: model.StoreModeManual}, nil)

		req := httptest.NewRequest(http.MethodPut, "/api/admin/store-settings", bytes.NewBufferString(`{"mode":"manual","open":false}`))
		w := httptest.NewRecorder()

		h.UpdateSettings(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}
