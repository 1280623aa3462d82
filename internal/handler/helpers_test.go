package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"

	"go.uber.org/zap"
)

func TestHandleServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantField  string
	}{
		{"not found", &domain.ErrNotFound{Resource: "product", ID: "9"}, http.StatusNotFound, "Không tìm thấy dữ liệu.", ""},
		{"wrapped not found", fmt.Errorf("get product: %w", &domain.ErrNotFound{Resource: "product"}), http.StatusNotFound, "Không tìm thấy dữ liệu.", ""},
		{"circuit open", &domain.ErrCircuitOpen{Service: "openai"}, http.StatusServiceUnavailable, "circuit breaker open for service: openai", ""},
		{"timeout", &domain.ErrTimeout{Operation: "openai.classify"}, http.StatusGatewayTimeout, "operation timed out: openai.classify", ""},
		{"validation", &domain.ErrValidation{Field: "email", Message: "Email là bắt buộc."}, http.StatusBadRequest, "Email là bắt buộc.", "email"},
		{"unauthorized", &domain.ErrUnauthorized{Message: "Token hết hạn."}, http.StatusUnauthorized, "Token hết hạn.", ""},
		{"conflict", &domain.ErrConflict{Message: "Email đã được sử dụng."}, http.StatusConflict, "Email đã được sử dụng.", ""},
		{"rate limited", &domain.ErrRateLimited{Key: "1.2.3.4"}, http.StatusTooManyRequests, "Bạn gửi quá nhiều yêu cầu. Vui lòng thử lại sau.", ""},
		{"external", &domain.ErrExternalService{Service: "openai", Err: errors.New("boom")}, http.StatusBadGateway, "internal server error", ""},
		{"unknown", errors.New("permission denied"), http.StatusInternalServerError, "internal server error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err, zap.NewNop())

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Error != tt.wantError || body.Field != tt.wantField {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}
