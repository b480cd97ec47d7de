package domain

import (
	"errors"
	"testing"
)

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "too many images",
			err:  ErrTooManyImages,
			want: true,
		},
		{
			name: "wrapped validation error",
			err:  errors.Join(ErrUserEmailRequired, errors.New("additional context")),
			want: true,
		},
		{
			name: "store error",
			err:  StoreError("scan products", errors.New("timeout")),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidation(tt.err)
			if got != tt.want {
				t.Errorf("IsValidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "product not found",
			err:  ErrProductNotFound,
			want: true,
		},
		{
			name: "bare not found",
			err:  ErrNotFound,
			want: true,
		},
		{
			name: "validation error",
			err:  ErrQuantityInvalid,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotFound(tt.err)
			if got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	if StoreError("get product", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}

	cause := errors.New("connection reset")
	err := StoreError("get product", cause)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestWebhookSignatureIsPaymentProviderError(t *testing.T) {
	if !errors.Is(ErrWebhookSignature, ErrPaymentProvider) {
		t.Fatal("webhook signature failure must be a payment provider error")
	}
}
