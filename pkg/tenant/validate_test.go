package tenant

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "acme", false},
		{"single character", "a", false},
		{"max length", strings.Repeat("a", 50), false},
		{"underscore and dash", "team_a-01", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 51), true},
		{"space", "acme corp", true},
		{"slash", "acme/../x", true},
		{"dot", "acme.io", true},
		{"unicode", "açme", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrInvalidTenant) {
				t.Errorf("Expected error to match ErrInvalidTenant, got %v", err)
			}
			var ite *InvalidTenantError
			if !errors.As(err, &ite) || ite.TenantID != tt.id {
				t.Errorf("Expected InvalidTenantError for %q, got %v", tt.id, err)
			}
		})
	}
}
