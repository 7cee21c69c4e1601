package tenant

import "fmt"

const (
	// MinIDLength is the shortest accepted tenant id.
	MinIDLength = 1

	// MaxIDLength is the longest accepted tenant id.
	MaxIDLength = 50
)

// ValidateID checks that id is MinIDLength to MaxIDLength characters of
// ASCII letters, digits, '_' or '-'. Invalid ids are rejected, never
// normalized.
func ValidateID(id string) error {
	if id == "" {
		return &InvalidTenantError{TenantID: id, Reason: "must not be empty"}
	}
	if len(id) < MinIDLength || len(id) > MaxIDLength {
		return &InvalidTenantError{
			TenantID: id,
			Reason:   fmt.Sprintf("length must be between %d and %d", MinIDLength, MaxIDLength),
		}
	}
	for i := 0; i < len(id); i++ {
		if !isIDByte(id[i]) {
			return &InvalidTenantError{
				TenantID: id,
				Reason:   fmt.Sprintf("invalid character %q at position %d", id[i], i),
			}
		}
	}
	return nil
}

func isIDByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}
