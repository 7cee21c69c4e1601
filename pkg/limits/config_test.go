package limits

import (
	"testing"
	"time"

	"mercator-hq/saturn/pkg/config"
)

func TestFromUpstream(t *testing.T) {
	override := 7
	tests := []struct {
		name    string
		in      config.UpstreamConfig
		wantRPM int
		wantTPM int
		wantMax *int
	}{
		{
			name:    "limits copied",
			in:      config.UpstreamConfig{RequestsPerMinute: 60, TokensPerMinute: 6000},
			wantRPM: 60,
			wantTPM: 6000,
		},
		{
			name:    "negative disables",
			in:      config.UpstreamConfig{RequestsPerMinute: -1, TokensPerMinute: -1},
			wantRPM: 0,
			wantTPM: 0,
		},
		{
			name:    "override copied",
			in:      config.UpstreamConfig{RequestsPerMinute: 10, MaxConcurrent: &override},
			wantRPM: 10,
			wantMax: &override,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl := FromUpstream(&tt.in)
			if sl.RPM != tt.wantRPM || sl.TPM != tt.wantTPM {
				t.Errorf("Expected rpm=%d tpm=%d, got rpm=%d tpm=%d", tt.wantRPM, tt.wantTPM, sl.RPM, sl.TPM)
			}
			if (sl.MaxConcurrent == nil) != (tt.wantMax == nil) {
				t.Fatalf("Expected MaxConcurrent %v, got %v", tt.wantMax, sl.MaxConcurrent)
			}
			if tt.wantMax != nil {
				if *sl.MaxConcurrent != *tt.wantMax {
					t.Errorf("Expected MaxConcurrent %d, got %d", *tt.wantMax, *sl.MaxConcurrent)
				}
				if sl.MaxConcurrent == tt.wantMax {
					t.Error("Expected MaxConcurrent to be copied, not aliased")
				}
			}
		})
	}
}

func TestRegistryConfigFrom(t *testing.T) {
	rc := RegistryConfigFrom(&config.LimitsConfig{
		ConcurrencyFloor: 3,
		AdmissionTimeout: time.Minute,
		Window:           30 * time.Second,
	})
	if rc.Floor != 3 || rc.AdmissionTimeout != time.Minute || rc.Window != 30*time.Second {
		t.Errorf("Expected fields copied, got %+v", rc)
	}
}
