package timetable

import (
	"testing"
	"time"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *Policy)
		wantErr bool
	}{
		{
			name:   "defaults",
			modify: func(p *Policy) {},
		},
		{
			name:    "zero duration tolerance",
			modify:  func(p *Policy) { p.DurationTolerance = 0 },
			wantErr: true,
		},
		{
			name:    "duration tolerance above one",
			modify:  func(p *Policy) { p.DurationTolerance = 1.5 },
			wantErr: true,
		},
		{
			name:    "segment ceiling below station radius",
			modify:  func(p *Policy) { p.MaxSegmentDistanceKm = 0.5 },
			wantErr: true,
		},
		{
			name:    "negative dwell",
			modify:  func(p *Policy) { p.MinimumDwell = -time.Second },
			wantErr: true,
		},
		{
			name:    "no location age",
			modify:  func(p *Policy) { p.MaxLocationAge = 0 },
			wantErr: true,
		},
		{
			name:   "zero dwell allowed",
			modify: func(p *Policy) { p.MinimumDwell = 0 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.modify(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
