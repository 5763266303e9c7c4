package encoder

import (
	"testing"

	"github.com/nao7sep/downScale/internal/progress"
)

func TestProgressState_UpdateFromLine(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		durationSec float64
		wantOk      bool
		wantPercent float64
	}{
		{
			name: "mid-stream progress",
			lines: []string{
				"out_time_us=30000000",
				"speed=1.5x",
				"total_size=10485760",
				"progress=continue",
			},
			durationSec: 60.0,
			wantOk:      true,
			wantPercent: 50.0,
		},
		{
			name: "legacy out_time_ms key also carries microseconds",
			lines: []string{
				"out_time_ms=15000000",
				"progress=continue",
			},
			durationSec: 60.0,
			wantOk:      true,
			wantPercent: 25.0,
		},
		{
			name: "end marker pins percent to 100",
			lines: []string{
				"out_time_us=59500000",
				"progress=end",
			},
			durationSec: 60.0,
			wantOk:      true,
			wantPercent: 100.0,
		},
		{
			name: "unknown duration reports indeterminate",
			lines: []string{
				"out_time_us=5000000",
				"progress=continue",
			},
			durationSec: 0,
			wantOk:      true,
			wantPercent: -1.0,
		},
		{
			name: "overshoot clamps at 100",
			lines: []string{
				"out_time_us=61000000",
				"progress=continue",
			},
			durationSec: 60.0,
			wantOk:      true,
			wantPercent: 100.0,
		},
		{
			name:        "non key=value line",
			lines:       []string{"frame  100 fps"},
			durationSec: 60.0,
			wantOk:      false,
		},
		{
			name:        "keys without marker emit nothing",
			lines:       []string{"out_time_us=1000000", "speed=2.0x"},
			durationSec: 60.0,
			wantOk:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := &ProgressState{}
			var u progress.Update
			var ok bool
			for _, line := range tt.lines {
				u, ok = ps.UpdateFromLine(line, "job-0", tt.durationSec)
			}

			if ok != tt.wantOk {
				t.Fatalf("UpdateFromLine() ok = %v, want %v", ok, tt.wantOk)
			}
			if !tt.wantOk {
				return
			}
			if u.Percent != tt.wantPercent {
				t.Errorf("Percent = %v, want %v", u.Percent, tt.wantPercent)
			}
			if u.Stage != progress.StageConverting {
				t.Errorf("Stage = %v, want %v", u.Stage, progress.StageConverting)
			}
			if u.JobID != "job-0" {
				t.Errorf("JobID = %q", u.JobID)
			}
		})
	}
}

func TestProgressStateAccumulates(t *testing.T) {
	ps := &ProgressState{}
	ps.UpdateFromLine("out_time_us=15000000", "j", 60)
	ps.UpdateFromLine("speed=1.2x", "j", 60)
	ps.UpdateFromLine("total_size=1048576", "j", 60)

	if ps.OutTimeUs != 15000000 {
		t.Errorf("OutTimeUs = %d", ps.OutTimeUs)
	}
	if ps.SpeedStr != "1.2x" {
		t.Errorf("SpeedStr = %q", ps.SpeedStr)
	}
	if ps.TotalSize != 1048576 {
		t.Errorf("TotalSize = %d", ps.TotalSize)
	}

	u, ok := ps.UpdateFromLine("progress=continue", "j", 60)
	if !ok {
		t.Fatal("marker did not flush")
	}
	if u.Speed == nil || *u.Speed != "1.2x" {
		t.Errorf("Speed = %v", u.Speed)
	}
	if u.Bytes == nil || *u.Bytes != 1048576 {
		t.Errorf("Bytes = %v", u.Bytes)
	}
}
