package qc

import "testing"

func fp(f float64) *float64 { return &f }

func TestEvaluate_ExactRecoveryPasses(t *testing.T) {
	for _, v := range []float64{1, 18.5, 42.07, 99.99} {
		status, recovery := Evaluate(fp(v), fp(v), nil, nil, nil)
		if status != StatusPass {
			t.Errorf("measured=expected=%v: status = %q, want pass", v, status)
		}
		if recovery == nil || *recovery != 100 {
			t.Errorf("measured=expected=%v: recovery = %v, want 100", v, recovery)
		}
	}
}

func TestEvaluate_WithinTolerancePasses(t *testing.T) {
	// recovery 105, default tolerance 10
	status, recovery := Evaluate(fp(21.0), fp(20.0), nil, nil, nil)
	if status != StatusPass {
		t.Errorf("status = %q, want pass", status)
	}
	if recovery == nil || *recovery != 105 {
		t.Errorf("recovery = %v, want 105", recovery)
	}
}

func TestEvaluate_OutsideToleranceFails(t *testing.T) {
	// recovery 120 > default 10% tolerance
	status, recovery := Evaluate(fp(24.0), fp(20.0), nil, nil, nil)
	if status != StatusFail {
		t.Errorf("status = %q, want fail", status)
	}
	if recovery == nil || *recovery != 120 {
		t.Errorf("recovery = %v, want 120", recovery)
	}
}

func TestEvaluate_CustomTolerance(t *testing.T) {
	// recovery 105 fails a 2% tolerance
	status, _ := Evaluate(fp(21.0), fp(20.0), fp(2.0), nil, nil)
	if status != StatusFail {
		t.Errorf("status = %q, want fail under 2%% tolerance", status)
	}
	// and passes a 6% tolerance
	status, _ = Evaluate(fp(21.0), fp(20.0), fp(6.0), nil, nil)
	if status != StatusPass {
		t.Errorf("status = %q, want pass under 6%% tolerance", status)
	}
}

func TestEvaluate_RangeMode(t *testing.T) {
	tests := []struct {
		name     string
		measured float64
		want     string
	}{
		{"inside", 18.0, StatusPass},
		{"at_min", 16.0, StatusPass},
		{"at_max", 20.0, StatusPass},
		{"below", 15.9, StatusFail},
		{"above", 20.1, StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, recovery := Evaluate(fp(tt.measured), nil, nil, fp(16.0), fp(20.0))
			if status != tt.want {
				t.Errorf("status = %q, want %q", status, tt.want)
			}
			if recovery != nil {
				t.Errorf("range mode must not compute recovery, got %v", *recovery)
			}
		})
	}
}

func TestEvaluate_FailsClosed(t *testing.T) {
	tests := []struct {
		name                         string
		measured, expected, min, max *float64
	}{
		{"no_measured", nil, fp(20.0), nil, nil},
		{"no_criteria", fp(18.0), nil, nil, nil},
		{"only_min", fp(18.0), nil, fp(16.0), nil},
		{"only_max", fp(18.0), nil, nil, fp(20.0)},
		{"nothing", nil, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, recovery := Evaluate(tt.measured, tt.expected, nil, tt.min, tt.max)
			if status != StatusFail {
				t.Errorf("status = %q, want fail", status)
			}
			if recovery != nil {
				t.Errorf("recovery = %v, want nil", *recovery)
			}
		})
	}
}

func TestEvaluate_ExpectedModeWinsOverRange(t *testing.T) {
	// both modes configured: fixed-value mode takes precedence
	status, recovery := Evaluate(fp(24.0), fp(20.0), nil, fp(16.0), fp(30.0))
	if status != StatusFail {
		t.Errorf("status = %q, want fail from recovery check", status)
	}
	if recovery == nil {
		t.Error("expected recovery to be computed")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{67.004, 67.0},
		{67.006, 67.01},
		{0.125, 0.13},
		{2.678, 2.68},
		{100, 100},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRound2_Idempotent(t *testing.T) {
	for _, v := range []float64{67.0, 12.34, 0.01, 99.99} {
		once := Round2(v)
		if Round2(once) != once {
			t.Errorf("Round2 not idempotent for %v", v)
		}
	}
}
