package fft

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestPlanMatchesDFT(t *testing.T) {
	const size = 64

	plan, err := NewPlan(Config{Size: size, DeviceIndex: -1})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	defer plan.Close()
	t.Logf("backend: %s", plan.Backend())

	input := generateSamples(size)
	data := make([]complex64, size)
	copy(data, input)

	if err := plan.Execute(data); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := naiveDFT(input)
	for i := range want {
		tol := 1e-4 * (1 + cmplx.Abs(want[i]))
		if d := cmplx.Abs(complex128(data[i]) - want[i]); d > tol {
			t.Fatalf("bin %d: got %v, want %v (delta %g)", i, data[i], want[i], d)
		}
	}
}

func TestPlanSizeMismatch(t *testing.T) {
	plan, err := NewPlan(Config{Size: 32, DeviceIndex: -1, ForceCPU: true})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	defer plan.Close()

	if err := plan.Execute(make([]complex64, 16)); err == nil {
		t.Fatal("expected an error for a short input")
	}
}

func TestPlanInvalidSize(t *testing.T) {
	if _, err := NewPlan(Config{Size: 0}); err == nil {
		t.Fatal("expected an error for size 0")
	}
}

func TestPlansAreIndependent(t *testing.T) {
	a, err := NewPlan(Config{Size: 16, DeviceIndex: -1, ForceCPU: true})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	defer a.Close()

	b, err := NewPlan(Config{Size: 32, DeviceIndex: -1, ForceCPU: true})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	defer b.Close()

	if err := a.Execute(make([]complex64, 16)); err != nil {
		t.Fatalf("Execute on a: %v", err)
	}
	if err := b.Execute(make([]complex64, 32)); err != nil {
		t.Fatalf("Execute on b: %v", err)
	}
}

func TestClosedPlanIsSafe(t *testing.T) {
	var nilPlan *Plan
	nilPlan.Close()
	if err := nilPlan.Execute(nil); err == nil {
		t.Fatal("expected an error from a nil plan")
	}

	plan, err := NewPlan(Config{Size: 16, ForceCPU: true})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	plan.Close()
	plan.Close()
	if err := plan.Execute(make([]complex64, 16)); err == nil {
		t.Fatal("expected an error after Close")
	}
}

func Benchmark(b *testing.B) {
	const size = 2048

	plan, err := NewPlan(Config{Size: size, DeviceIndex: -1})
	if err != nil {
		b.Fatalf("NewPlan: %v", err)
	}
	defer plan.Close()
	b.Logf("backend: %s", plan.Backend())

	data := generateSamples(size)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := plan.Execute(data); err != nil {
			b.Fatalf("Execute: %v", err)
		}
	}
}

func generateSamples(size int) []complex64 {
	out := make([]complex64, size)
	c := 3.1
	for i := range out {
		c += 0.3
		out[i] = complex(float32(2*c-c*c), float32(math.Sin(c)))
	}
	return out
}

func naiveDFT(input []complex64) []complex128 {
	n := len(input)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for j := 0; j < n; j++ {
			angle := -2 * math.Pi * float64(k) * float64(j) / float64(n)
			sum += complex128(input[j]) * cmplx.Exp(complex(0, angle))
		}
		out[k] = sum
	}
	return out
}
