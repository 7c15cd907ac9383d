package window

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

func TestGetOrCreateIsDeterministic(t *testing.T) {
	c := NewCache()
	for shape := Rectangular; shape < shapeCount; shape++ {
		for _, length := range []int{1, 2, 17, 256, 4410} {
			a, err := c.GetOrCreate(shape, length)
			if err != nil {
				t.Fatalf("%v/%d: %v", shape, length, err)
			}
			b, err := c.GetOrCreate(shape, length)
			if err != nil {
				t.Fatalf("%v/%d: %v", shape, length, err)
			}
			if a.Len() != length || b.Len() != length {
				t.Fatalf("%v: len = %d/%d, want %d", shape, a.Len(), b.Len(), length)
			}
			for i := 0; i < length; i++ {
				if a.At(i) != b.At(i) {
					t.Fatalf("%v/%d: point %d differs: %v vs %v", shape, length, i, a.At(i), b.At(i))
				}
			}
		}
	}
}

func TestCachedCurveIsShared(t *testing.T) {
	c := NewCache()
	a, _ := c.GetOrCreate(Hann, 64)
	b, _ := c.GetOrCreate(Hann, 64)
	if &a.values[0] != &b.values[0] {
		t.Fatalf("expected the cached backing array to be reused")
	}
	if c.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", c.Len())
	}
}

func TestValuesReturnsCopy(t *testing.T) {
	c := NewCache()
	a, _ := c.GetOrCreate(Rectangular, 8)
	vals := a.Values()
	vals[0] = 42
	if a.At(0) != 1 {
		t.Fatalf("mutating Values() leaked into the cached curve")
	}
}

func TestShapeValues(t *testing.T) {
	const n = 101
	for _, tc := range []struct {
		shape      Shape
		edge, peak float64
	}{
		{Rectangular, 1, 1},
		{Hann, 0, 1},
		{Hamming, 0.08, 1},
		{Blackman, 0, 1},
		{Triangular, 0, 1},
		{Sine, 0, 1},
		{Welch, 0, 1},
	} {
		t.Run(tc.shape.String(), func(t *testing.T) {
			curve, err := Generate(tc.shape, n)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if got := float64(curve.At(0)); math.Abs(got-tc.edge) > 1e-6 {
				t.Errorf("first point = %f, want %f", got, tc.edge)
			}
			if got := float64(curve.At(n - 1)); math.Abs(got-tc.edge) > 1e-6 {
				t.Errorf("last point = %f, want %f", got, tc.edge)
			}
			if got := float64(curve.At(n / 2)); math.Abs(got-tc.peak) > 1e-6 {
				t.Errorf("mid point = %f, want %f", got, tc.peak)
			}
			for i := 0; i < n; i++ {
				if a, b := curve.At(i), curve.At(n-1-i); math.Abs(float64(a-b)) > 1e-6 {
					t.Fatalf("curve not symmetric at %d: %f vs %f", i, a, b)
				}
			}
		})
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	if _, err := Generate(Hann, 0); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("length 0: err = %v", err)
	}
	if _, err := Generate(Shape(99), 10); !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("shape 99: err = %v", err)
	}
	c := NewCache()
	if err := c.Prewarm(Hann, -4); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("prewarm -4: err = %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("invalid curves must not be cached")
	}
}

func TestLookupNeverGenerates(t *testing.T) {
	c := NewCache()
	if _, ok := c.Lookup(Hann, 128); ok {
		t.Fatalf("lookup on empty cache should miss")
	}
	if err := c.Prewarm(Hann, 128); err != nil {
		t.Fatalf("prewarm: %v", err)
	}
	curve, ok := c.Lookup(Hann, 128)
	if !ok || curve.Len() != 128 {
		t.Fatalf("lookup after prewarm: ok=%v len=%d", ok, curve.Len())
	}
}

func TestPrewarmAll(t *testing.T) {
	c := NewCache()
	keys := []Key{{Hann, 256}, {Hann, 512}, {Blackman, 1024}, {Rectangular, 100}, {Hann, 256}}
	if err := c.PrewarmAll(context.Background(), keys...); err != nil {
		t.Fatalf("prewarm all: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("cache len = %d, want 4", c.Len())
	}
	err := c.PrewarmAll(context.Background(), Key{Hann, 32}, Key{Hann, 0})
	if !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected invalid length error, got %v", err)
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				length := 16 + (i+g)%8
				curve, err := c.GetOrCreate(Shape(i%int(shapeCount)), length)
				if err != nil || curve.Len() != length {
					t.Errorf("get %d: len=%d err=%v", length, curve.Len(), err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	if c.Len() != int(shapeCount)*8 {
		t.Fatalf("cache len = %d, want %d", c.Len(), int(shapeCount)*8)
	}
}

func TestParseShape(t *testing.T) {
	for name, want := range map[string]Shape{"hann": Hann, " Rect ": Rectangular, "blackman": Blackman, "tri": Triangular} {
		got, err := ParseShape(name)
		if err != nil || got != want {
			t.Fatalf("ParseShape(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseShape("kaiser"); !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("expected ErrUnknownShape, got %v", err)
	}
}
