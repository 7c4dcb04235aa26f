package fib

import (
	"errors"
	"testing"
)

func TestComputeSequence(t *testing.T) {
	want := []int64{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144}
	for n, expected := range want {
		got, err := Compute(n)
		if err != nil {
			t.Fatalf("Compute(%d): unexpected error: %v", n, err)
		}
		if got != expected {
			t.Errorf("Compute(%d) = %d, want %d", n, got, expected)
		}
	}
}

func TestComputeMax(t *testing.T) {
	got, err := Compute(MaxN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7540113804746346429 {
		t.Fatalf("Compute(%d) = %d, want 7540113804746346429", MaxN, got)
	}
}

func TestComputeNegative(t *testing.T) {
	_, err := Compute(-1)
	if !errors.Is(err, ErrNegative) {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
}

func TestComputeTooLarge(t *testing.T) {
	_, err := Compute(MaxN + 1)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
