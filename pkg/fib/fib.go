// Package fib computes Fibonacci numbers for the server's demo request.
package fib

import "errors"

var (
	ErrNegative = errors.New("n must not be negative")
	ErrTooLarge = errors.New("n exceeds supported range")
)

// MaxN is the largest argument whose result fits in an int64.
const MaxN = 92

// Compute returns the n-th Fibonacci number (Compute(0)=0, Compute(1)=1).
func Compute(n int) (int64, error) {
	if n < 0 {
		return 0, ErrNegative
	}
	if n > MaxN {
		return 0, ErrTooLarge
	}
	if n < 2 {
		return int64(n), nil
	}

	var a, b int64 = 0, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b, nil
}
