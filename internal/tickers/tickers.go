// Package tickers maintains the ordered, duplicate-free set of stock symbols a
// user wants optimized.
package tickers

import (
	"strings"
	"unicode"
)

// Set is an immutable ordered collection of normalized ticker symbols.
// The zero value is an empty set. Operations return a new Set and never
// modify the receiver.
type Set struct {
	symbols []string
}

// New builds a Set by adding each candidate in order.
func New(candidates ...string) Set {
	var s Set
	for _, c := range candidates {
		s = s.Add(c)
	}
	return s
}

// Parse splits free-form input such as "aapl, goog msft" into a Set.
func Parse(input string) Set {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	return New(fields...)
}

// Normalize trims surrounding whitespace and uppercases a candidate symbol.
func Normalize(candidate string) string {
	return strings.ToUpper(strings.TrimSpace(candidate))
}

// Add appends the normalized candidate if it is non-empty and not already
// present. Invalid or duplicate input returns an equivalent set.
func (s Set) Add(candidate string) Set {
	ticker := Normalize(candidate)
	if ticker == "" || s.Contains(ticker) {
		return s
	}
	next := make([]string, len(s.symbols), len(s.symbols)+1)
	copy(next, s.symbols)
	return Set{symbols: append(next, ticker)}
}

// Remove drops the exact match if present.
func (s Set) Remove(ticker string) Set {
	idx := s.index(ticker)
	if idx < 0 {
		return s
	}
	next := make([]string, 0, len(s.symbols)-1)
	next = append(next, s.symbols[:idx]...)
	next = append(next, s.symbols[idx+1:]...)
	return Set{symbols: next}
}

// Contains reports whether ticker is an exact member.
func (s Set) Contains(ticker string) bool {
	return s.index(ticker) >= 0
}

// Len returns the number of tickers.
func (s Set) Len() int {
	return len(s.symbols)
}

// Symbols returns a copy of the tickers in insertion order.
func (s Set) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

func (s Set) String() string {
	return strings.Join(s.symbols, ",")
}

func (s Set) index(ticker string) int {
	for i, sym := range s.symbols {
		if sym == ticker {
			return i
		}
	}
	return -1
}
