// Package prng is a small linear congruential generator that produces the
// same sequence on every platform. Tests use it for reproducible payloads
// and error positions.
package prng

// PRNG uses the multiplier and increment from Numerical Recipes.
type PRNG struct {
	state uint64
}

// New creates a generator seeded with seed.
func New(seed uint64) *PRNG {
	return &PRNG{state: seed}
}

// Next advances the generator.
func (p *PRNG) Next() uint64 {
	p.state = p.state*6364136223846793005 + 1442695040888963407
	return p.state
}

// Uint64N returns a number in [0, n).
func (p *PRNG) Uint64N(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return (p.Next() >> 11) % n
}

// Intn returns a number in [0, n).
func (p *PRNG) Intn(n int) int {
	return int(p.Uint64N(uint64(n)))
}

// Bits returns n values that are each 0 or 1.
func (p *PRNG) Bits(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(p.Next()>>63) & 1
	}
	return out
}

// Text returns n bytes drawn from a skewed printable alphabet, so that
// entropy coders produce codewords of several different lengths.
func (p *PRNG) Text(n int) []byte {
	const alphabet = "eeeeeeeeetttttaaaaoooiinnsshrdlcumwfgypbvkjxqz EEETAO.,;!?0123456789\xe9\xff"
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[p.Intn(len(alphabet))]
	}
	return out
}
