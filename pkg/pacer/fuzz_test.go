// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomBytes returns n random bytes
func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

func TestFuzz_DecodeEcho(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	decoded := 0
	for i := 0; i < rounds; i++ {
		n := EchoResponseSize
		if rng.Intn(4) == 0 {
			n = rng.Intn(40)
		}
		data := randomBytes(rng, n)

		p, err := DecodeEcho(data)
		if err != nil {
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("round %d: expected *DecodeError, got %T: %v", i, err, err)
			}
			continue
		}
		decoded++
		if !p.Mode.Valid() {
			t.Fatalf("round %d: decoded invalid mode %d", i, p.Mode)
		}
	}
	t.Logf("%d/%d payloads decoded", decoded, rounds)
}

func TestFuzz_DecodeLEDEcho(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		n := LEDEchoResponseSize
		if rng.Intn(4) == 0 {
			n = rng.Intn(20)
		}
		_, err := DecodeLEDEcho(randomBytes(rng, n))
		if err != nil && !errors.Is(err, ErrLengthMismatch) && !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("round %d: unexpected error kind: %v", i, err)
		}
	}
}

func TestFuzz_DecodeTelemetry(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		data := randomBytes(rng, TelemetryFrameSize)
		if rng.Intn(2) == 0 {
			data[0] = TelemetrySentinel
		}
		s, err := DecodeTelemetryFrame(data)
		if err != nil {
			continue
		}
		if s.Marker > MarkerUnknown {
			t.Fatalf("round %d: marker %d out of range", i, s.Marker)
		}
		if s.Marker == MarkerUnknown && len(s.Tag) != 2 {
			t.Fatalf("round %d: unknown marker without tag", i)
		}
	}
}

func TestFuzz_EncodeRandomParameters(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		p := NominalParameters()
		for _, f := range fields {
			if f.Integer {
				continue
			}
			f.set(&p, (rng.Float64()*2-0.5)*256*f.Resolution())
		}

		frame, err := Encode(SetParameters{Params: p})
		if err != nil {
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("round %d: unexpected error: %v", i, err)
			}
			continue
		}
		if len(frame) != ParamFrameSize {
			t.Fatalf("round %d: frame length %d", i, len(frame))
		}
	}
}
