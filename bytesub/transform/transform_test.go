package transform

import (
	"bytes"
	"math/rand"
	"testing"
)

func randomBytes(seed int64, n int) []byte {
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, n)
	for i := range data {
		// Bias toward ';' so every chunk sees substitutions.
		if rng.Intn(4) == 0 {
			data[i] = ';'
		} else {
			data[i] = byte(rng.Intn(256))
		}
	}
	return data
}

func checkSubstituted(t *testing.T, orig, got []byte) {
	t.Helper()
	if len(got) != len(orig) {
		t.Fatalf("length changed: %d -> %d", len(orig), len(got))
	}
	for i := range orig {
		want := orig[i]
		if want == ';' {
			want = ':'
		}
		if got[i] != want {
			t.Fatalf("byte %d: orig %#x, got %#x, want %#x", i, orig[i], got[i], want)
		}
	}
}

func TestTransformPerByteLaw(t *testing.T) {
	for _, n := range []int{0, 1, 17, 1000, 50000} {
		orig := randomBytes(int64(n), n)
		buf := bytes.Clone(orig)
		if err := Transform(buf); err != nil {
			t.Fatalf("n=%d: Transform: %v", n, err)
		}
		checkSubstituted(t, orig, buf)
	}
}

func TestTransformChunkBoundaries(t *testing.T) {
	sizes := []int{
		DefaultChunkSize - 1,
		DefaultChunkSize,
		DefaultChunkSize + 1,
		3 * DefaultChunkSize,
	}
	for _, n := range sizes {
		orig := bytes.Repeat([]byte{';'}, n)
		buf := bytes.Clone(orig)
		tr := New(SemicolonToColon, Config{ChunkSize: DefaultChunkSize, Workers: 4})
		if err := tr.Transform(buf); err != nil {
			t.Fatalf("n=%d: Transform: %v", n, err)
		}
		checkSubstituted(t, orig, buf)

		// The bytes on either side of each boundary.
		for b := DefaultChunkSize; b <= n; b += DefaultChunkSize {
			if buf[b-1] != ':' {
				t.Fatalf("n=%d: byte before boundary %d not substituted", n, b)
			}
			if b < n && buf[b] != ':' {
				t.Fatalf("n=%d: byte at boundary %d not substituted", n, b)
			}
		}

		s := tr.Stats()
		full, rem := n/DefaultChunkSize, n%DefaultChunkSize
		if s.FullChunks != int64(full) || s.RemainderBytes != int64(rem) {
			t.Fatalf("n=%d: stats full=%d rem=%d, want %d/%d", n, s.FullChunks, s.RemainderBytes, full, rem)
		}
		if s.Substitutions != int64(n) || s.Bytes != int64(n) {
			t.Fatalf("n=%d: stats bytes=%d subs=%d", n, s.Bytes, s.Substitutions)
		}
	}
}

func TestTransformIdempotentAfterFirstPass(t *testing.T) {
	orig := randomBytes(7, 3*DefaultChunkSize+123)
	once := bytes.Clone(orig)
	if err := Transform(once); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	twice := bytes.Clone(once)
	if err := Transform(twice); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("second pass changed the buffer")
	}
}

func TestTransformByteTransparency(t *testing.T) {
	orig := []byte{0x00, ';', 0xFF, 0xFE, ';', 0x80, 0x3A, 0x3B, 0x00}
	buf := bytes.Clone(orig)
	if err := Transform(buf); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := []byte{0x00, ':', 0xFF, 0xFE, ':', 0x80, 0x3A, 0x3A, 0x00}
	if !bytes.Equal(buf, want) {
		t.Fatalf("got %x, want %x", buf, want)
	}
}

func TestTransformScenarios(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"separators", []byte("a;b;c"), []byte("a:b:c")},
		{"empty", []byte{}, []byte{}},
		{"full chunk of semicolons", bytes.Repeat([]byte{';'}, DefaultChunkSize), bytes.Repeat([]byte{':'}, DefaultChunkSize)},
		{"nothing to replace", []byte("hello, world: 42\n"), []byte("hello, world: 42\n")},
	}
	for _, tc := range cases {
		buf := bytes.Clone(tc.in)
		if err := Transform(buf); err != nil {
			t.Fatalf("%s: Transform: %v", tc.name, err)
		}
		if !bytes.Equal(buf, tc.want) {
			t.Fatalf("%s: got %q, want %q", tc.name, buf, tc.want)
		}
	}
}

func TestTransformNilBuffer(t *testing.T) {
	if err := Transform(nil); err != nil {
		t.Fatalf("Transform(nil): %v", err)
	}
}

func TestTransformSmallChunksManyWorkers(t *testing.T) {
	orig := randomBytes(42, 10007)
	for _, cfg := range []Config{
		{ChunkSize: 1, Workers: 8},
		{ChunkSize: 3, Workers: 1},
		{ChunkSize: 64, Workers: 32},
		{ChunkSize: 20000, Workers: 2},
	} {
		buf := bytes.Clone(orig)
		if err := New(SemicolonToColon, cfg).Transform(buf); err != nil {
			t.Fatalf("%+v: Transform: %v", cfg, err)
		}
		checkSubstituted(t, orig, buf)
	}
}

func TestTransformCustomMapping(t *testing.T) {
	upper := NewTable(MappingFunc(func(b byte) byte {
		if b >= 'a' && b <= 'z' {
			return b - 'a' + 'A'
		}
		return b
	}))
	buf := []byte("mixed Case; text")
	if err := New(upper, Config{ChunkSize: 4, Workers: 2}).Transform(buf); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if string(buf) != "MIXED CASE; TEXT" {
		t.Fatalf("got %q", buf)
	}

	id := Identity()
	buf = []byte("a;b")
	if err := New(id, DefaultConfig()).Transform(buf); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if string(buf) != "a;b" {
		t.Fatalf("identity changed buffer: %q", buf)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	tr := New(SemicolonToColon, Config{})
	if tr.ChunkSize() != DefaultChunkSize {
		t.Fatalf("expected chunk size %d, got %d", DefaultChunkSize, tr.ChunkSize())
	}
	if tr.Workers() < 1 {
		t.Fatalf("expected at least one worker, got %d", tr.Workers())
	}
}

func BenchmarkTransform(b *testing.B) {
	data := randomBytes(1, 16*1024*1024)
	tr := New(SemicolonToColon, DefaultConfig())

	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = tr.Transform(data)
	}
}
