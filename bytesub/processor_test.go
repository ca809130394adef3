package bytesub

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheusHen/bytesub/bytesub/chunk"
	"github.com/TheusHen/bytesub/bytesub/compress"
	"github.com/TheusHen/bytesub/bytesub/erasure"
	"github.com/TheusHen/bytesub/bytesub/fileio"
	"github.com/TheusHen/bytesub/bytesub/transform"
)

func runProcessor(t *testing.T, opts Options, stdin string) (Result, string) {
	t.Helper()
	p, err := NewProcessor(opts, nil)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	var out bytes.Buffer
	res, err := p.Run(context.Background(), strings.NewReader(stdin), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res, out.String()
}

func TestProcessorStdinToStdout(t *testing.T) {
	res, out := runProcessor(t, DefaultOptions(), "a;b;c")
	if out != "a:b:c\n" {
		t.Fatalf("got %q", out)
	}
	if res.InputBytes != 5 || res.Substitutions != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProcessorEmptyInput(t *testing.T) {
	res, out := runProcessor(t, DefaultOptions(), "")
	if out != "\n" {
		t.Fatalf("got %q", out)
	}
	if res.InputBytes != 0 || res.FullChunks != 0 || res.RemainderLen != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProcessorFileToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")

	data := bytes.Repeat([]byte{';'}, transform.DefaultChunkSize)
	data = append(data, 0x00, 0xFF, ';')
	if err := os.WriteFile(in, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	opts := DefaultOptions()
	opts.Input = in
	opts.Output = out
	res, stdout := runProcessor(t, opts, "ignored")
	if stdout != "" {
		t.Fatalf("nothing should be printed, got %q", stdout)
	}
	if res.FullChunks != 1 || res.RemainderLen != 3 {
		t.Fatalf("unexpected chunking: %+v", res)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := bytes.Repeat([]byte{':'}, transform.DefaultChunkSize)
	want = append(want, 0x00, 0xFF, ':')
	if !bytes.Equal(got, want) {
		t.Fatalf("output mismatch")
	}
}

func TestProcessorInvalidUTF8Text(t *testing.T) {
	p, err := NewProcessor(DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	var out bytes.Buffer
	_, err = p.Run(context.Background(), bytes.NewReader([]byte{';', 0xFF}), &out)
	if !errors.Is(err, ErrWrite) || !errors.Is(err, fileio.ErrInvalidUTF8) {
		t.Fatalf("expected write stage UTF-8 error, got %v", err)
	}
}

func TestProcessorMissingInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Input = filepath.Join(t.TempDir(), "missing")
	p, _ := NewProcessor(opts, nil)
	_, err := p.Run(context.Background(), nil, &bytes.Buffer{})
	if !errors.Is(err, ErrLoad) || !errors.Is(err, fileio.ErrOpen) {
		t.Fatalf("expected load stage open error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to load input") {
		t.Fatalf("error should name the stage: %v", err)
	}
}

func TestProcessorCanceled(t *testing.T) {
	p, _ := NewProcessor(DefaultOptions(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	if _, err := p.Run(ctx, strings.NewReader("a;b"), &out); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be written after cancellation")
	}
}

func TestProcessorCodecs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.lz4")
	out := filepath.Join(dir, "out.lz4")

	plain := bytes.Repeat([]byte("k;v;"), 10000)
	packed, err := compress.Compress(plain, compress.Fast)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if err := os.WriteFile(in, packed, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	opts := DefaultOptions()
	opts.Input = in
	opts.Output = out
	opts.InputCodec = compress.LZ4
	opts.OutputCodec = compress.LZ4
	runProcessor(t, opts, "")

	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got, err := compress.Decompress(written)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte("k:v:"), 10000)) {
		t.Fatalf("decoded output mismatch")
	}
}

func TestProcessorDigestAndParity(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	opts := DefaultOptions()
	opts.Output = out
	opts.Digest = true
	opts.DigestAlgorithm = chunk.BLAKE2b
	opts.ParityData = 6
	opts.ParityShards = 2

	input := strings.Repeat("x;y;z\n", 5000)
	res, _ := runProcessor(t, opts, input)

	want := []byte(strings.ReplaceAll(input, ";", ":"))
	tree, err := chunk.Digest(want, transform.DefaultChunkSize, chunk.BLAKE2b)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if res.Digest != tree.RootHex() {
		t.Fatalf("digest %s, want %s", res.Digest, tree.RootHex())
	}

	if res.SidecarPath != out+erasure.SidecarExt {
		t.Fatalf("unexpected sidecar path %q", res.SidecarPath)
	}
	f, err := os.Open(res.SidecarPath)
	if err != nil {
		t.Fatalf("Open sidecar: %v", err)
	}
	defer f.Close()
	sc, err := erasure.ReadSidecar(f)
	if err != nil {
		t.Fatalf("ReadSidecar: %v", err)
	}

	damaged, _ := os.ReadFile(out)
	damaged[100] = ';'
	codec, _ := erasure.NewCodec(6, 2)
	repaired, lost, err := sc.Recover(codec, damaged)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(lost) != 1 || !bytes.Equal(repaired, want) {
		t.Fatalf("repair failed: lost=%v", lost)
	}
}

func TestNewProcessorValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputCodec = compress.LZ4
	if _, err := NewProcessor(opts, nil); !errors.Is(err, ErrTextCodec) {
		t.Fatalf("expected ErrTextCodec, got %v", err)
	}

	opts = DefaultOptions()
	opts.ParityData, opts.ParityShards = 4, 2
	if _, err := NewProcessor(opts, nil); !errors.Is(err, ErrParityNoOutput) {
		t.Fatalf("expected ErrParityNoOutput, got %v", err)
	}

	opts.Output = "out"
	opts.ParityShards = 0
	if _, err := NewProcessor(opts, nil); !errors.Is(err, erasure.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProcessorCustomTable(t *testing.T) {
	table := transform.Substitute(',', '\t')
	opts := DefaultOptions()
	opts.Table = &table
	_, out := runProcessor(t, opts, "a,b;c")
	if out != "a\tb;c\n" {
		t.Fatalf("got %q", out)
	}
}
