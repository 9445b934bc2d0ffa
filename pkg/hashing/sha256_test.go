package hashing

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"testing"
)

func TestComputeKnownVector(t *testing.T) {
	// SHA-256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	got := hex.EncodeToString(Compute([]byte("abc")))
	if got != want {
		t.Errorf("Compute(abc) = %s, want %s", got, want)
	}
}

func TestIncrementalMatchesOneShot(t *testing.T) {
	data := make([]byte, 300*1024)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}

	h := New()
	for i := 0; i < len(data); i += 7001 {
		end := i + 7001
		if end > len(data) {
			end = len(data)
		}
		h.Update(data[i:end])
	}

	if !bytes.Equal(h.Finalize(), Compute(data)) {
		t.Error("incremental digest differs from one-shot digest")
	}
}

func TestComputeReaderMatchesCompute(t *testing.T) {
	sizes := []int{0, 1, 1024, 64 * 1024, 64*1024 + 1, 500 * 1024}
	for _, size := range sizes {
		data := make([]byte, size)
		if _, err := rand.Read(data); err != nil {
			t.Fatal(err)
		}

		sum, n, err := ComputeReader(context.Background(), bytes.NewReader(data))
		if err != nil {
			t.Fatalf("size %d: unexpected error: %v", size, err)
		}
		if n != int64(size) {
			t.Errorf("size %d: consumed %d bytes", size, n)
		}
		if !bytes.Equal(sum, Compute(data)) {
			t.Errorf("size %d: stream digest differs from one-shot", size)
		}
	}
}

func TestComputeRepeatable(t *testing.T) {
	data := []byte("the same bytes twice")
	if !bytes.Equal(Compute(data), Compute(data)) {
		t.Error("two runs over identical bytes produced different digests")
	}
}

func TestComputeReaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ComputeReader(ctx, bytes.NewReader(make([]byte, 1024)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, io.ErrUnexpectedEOF
	}
	n := f.after
	if n > len(p) {
		n = len(p)
	}
	f.after -= n
	return n, nil
}

func TestComputeReaderReadError(t *testing.T) {
	_, n, err := ComputeReader(context.Background(), &failingReader{after: 100})
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 100 {
		t.Errorf("expected 100 bytes consumed before failure, got %d", n)
	}
}
