package oemm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chazu/tessera/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// recordSize is the encoded size of one triangle: nine float64 values.
const recordSize = 9 * 8

// Source is a re-readable triangle soup. Each pass of a build calls Each
// once and expects the same triangles in the same order.
type Source interface {
	Each(fn func(t kernel.Triangle) error) error
}

// SliceSource is an in-memory soup.
type SliceSource []kernel.Triangle

func (s SliceSource) Each(fn func(t kernel.Triangle) error) error {
	for _, t := range s {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// FileSource streams a soup file in the leaf record format.
type FileSource string

func (s FileSource) Each(fn func(t kernel.Triangle) error) error {
	f, err := os.Open(string(s))
	if err != nil {
		return fmt.Errorf("oemm: open soup: %w", err)
	}
	defer f.Close()
	return readRecords(bufio.NewReader(f), fn)
}

// WriteSoup stores src at path in the leaf record format.
func WriteSoup(path string, src Source) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("oemm: create soup: %w", err)
	}
	w := bufio.NewWriter(f)
	err = src.Each(func(t kernel.Triangle) error {
		return writeRecord(w, t)
	})
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeRecord(w io.Writer, t kernel.Triangle) error {
	var buf [recordSize]byte
	for i, p := range t {
		for j, x := range [3]float64{p.X, p.Y, p.Z} {
			binary.LittleEndian.PutUint64(buf[(3*i+j)*8:], math.Float64bits(x))
		}
	}
	_, err := w.Write(buf[:])
	return err
}

func readRecords(r io.Reader, fn func(t kernel.Triangle) error) error {
	var buf [recordSize]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("oemm: truncated triangle record")
			}
			return err
		}
		var t kernel.Triangle
		for i := range t {
			f := func(j int) float64 {
				return math.Float64frombits(binary.LittleEndian.Uint64(buf[(3*i+j)*8:]))
			}
			t[i] = v3.Vec{X: f(0), Y: f(1), Z: f(2)}
		}
		if err := fn(t); err != nil {
			return err
		}
	}
}
