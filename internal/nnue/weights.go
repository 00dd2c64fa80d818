package nnue

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Model file constants.
const (
	MagicNumber = 0x4E4E5545 // "NNUE"
	Version     = 1
)

// FileHeader opens every model file. All fields are little endian.
type FileHeader struct {
	Magic    uint32
	Version  uint32
	Features uint32
	Hidden   uint32
	L1       uint32
	L2       uint32
}

// Load reads a model from r. The float32 arrays follow the header in order:
// feature weights, L1 weights and bias, L2 weights and bias, output weights
// and bias.
func Load(r io.Reader) (*Network, error) {
	var h FileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	switch {
	case h.Magic != MagicNumber:
		return nil, errors.Errorf("invalid magic number %#x", h.Magic)
	case h.Version != Version:
		return nil, errors.Errorf("unsupported version %d", h.Version)
	case h.Features != FeatureCount:
		return nil, errors.Errorf("feature count %d, want %d", h.Features, FeatureCount)
	case h.L1 != L1Size || h.L2 != L2Size:
		return nil, errors.Errorf("layer sizes %dx%d, want %dx%d", h.L1, h.L2, L1Size, L2Size)
	case h.Hidden == 0 || h.Hidden > 4096:
		return nil, errors.Errorf("hidden size %d out of range", h.Hidden)
	}

	n := NewNetwork(int(h.Hidden))
	for _, part := range n.parts() {
		if err := binary.Read(r, binary.LittleEndian, part.data); err != nil {
			return nil, errors.Wrapf(err, "read %s", part.name)
		}
	}
	return n, nil
}

// LoadFile reads a model from path.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open model")
	}
	defer f.Close()
	n, err := Load(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return n, nil
}

// Save writes n in the layout Load reads.
func (n *Network) Save(w io.Writer) error {
	h := FileHeader{
		Magic:    MagicNumber,
		Version:  Version,
		Features: FeatureCount,
		Hidden:   uint32(n.Hidden),
		L1:       L1Size,
		L2:       L2Size,
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, part := range n.parts() {
		if err := binary.Write(w, binary.LittleEndian, part.data); err != nil {
			return errors.Wrapf(err, "write %s", part.name)
		}
	}
	return nil
}

// SaveFile writes n to path, replacing any existing file.
func (n *Network) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create model")
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	if err := n.Save(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "flush model")
	}
	return f.Close()
}

type part struct {
	name string
	data []float32
}

func (n *Network) parts() []part {
	return []part{
		{"feature weights", n.FeatureWeights},
		{"l1 weights", n.L1.Weights},
		{"l1 bias", n.L1.Bias},
		{"l2 weights", n.L2.Weights},
		{"l2 bias", n.L2.Bias},
		{"output weights", n.Output.Weights},
		{"output bias", n.Output.Bias},
	}
}

// LoadFirst loads the first of paths that exists. Paths that do not exist
// are skipped; any other failure is returned.
func LoadFirst(paths ...string) (*Network, string, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		n, err := LoadFile(p)
		if err != nil {
			return nil, p, err
		}
		return n, p, nil
	}
	return nil, "", errors.Wrapf(os.ErrNotExist, "no model in %v", paths)
}
