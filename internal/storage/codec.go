// Package storage persists chunk node data.
package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"mc-terrain/internal/grid"
	"mc-terrain/internal/world"
)

// NodeSize is the encoded size of one node: float32 iso then one material byte.
const NodeSize = 5

// ErrSizeMismatch is returned when stored data does not match the chunk size.
var ErrSizeMismatch = errors.New("storage: chunk data size mismatch")

// EncodedLen returns the encoded size of a grid of nodes.
func EncodedLen(nodes *grid.Grid[world.Node]) int {
	return nodes.Len() * NodeSize
}

// Encode writes nodes in row-major order, little-endian. Material IDs are
// truncated to one byte.
func Encode(w io.Writer, nodes *grid.Grid[world.Node]) error {
	bw := bufio.NewWriter(w)
	var buf [NodeSize]byte
	for _, n := range nodes.Cells() {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(n.Iso))
		buf[4] = byte(n.Material)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode fills nodes from r. The stream must hold exactly one record per node.
func Decode(r io.Reader, nodes *grid.Grid[world.Node]) error {
	br := bufio.NewReader(r)
	var buf [NodeSize]byte
	cells := nodes.Cells()
	for i := range cells {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: truncated at node %d of %d", ErrSizeMismatch, i, len(cells))
			}
			return err
		}
		cells[i] = world.Node{
			Iso:      math.Float32frombits(binary.LittleEndian.Uint32(buf[:4])),
			Material: int32(buf[4]),
		}
	}
	if _, err := br.ReadByte(); err == nil {
		return fmt.Errorf("%w: trailing data", ErrSizeMismatch)
	} else if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
