package compress

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

const (
	sizeUint8   = 1
	sizeUint32  = 4
	sizeInt64   = 8
	sizeFloat64 = 8
	sizeInt     = 8

	// in memory overhead estimates for size reporting
	sliceHeaderSize  = 24
	groupHeaderSize  = 64
	matrixHeaderSize = 64

	// on disk header: rows, cols, nnz, overlapping, group count
	diskHeaderSize = 2*sizeUint32 + sizeInt64 + sizeUint8 + sizeUint32
)

var (
	_ encoding.BinaryMarshaler   = (*Matrix)(nil)
	_ encoding.BinaryUnmarshaler = (*Matrix)(nil)
)

// DiskSize returns the exact number of bytes the matrix serialises to in its
// current representation, before any size adaptive fallback.
func (m *Matrix) DiskSize() int {
	size := diskHeaderSize
	for _, g := range m.groups {
		size += groupDiskSize(g)
	}
	return size
}

func groupDiskSize(g ColGroup) int {
	return sizeUint8 + sizeUint32 + len(g.Cols())*sizeUint32 + g.diskSize()
}

// estimateDenseDiskSize returns the serialised size of the matrix when
// written as a single uncompressed group, choosing the cheaper of the dense
// and sparse embeddings when the non zero count is known.
func estimateDenseDiskSize(rows, cols int, nnz int64) int {
	base := diskHeaderSize + sizeUint8 + sizeUint32 + cols*sizeUint32 + sizeUint8
	dense := base + rows*cols*sizeFloat64
	if nnz < 0 {
		return dense
	}
	sparseSize := base + sizeUint32 + (rows+1)*sizeUint32 +
		sizeUint32 + int(nnz)*sizeUint32 + int(nnz)*sizeFloat64
	if sparseSize < dense {
		return sparseSize
	}
	return dense
}

// MarshalBinary binary serialises the receiver into a []byte and returns the
// result.
//
// The matrix is little-endian encoded as follows:
//
//	 0 -  3  number of rows (uint32)
//	 4 -  7  number of columns (uint32)
//	 8 - 15  number of non zero elements, -1 when unknown (int64)
//	16       overlapping flag (uint8)
//	17 - 20  number of column groups (uint32)
//	21 - ..  column groups, each encoded as a variant tag (uint8), the
//	         column count (uint32), the column indices (uint32 each) and the
//	         variant specific body
//
// The write is size adaptive: when the compressed layout is larger than the
// uncompressed estimate the matrix decompresses, replaces its group list with
// a single uncompressed group, and writes that layout instead.  Both layouts
// read back through UnmarshalBinary.
func (m *Matrix) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	_, err := m.MarshalBinaryTo(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalBinaryTo binary serialises the receiver and writes it into w.
// MarshalBinaryTo returns the number of bytes written into w and an error, if
// any.
//
// See MarshalBinary for the serialised layout and the size adaptive
// behaviour.
func (m *Matrix) MarshalBinaryTo(w io.Writer) (int, error) {
	if m.nnz == nnzUnknown {
		m.RecomputeNonZeros()
	}
	if m.DiskSize() > estimateDenseDiskSize(m.rows, m.cols, m.nnz) {
		m.fallbackToUncompressed()
	}

	var n int
	nn, err := writeUint32(w, uint32(m.rows))
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeUint32(w, uint32(m.cols))
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeInt64(w, m.nnz)
	n += nn
	if err != nil {
		return n, err
	}
	var overlap uint8
	if m.overlapping {
		overlap = 1
	}
	nn, err = writeUint8(w, overlap)
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeUint32(w, uint32(len(m.groups)))
	n += nn
	if err != nil {
		return n, err
	}
	for _, g := range m.groups {
		nn, err = writeGroup(w, g)
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// fallbackToUncompressed replaces the group list with a single uncompressed
// group holding the decompressed form, choosing a sparse embedding when it is
// smaller on disk.  The soft cache is cleared: the dense form is now owned by
// the embedded group.
func (m *Matrix) fallbackToUncompressed() {
	logFallback("size adaptive write")
	d := m.Decompress(1)
	var data mat.Matrix = d
	if m.nnz >= 0 {
		base := diskHeaderSize + sizeUint8 + sizeUint32 + m.cols*sizeUint32 + sizeUint8
		denseSize := base + m.rows*m.cols*sizeFloat64
		if estimateDenseDiskSize(m.rows, m.cols, m.nnz) < denseSize {
			data = denseToCSR(d)
		}
	}
	nnz := m.nnz
	m.AllocateColGroup(NewUncompressedGroup(iotaCols(m.cols), data))
	m.nnz = nnz
}

func denseToCSR(d *mat.Dense) *sparse.CSR {
	rows, cols := d.Dims()
	indptr := make([]int, rows+1)
	var ind []int
	var data []float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := d.At(r, c); v != 0 {
				ind = append(ind, c)
				data = append(data, v)
			}
		}
		indptr[r+1] = len(ind)
	}
	return sparse.NewCSR(rows, cols, indptr, ind, data)
}

// UnmarshalBinary binary deserialises the []byte into the receiver.
//
// See MarshalBinary for the on-disk layout.  UnmarshalBinary does not limit
// the size of the unmarshalled matrix and so should not be used on untrusted
// data.
func (m *Matrix) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)
	if _, err := m.UnmarshalBinaryFrom(buf); err != nil {
		return err
	}
	if buf.Len() != 0 {
		return errors.New("compress: unexpected trailing bytes")
	}
	return nil
}

// UnmarshalBinaryFrom binary deserialises the matrix from r into the receiver
// and returns the number of bytes read.
func (m *Matrix) UnmarshalBinaryFrom(r io.Reader) (int, error) {
	var n int
	rows, nn, err := readUint32(r)
	n += nn
	if err != nil {
		return n, err
	}
	cols, nn, err := readUint32(r)
	n += nn
	if err != nil {
		return n, err
	}
	nnz, nn, err := readInt64(r)
	n += nn
	if err != nil {
		return n, err
	}
	overlap, nn, err := readUint8(r)
	n += nn
	if err != nil {
		return n, err
	}
	groupCount, nn, err := readUint32(r)
	n += nn
	if err != nil {
		return n, err
	}
	groups := make([]ColGroup, 0, groupCount)
	for i := uint32(0); i < groupCount; i++ {
		g, nn, err := readGroup(r, int(rows))
		n += nn
		if err != nil {
			return n, err
		}
		groups = append(groups, g)
	}
	m.rows = int(rows)
	m.cols = int(cols)
	m.nnz = nnz
	m.overlapping = overlap == 1 && len(groups) > 1
	m.groups = groups
	m.ClearCache()
	return n, nil
}

func writeGroup(w io.Writer, g ColGroup) (int, error) {
	n, err := writeUint8(w, uint8(g.tag()))
	if err != nil {
		return n, err
	}
	nn, err := writeIntsUint32(w, g.Cols())
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = g.marshalTo(w)
	n += nn
	return n, err
}

func readGroup(r io.Reader, numRows int) (ColGroup, int, error) {
	tag, n, err := readUint8(r)
	if err != nil {
		return nil, n, err
	}
	cols, nn, err := readIntsUint32(r)
	n += nn
	if err != nil {
		return nil, n, err
	}
	var g ColGroup
	switch groupTag(tag) {
	case tagEmpty:
		g = NewEmptyGroup(cols, numRows)
	case tagConst:
		dict, dn, derr := readDict(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		g = NewConstGroup(cols, numRows, dict)
	case tagDDC:
		dict, dn, derr := readDict(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		codes, dn, derr := readIntsUint32(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		g = NewDDCGroup(cols, dict, codes)
	case tagSDC:
		dict, dn, derr := readDict(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		def, dn, derr := readFloat64s(r, len(cols))
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		rows, dn, derr := readIntsUint32(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		codes, dn, derr := readIntsUint32(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		g = NewSDCGroup(cols, numRows, def, dict, rows, codes)
	case tagRLE:
		dict, dn, derr := readDict(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		ptr, dn, derr := readIntsUint32(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		runs, dn, derr := readIntsUint32(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		g = NewRLEGroup(cols, numRows, dict, ptr, runs)
	case tagOLE:
		dict, dn, derr := readDict(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		ptr, dn, derr := readIntsUint32(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		offs, dn, derr := readIntsUint32(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		g = NewOLEGroup(cols, numRows, dict, ptr, offs)
	case tagUncompressed:
		sparseFlag, dn, derr := readUint8(r)
		n += dn
		if derr != nil {
			return nil, n, derr
		}
		if sparseFlag == 1 {
			indptr, dn, derr := readIntsUint32(r)
			n += dn
			if derr != nil {
				return nil, n, derr
			}
			ind, dn, derr := readIntsUint32(r)
			n += dn
			if derr != nil {
				return nil, n, derr
			}
			data, dn, derr := readFloat64s(r, len(ind))
			n += dn
			if derr != nil {
				return nil, n, derr
			}
			g = NewUncompressedGroup(cols, sparse.NewCSR(numRows, len(cols), indptr, ind, data))
		} else {
			data, dn, derr := readFloat64s(r, numRows*len(cols))
			n += dn
			if derr != nil {
				return nil, n, derr
			}
			g = NewUncompressedGroup(cols, mat.NewDense(numRows, len(cols), data))
		}
	default:
		return nil, n, errors.New("compress: unknown column group tag")
	}
	return g, n, nil
}

func dictDiskSize(d *Dict) int {
	return sizeUint8 + sizeUint32 + len(d.values)*sizeFloat64
}

func writeDict(w io.Writer, d *Dict) (int, error) {
	var kind uint8
	if d.lossy {
		kind = 1
	}
	n, err := writeUint8(w, kind)
	if err != nil {
		return n, err
	}
	nn, err := writeUint32(w, uint32(len(d.values)))
	n += nn
	if err != nil {
		return n, err
	}
	nn, err = writeFloat64s(w, d.values)
	n += nn
	return n, err
}

func readDict(r io.Reader) (*Dict, int, error) {
	kind, n, err := readUint8(r)
	if err != nil {
		return nil, n, err
	}
	count, nn, err := readUint32(r)
	n += nn
	if err != nil {
		return nil, n, err
	}
	values, nn, err := readFloat64s(r, int(count))
	n += nn
	if err != nil {
		return nil, n, err
	}
	return &Dict{values: values, lossy: kind == 1}, n, nil
}

func writeUint8(w io.Writer, v uint8) (int, error) {
	return w.Write([]byte{v})
}

func writeUint32(w io.Writer, v uint32) (int, error) {
	var buf [sizeUint32]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return w.Write(buf[:])
}

func writeInt64(w io.Writer, v int64) (int, error) {
	var buf [sizeInt64]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return w.Write(buf[:])
}

// writeFloat64s writes the raw values without a length prefix; the count must
// be recoverable from context on read.
func writeFloat64s(w io.Writer, values []float64) (int, error) {
	var n int
	var buf [sizeFloat64]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		nn, err := w.Write(buf[:])
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// writeIntsUint32 writes a uint32 length prefix followed by the values as
// uint32.
func writeIntsUint32(w io.Writer, values []int) (int, error) {
	n, err := writeUint32(w, uint32(len(values)))
	if err != nil {
		return n, err
	}
	var buf [sizeUint32]byte
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		nn, err := w.Write(buf[:])
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func readUint8(r io.Reader) (uint8, int, error) {
	var buf [sizeUint8]byte
	n, err := io.ReadFull(r, buf[:])
	return buf[0], n, err
}

func readUint32(r io.Reader) (uint32, int, error) {
	var buf [sizeUint32]byte
	n, err := io.ReadFull(r, buf[:])
	return binary.LittleEndian.Uint32(buf[:]), n, err
}

func readInt64(r io.Reader) (int64, int, error) {
	var buf [sizeInt64]byte
	n, err := io.ReadFull(r, buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:])), n, err
}

func readFloat64s(r io.Reader, count int) ([]float64, int, error) {
	buf := make([]byte, count*sizeFloat64)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, n, err
	}
	values := make([]float64, count)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*sizeFloat64:]))
	}
	return values, n, nil
}

func readIntsUint32(r io.Reader) ([]int, int, error) {
	count, n, err := readUint32(r)
	if err != nil {
		return nil, n, err
	}
	buf := make([]byte, int(count)*sizeUint32)
	nn, err := io.ReadFull(r, buf)
	n += nn
	if err != nil {
		return nil, n, err
	}
	values := make([]int, count)
	for i := range values {
		values[i] = int(binary.LittleEndian.Uint32(buf[i*sizeUint32:]))
	}
	return values, n, nil
}
