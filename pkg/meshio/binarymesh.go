package meshio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/df07/go-scene-bridge/pkg/core"
)

var binaryMeshMagic = [4]byte{'B', 'M', 'S', 'H'}

const binaryMeshVersion uint32 = 1

// binaryMesh is a zstd-compressed little-endian layout:
// magic, version, then (vertex count, normal count, triangle count) as
// uint32, float32 positions, float32 normals and uint32 indices.
type binaryMesh struct{}

func (binaryMesh) Name() string      { return "binarymesh" }
func (binaryMesh) Extension() string { return "binarymesh" }

func (binaryMesh) Write(w io.Writer, m *Mesh) error {
	if _, err := w.Write(binaryMeshMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, binaryMeshVersion); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)

	header := []uint32{uint32(len(m.Positions)), uint32(len(m.Normals)), uint32(len(m.Triangles))}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		enc.Close()
		return err
	}
	if err := writeVectors(bw, m.Positions); err != nil {
		enc.Close()
		return err
	}
	if err := writeVectors(bw, m.Normals); err != nil {
		enc.Close()
		return err
	}
	indices := make([]uint32, 0, len(m.Triangles)*3)
	for _, tri := range m.Triangles {
		indices = append(indices, uint32(tri[0]), uint32(tri[1]), uint32(tri[2]))
	}
	if err := binary.Write(bw, binary.LittleEndian, indices); err != nil {
		enc.Close()
		return err
	}

	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func (binaryMesh) Read(r io.Reader) (*Mesh, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != binaryMeshMagic {
		return nil, errors.New("not a binarymesh file")
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != binaryMeshVersion {
		return nil, fmt.Errorf("unsupported binarymesh version %d", version)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var header [3]uint32
	if err := binary.Read(dec, binary.LittleEndian, &header); err != nil {
		return nil, err
	}

	m := &Mesh{}
	if m.Positions, err = readVectors(dec, int(header[0])); err != nil {
		return nil, err
	}
	if m.Normals, err = readVectors(dec, int(header[1])); err != nil {
		return nil, err
	}
	indices := make([]uint32, int(header[2])*3)
	if err := binary.Read(dec, binary.LittleEndian, indices); err != nil {
		return nil, err
	}
	m.Triangles = make([][3]int, header[2])
	for i := range m.Triangles {
		m.Triangles[i] = [3]int{int(indices[i*3]), int(indices[i*3+1]), int(indices[i*3+2])}
	}
	return m, nil
}

func writeVectors(w io.Writer, vs []core.Vec3) error {
	buf := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		buf = append(buf, float32(v.X), float32(v.Y), float32(v.Z))
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

func readVectors(r io.Reader, n int) ([]core.Vec3, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]float32, n*3)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	out := make([]core.Vec3, n)
	for i := range out {
		out[i] = core.NewVec3(float64(buf[i*3]), float64(buf[i*3+1]), float64(buf[i*3+2]))
	}
	return out, nil
}
