// Package optimize losslessly shrinks well-formed PNG streams. It strips
// non-essential metadata chunks, re-selects per-scanline filters, and
// re-runs the deflate stage at maximum compression. Decoded pixel values
// are never altered.
package optimize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

// StripPolicy selects which ancillary chunks survive optimization.
type StripPolicy int

const (
	// StripSafe removes metadata but keeps chunks needed for correct
	// rendering and color management (gamma, ICC profiles, etc).
	StripSafe StripPolicy = iota
	// StripAll keeps only the chunks required to decode the pixels,
	// including transparency.
	StripAll
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

type chunk struct {
	typ  string
	data []byte
}

// PNG recompresses data and strips chunks per policy. The result may be
// larger than the input for already-optimal files; callers are expected
// to compare sizes. Fails only on malformed input.
func PNG(data []byte, policy StripPolicy) ([]byte, error) {
	chunks, err := parseChunks(data)
	if err != nil {
		return nil, err
	}

	hdr, err := parseIHDR(chunks)
	if err != nil {
		return nil, err
	}

	kept := make([]chunk, 0, len(chunks))
	var idat []byte
	for _, c := range chunks {
		if c.typ == "IDAT" {
			idat = append(idat, c.data...)
			continue
		}
		if dropChunk(c.typ, policy) {
			continue
		}
		kept = append(kept, c)
	}
	if len(idat) == 0 {
		return nil, fmt.Errorf("optimize png: no IDAT data")
	}

	raw, err := inflate(idat)
	if err != nil {
		return nil, fmt.Errorf("optimize png: %w", err)
	}

	best := idat
	if cand, err := deflate(raw); err == nil && len(cand) < len(best) {
		best = cand
	}
	if refiltered, ok := refilter(raw, hdr); ok {
		if cand, err := deflate(refiltered); err == nil && len(cand) < len(best) {
			best = cand
		}
	}

	return assemble(kept, best), nil
}

func dropChunk(typ string, policy StripPolicy) bool {
	switch typ {
	case "IHDR", "PLTE", "IEND", "tRNS":
		return false
	}
	if policy == StripAll {
		return true
	}
	switch typ {
	case "gAMA", "cHRM", "sRGB", "iCCP", "sBIT", "bKGD", "pHYs":
		return false
	}
	return true
}

func parseChunks(data []byte) ([]chunk, error) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return nil, fmt.Errorf("optimize png: invalid signature")
	}

	var chunks []chunk
	rest := data[len(pngSignature):]
	for len(rest) > 0 {
		if len(rest) < 12 {
			return nil, fmt.Errorf("optimize png: truncated chunk")
		}
		length := binary.BigEndian.Uint32(rest[:4])
		if uint64(length)+12 > uint64(len(rest)) {
			return nil, fmt.Errorf("optimize png: chunk length exceeds stream")
		}
		typ := string(rest[4:8])
		payload := rest[8 : 8+length]
		want := binary.BigEndian.Uint32(rest[8+length : 12+length])
		if crc32.ChecksumIEEE(rest[4:8+length]) != want {
			return nil, fmt.Errorf("optimize png: bad crc in %s chunk", typ)
		}
		chunks = append(chunks, chunk{typ: typ, data: payload})
		rest = rest[12+length:]
		if typ == "IEND" {
			break
		}
	}

	if len(chunks) == 0 || chunks[0].typ != "IHDR" || chunks[len(chunks)-1].typ != "IEND" {
		return nil, fmt.Errorf("optimize png: missing IHDR or IEND")
	}
	return chunks, nil
}

type ihdr struct {
	width, height       int
	bitDepth, colorType byte
	interlace           byte
}

func parseIHDR(chunks []chunk) (ihdr, error) {
	var h ihdr
	if len(chunks) == 0 || chunks[0].typ != "IHDR" || len(chunks[0].data) != 13 {
		return h, fmt.Errorf("optimize png: malformed IHDR")
	}
	d := chunks[0].data
	h.width = int(binary.BigEndian.Uint32(d[:4]))
	h.height = int(binary.BigEndian.Uint32(d[4:8]))
	h.bitDepth = d[8]
	h.colorType = d[9]
	h.interlace = d[12]
	if h.width <= 0 || h.height <= 0 {
		return h, fmt.Errorf("optimize png: invalid dimensions")
	}
	return h, nil
}

func channels(colorType byte) int {
	switch colorType {
	case 0, 3: // grayscale, indexed
		return 1
	case 2: // truecolor
		return 3
	case 4: // grayscale+alpha
		return 2
	case 6: // truecolor+alpha
		return 4
	default:
		return 0
	}
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// refilter unfilters the decompressed scanline stream and re-selects a
// filter per row using the minimum-sum-of-absolute-differences heuristic.
// Interlaced images and streams with unexpected geometry are left alone.
func refilter(raw []byte, h ihdr) ([]byte, bool) {
	ch := channels(h.colorType)
	if ch == 0 || h.interlace != 0 {
		return nil, false
	}
	rowBytes := (h.width*ch*int(h.bitDepth) + 7) / 8
	rowSize := 1 + rowBytes
	if rowBytes == 0 || len(raw) != h.height*rowSize {
		return nil, false
	}
	bpp := (int(h.bitDepth)*ch + 7) / 8
	if bpp < 1 {
		bpp = 1
	}

	// Unfilter every row in place first; filters reference the
	// reconstructed bytes of the previous row, not the filtered ones.
	rows := make([][]byte, h.height)
	prev := make([]byte, rowBytes)
	for y := 0; y < h.height; y++ {
		ft := raw[y*rowSize]
		cur := append([]byte(nil), raw[y*rowSize+1:(y+1)*rowSize]...)
		if !unfilterRow(ft, cur, prev, bpp) {
			return nil, false
		}
		rows[y] = cur
		prev = cur
	}

	out := make([]byte, 0, len(raw))
	prev = make([]byte, rowBytes)
	scratch := make([]byte, rowBytes)
	for y := 0; y < h.height; y++ {
		ft, filtered := bestFilter(rows[y], prev, bpp, scratch)
		out = append(out, ft)
		out = append(out, filtered...)
		prev = rows[y]
	}
	return out, true
}

func unfilterRow(ft byte, cur, prev []byte, bpp int) bool {
	switch ft {
	case 0:
	case 1: // Sub
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case 2: // Up
		for i := range cur {
			cur[i] += prev[i]
		}
	case 3: // Average
		for i := range cur {
			var left byte
			if i >= bpp {
				left = cur[i-bpp]
			}
			cur[i] += byte((int(left) + int(prev[i])) / 2)
		}
	case 4: // Paeth
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			cur[i] += paeth(left, prev[i], upLeft)
		}
	default:
		return false
	}
	return true
}

func filterRow(ft byte, cur, prev []byte, bpp int, dst []byte) {
	for i := range cur {
		var left, up, upLeft byte
		if i >= bpp {
			left = cur[i-bpp]
			upLeft = prev[i-bpp]
		}
		up = prev[i]
		switch ft {
		case 0:
			dst[i] = cur[i]
		case 1:
			dst[i] = cur[i] - left
		case 2:
			dst[i] = cur[i] - up
		case 3:
			dst[i] = cur[i] - byte((int(left)+int(up))/2)
		case 4:
			dst[i] = cur[i] - paeth(left, up, upLeft)
		}
	}
}

func bestFilter(cur, prev []byte, bpp int, scratch []byte) (byte, []byte) {
	var bestType byte
	var best []byte
	bestScore := -1
	for ft := byte(0); ft <= 4; ft++ {
		filterRow(ft, cur, prev, bpp, scratch)
		score := 0
		for _, b := range scratch {
			score += abs8(b)
		}
		if bestScore < 0 || score < bestScore {
			bestScore = score
			bestType = ft
			best = append(best[:0], scratch...)
		}
	}
	return bestType, best
}

// abs8 treats a filtered byte as signed, the standard heuristic for
// estimating post-deflate entropy.
func abs8(b byte) int {
	v := int(int8(b))
	if v < 0 {
		return -v
	}
	return v
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := p-int(a), p-int(b), p-int(c)
	if pa < 0 {
		pa = -pa
	}
	if pb < 0 {
		pb = -pb
	}
	if pc < 0 {
		pc = -pc
	}
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func assemble(chunks []chunk, idat []byte) []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature)
	for _, c := range chunks {
		if c.typ == "IEND" {
			writeChunk(&buf, "IDAT", idat)
		}
		writeChunk(&buf, c.typ, c.data)
	}
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(data)))
	copy(hdr[4:], typ)
	buf.Write(hdr[:])
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var tail [4]byte
	binary.BigEndian.PutUint32(tail[:], crc.Sum32())
	buf.Write(tail[:])
}
