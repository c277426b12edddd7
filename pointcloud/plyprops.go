package pointcloud

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrPropertyMissing is returned when a requested vertex property is not
// declared in the PLY header.
var ErrPropertyMissing = errors.New("ply property missing")

type plyProperty struct {
	name      string
	kind      string
	list      bool
	countKind string
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

type plyHeader struct {
	format   string
	elements []plyElement
}

var plyScalarSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4,
	"double": 8, "float64": 8,
}

func readPLYHeader(r *bufio.Reader) (*plyHeader, error) {
	magic, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading ply magic: %w", err)
	}
	if strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("not a ply file")
	}

	header := &plyHeader{}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading ply header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("malformed format line %q", strings.TrimSpace(line))
			}
			header.format = fields[1]
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("malformed element line %q", strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("element %s count: %w", fields[1], err)
			}
			if count < 0 {
				return nil, fmt.Errorf("element %s has negative count %d", fields[1], count)
			}
			header.elements = append(header.elements, plyElement{name: fields[1], count: count})
		case "property":
			if len(header.elements) == 0 {
				return nil, fmt.Errorf("property declared before any element")
			}
			el := &header.elements[len(header.elements)-1]
			switch {
			case len(fields) == 5 && fields[1] == "list":
				el.props = append(el.props, plyProperty{name: fields[4], kind: fields[3], list: true, countKind: fields[2]})
			case len(fields) == 3:
				el.props = append(el.props, plyProperty{name: fields[2], kind: fields[1]})
			default:
				return nil, fmt.Errorf("malformed property line %q", strings.TrimSpace(line))
			}
		case "end_header":
			switch header.format {
			case "ascii", "binary_little_endian", "binary_big_endian":
				return header, nil
			default:
				return nil, fmt.Errorf("unsupported ply format %q", header.format)
			}
		}
	}
}

// ReadVertexProperties reads the named scalar properties of every record of
// the "vertex" element. The result holds one slice per name, in the order the
// names were given.
func ReadVertexProperties(in io.Reader, names ...string) ([][]float64, error) {
	r := bufio.NewReader(in)
	header, err := readPLYHeader(r)
	if err != nil {
		return nil, err
	}

	var decode scalarDecoder
	switch header.format {
	case "ascii":
		decode = &asciiDecoder{r: r}
	case "binary_little_endian":
		decode = &binaryDecoder{r: r, order: binary.LittleEndian}
	default:
		decode = &binaryDecoder{r: r, order: binary.BigEndian}
	}

	for _, el := range header.elements {
		if el.name != "vertex" {
			if err := skipElement(decode, el); err != nil {
				return nil, fmt.Errorf("skipping element %s: %w", el.name, err)
			}
			continue
		}

		slots := make([]int, len(el.props))
		for i := range slots {
			slots[i] = -1
		}
		for n, name := range names {
			found := false
			for i, p := range el.props {
				if p.name == name && !p.list {
					slots[i] = n
					found = true
				}
			}
			if !found {
				return nil, fmt.Errorf("%w: %s", ErrPropertyMissing, name)
			}
		}

		out := make([][]float64, len(names))
		for i := range out {
			out[i] = make([]float64, el.count)
		}
		for rec := 0; rec < el.count; rec++ {
			for i, p := range el.props {
				if p.list {
					if err := skipList(decode, p); err != nil {
						return nil, fmt.Errorf("vertex %d: %w", rec, err)
					}
					continue
				}
				v, err := decode.scalar(p.kind)
				if err != nil {
					return nil, fmt.Errorf("vertex %d property %s: %w", rec, p.name, err)
				}
				if slots[i] >= 0 {
					out[slots[i]][rec] = v
				}
			}
			decode.endRecord()
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: no vertex element", ErrPropertyMissing)
}

func skipElement(decode scalarDecoder, el plyElement) error {
	for rec := 0; rec < el.count; rec++ {
		for _, p := range el.props {
			if p.list {
				if err := skipList(decode, p); err != nil {
					return err
				}
				continue
			}
			if _, err := decode.scalar(p.kind); err != nil {
				return err
			}
		}
		decode.endRecord()
	}
	return nil
}

func skipList(decode scalarDecoder, p plyProperty) error {
	n, err := decode.scalar(p.countKind)
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		if _, err := decode.scalar(p.kind); err != nil {
			return err
		}
	}
	return nil
}

type scalarDecoder interface {
	scalar(kind string) (float64, error)
	endRecord()
}

type binaryDecoder struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (d *binaryDecoder) scalar(kind string) (float64, error) {
	size, ok := plyScalarSizes[kind]
	if !ok {
		return 0, fmt.Errorf("unknown ply scalar type %q", kind)
	}
	b := d.buf[:size]
	if _, err := io.ReadFull(d.r, b); err != nil {
		return 0, err
	}
	switch kind {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(d.order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(d.order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(d.order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(d.order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(d.order.Uint32(b))), nil
	default:
		return math.Float64frombits(d.order.Uint64(b)), nil
	}
}

func (d *binaryDecoder) endRecord() {}

// asciiDecoder hands out whitespace separated tokens one line at a time.
type asciiDecoder struct {
	r      *bufio.Reader
	tokens []string
}

func (d *asciiDecoder) scalar(kind string) (float64, error) {
	if _, ok := plyScalarSizes[kind]; !ok {
		return 0, fmt.Errorf("unknown ply scalar type %q", kind)
	}
	for len(d.tokens) == 0 {
		line, err := d.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return 0, err
		}
		d.tokens = strings.Fields(line)
	}
	tok := d.tokens[0]
	d.tokens = d.tokens[1:]
	return strconv.ParseFloat(tok, 64)
}

func (d *asciiDecoder) endRecord() { d.tokens = nil }
