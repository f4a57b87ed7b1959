package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/born-ml/layerkit/internal/tensor"
)

const metadataKey = "__metadata__"

// headerEntry describes one tensor in the SafeTensors header.
type headerEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Write encodes dict in SafeTensors format. Tensors are written in
// alphabetical order by name; metadata may be nil.
func Write(w io.Writer, dict map[string]*tensor.Array, metadata map[string]string) error {
	names := make([]string, 0, len(dict))
	for name := range dict {
		if err := validateName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	var data []byte
	for _, name := range names {
		a := dict[name]
		begin := int64(len(data))
		for _, v := range a.Data() {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
		}
		shape := make([]int64, len(a.Shape()))
		for i, d := range a.Shape() {
			shape[i] = int64(d)
		}
		header[name] = headerEntry{DType: "F32", Shape: shape, DataOffsets: [2]int64{begin, int64(len(data))}}
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[checksumKey] = checksum(data)
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// Read decodes a SafeTensors stream into arrays on device. Only F32 tensors
// are supported.
func Read(r io.Reader, device tensor.Device) (map[string]*tensor.Array, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}
	var metadata map[string]string
	if m, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(m, &metadata); err != nil {
			return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		delete(raw, metadataKey)
	}
	if err := verifyChecksum(data, metadata); err != nil {
		return nil, nil, err
	}

	entries := make(map[string]headerEntry, len(raw))
	spans := make([]tensorSpan, 0, len(raw))
	for name, msg := range raw {
		if err := validateName(name); err != nil {
			return nil, nil, err
		}
		var e headerEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, nil, fmt.Errorf("failed to parse tensor %q: %w", name, err)
		}
		if e.DType != "F32" {
			return nil, nil, fmt.Errorf("tensor %q: %w %s", name, ErrUnsupportedDType, e.DType)
		}
		elements := int64(1)
		for _, d := range e.Shape {
			if d < 0 {
				return nil, nil, &ValidationError{Type: "invalid_shape", Tensor: name, Details: fmt.Sprintf("shape %v", e.Shape)}
			}
			elements *= d
		}
		entries[name] = e
		spans = append(spans, tensorSpan{name: name, begin: e.DataOffsets[0], end: e.DataOffsets[1], elements: elements})
	}
	if err := validateSpans(spans, int64(len(data))); err != nil {
		return nil, nil, err
	}

	dict := make(map[string]*tensor.Array, len(entries))
	for name, e := range entries {
		shape := make(tensor.Shape, len(e.Shape))
		for i, d := range e.Shape {
			shape[i] = int(d)
		}
		a, err := tensor.NewArray(shape, device)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		values := a.Data()
		chunk := data[e.DataOffsets[0]:e.DataOffsets[1]]
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(chunk[i*4:]))
		}
		dict[name] = a
	}
	return dict, metadata, nil
}
