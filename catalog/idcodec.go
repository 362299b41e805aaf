package catalog

import (
	"fmt"
)

// idEncoder owns the bijection between label names and label codes, and
// the packing of (label_code, row_id) into the public 64-bit node/
// relationship id (spec.md §3.2, "Id encoding").
//
// Layout: the top labelBits bits hold the label code (assigned in
// registration order, starting at 1 so 0 stays reserved), the remaining
// bits hold the row id. labelBits = 14 allows label codes up to 16383
// (maxLabelCode) and leaves 50 bits (about 1.1e15 row ids) for the row id.
type idEncoder struct {
	labelToCode map[string]uint16
	codeToLabel map[uint16]string
	nextCode    uint16
}

const (
	labelBits   = 14
	rowIDBits   = 64 - labelBits
	rowIDMask   = (int64(1) << rowIDBits) - 1
	maxLabelCode = (1 << labelBits) - 1
)

func newIDEncoder() *idEncoder {
	return &idEncoder{
		labelToCode: map[string]uint16{},
		codeToLabel: map[uint16]string{},
		nextCode:    1,
	}
}

func (e *idEncoder) registerLabel(label string) {
	if _, ok := e.labelToCode[label]; ok {
		return
	}
	code := e.nextCode
	e.nextCode++
	e.labelToCode[label] = code
	e.codeToLabel[code] = label
}

// encode packs (label, rowID) into a public 64-bit id.
func (e *idEncoder) encode(label string, rowID uint64) (int64, error) {
	code, ok := e.labelToCode[label]
	if !ok {
		return 0, fmt.Errorf("catalog: unknown label %q cannot be id-encoded", label)
	}
	if code > maxLabelCode {
		return 0, fmt.Errorf("catalog: label code %d for %q exceeds %d-bit budget", code, label, labelBits)
	}
	if int64(rowID) > rowIDMask {
		return 0, fmt.Errorf("catalog: row id %d exceeds %d-bit budget", rowID, rowIDBits)
	}
	return (int64(code) << rowIDBits) | int64(rowID), nil
}

// decode recovers (label, rowID) from a public 64-bit id.
func (e *idEncoder) decode(id int64) (string, uint64, error) {
	code := uint16(uint64(id) >> rowIDBits)
	rowID := uint64(id & rowIDMask)
	label, ok := e.codeToLabel[code]
	if !ok {
		return "", 0, fmt.Errorf("catalog: id %d decodes to unknown label code %d", id, code)
	}
	return label, rowID, nil
}
