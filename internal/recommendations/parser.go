package recommendations

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

var fenceReplacer = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

var itemFields = []string{"title", "year", "director", "genre", "reason"}

// JSON value kinds as reported in error messages.
const (
	kindMissing = "missing"
	kindNull    = "null"
	kindObject  = "an object"
	kindArray   = "an array"
	kindString  = "a string"
	kindNumber  = "a number"
	kindBool    = "a boolean"
)

// ParseItems turns raw model output into recommendation items.
//
// Fence markers are removed wherever they appear, then the remaining text must
// decode as a single JSON array of objects. Missing or null fields become "",
// numbers and booleans keep their JSON text, and nested values fail.
// Every failure is an *Error of kind ErrParse carrying raw.
func ParseItems(raw string) ([]Item, error) {
	cleaned := strings.TrimSpace(fenceReplacer.Replace(raw))
	if cleaned == "" {
		return nil, parseError(raw, "model response is empty", nil)
	}
	items, err := decodeItems([]byte(cleaned))
	if err != nil {
		return nil, parseError(raw, "model response rejected", err)
	}
	return items, nil
}

// itemsFromJSON decodes a caller-supplied recommendations array with the same
// shape rules as ParseItems. Failures are *Error of kind ErrValidation.
func itemsFromJSON(data []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(data)
	if k := rawKind(trimmed); k == kindMissing || k == kindNull {
		return nil, newError(ErrValidation, "recommendations are required", nil)
	}
	items, err := decodeItems(trimmed)
	if err != nil {
		return nil, newError(ErrValidation, "recommendations must be an array of movie objects", err)
	}
	return items, nil
}

func decodeItems(data []byte) ([]Item, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("text is not valid UTF-8")
	}
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("not valid JSON: %w", err)
	}
	if k := rawKind(data); k != kindArray {
		return nil, fmt.Errorf("top-level value is %s, expected an array", k)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("not valid JSON: %w", err)
	}
	items := make([]Item, 0, len(elems))
	for i, el := range elems {
		item, err := itemFromJSON(el)
		if err != nil {
			return nil, fmt.Errorf("recommendation %d %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func itemFromJSON(el json.RawMessage) (Item, error) {
	if k := rawKind(el); k != kindObject {
		return Item{}, fmt.Errorf("is %s, expected an object", k)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(el, &obj); err != nil {
		return Item{}, err
	}
	var vals [5]string
	for f, name := range itemFields {
		v, err := fieldText(obj[name])
		if err != nil {
			return Item{}, fmt.Errorf("field %q %w", name, err)
		}
		vals[f] = v
	}
	return Item{
		Title:    vals[0],
		Year:     vals[1],
		Director: vals[2],
		Genre:    vals[3],
		Reason:   vals[4],
	}, nil
}

// fieldText renders a scalar JSON value as text. Numbers keep their literal
// form, so 2014.0 stays "2014.0" and large integers are not rounded.
func fieldText(raw json.RawMessage) (string, error) {
	t := bytes.TrimSpace(raw)
	switch k := rawKind(t); k {
	case kindMissing, kindNull:
		return "", nil
	case kindString:
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return "", err
		}
		return s, nil
	case kindNumber, kindBool:
		return string(t), nil
	default:
		return "", fmt.Errorf("is %s, expected text", k)
	}
}

// rawKind classifies an already validated JSON value by its first byte.
func rawKind(raw []byte) string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return kindMissing
	}
	switch t[0] {
	case '{':
		return kindObject
	case '[':
		return kindArray
	case '"':
		return kindString
	case 't', 'f':
		return kindBool
	case 'n':
		return kindNull
	default:
		return kindNumber
	}
}
