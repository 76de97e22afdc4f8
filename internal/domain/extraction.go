package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LineItem is one product line extracted from an uploaded PDF.
type LineItem struct {
	ID          string `json:"id"`
	ProductName string `json:"product_name"`
}

// Extraction is the payload produced by the PDF-processing service and
// consumed by the search service.
type Extraction struct {
	TaxCode string     `json:"mst"`
	Vendor  string     `json:"vendor"`
	Items   []LineItem `json:"item_des"`
}

// ValidateExtraction checks the boundary schema of a PDF-processing payload.
// The payload must be a JSON object; when it carries "item_des" that must be
// a list of objects. Other fields are not interpreted so that the payload can
// be forwarded verbatim.
func ValidateExtraction(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidExtraction.Message,
			fmt.Errorf("expected a JSON object"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidExtraction.Message, err)
	}

	items, ok := fields["item_des"]
	if !ok {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(items, &list); err != nil {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidExtraction.Message,
			fmt.Errorf("item_des must be a list"))
	}
	for i, item := range list {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidExtraction.Message,
				fmt.Errorf("item_des[%d] must be an object", i))
		}
	}

	return nil
}

// ParseLineItems reads the "item_des" list of a search request. Entries that
// are not objects, lack "id" or "product_name", or have a blank product name
// are skipped. Numeric ids are accepted and rendered in decimal.
func ParseLineItems(raw []byte) ([]LineItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoJSONData
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, ErrNoJSONData
	}
	if len(fields) == 0 {
		return nil, ErrNoJSONData
	}

	rawItems, ok := fields["item_des"]
	if !ok {
		return nil, ErrMissingItemList
	}
	var list []json.RawMessage
	if err := json.Unmarshal(rawItems, &list); err != nil || list == nil {
		return nil, ErrMissingItemList
	}

	items := make([]LineItem, 0, len(list))
	for _, entry := range list {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(entry, &obj); err != nil || obj == nil {
			continue
		}
		id, ok := scalarString(obj["id"])
		if !ok {
			continue
		}
		name, ok := scalarString(obj["product_name"])
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		items = append(items, LineItem{ID: id, ProductName: name})
	}

	return items, nil
}

func scalarString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return n.String(), true
	}
	return "", false
}
