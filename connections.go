package tsomap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ConnectionRecord is an undirected electrical link between two substations,
// each tagged with the country it belongs to. Only the country codes gate a
// record at load; blank substation or operator names are kept and render as
// empty label parts.
type ConnectionRecord struct {
	FromISO      string `json:"fromEndIsoCode" validate:"required,alpha,min=2,max=3"`
	ToISO        string `json:"toEndIsoCode" validate:"required,alpha,min=2,max=3"`
	FromName     string `json:"fromEndName"`
	ToName       string `json:"toEndName"`
	FromOperator string `json:"fromEndNameTso"`
	ToOperator   string `json:"toEndNameTso"`
	Description  string `json:"description"`
}

// Touches reports whether either end of the link lies in iso.
func (r ConnectionRecord) Touches(iso string) bool {
	return r.FromISO == iso || r.ToISO == iso
}

func (r ConnectionRecord) isSelfLoop() bool {
	return r.FromISO == r.ToISO
}

// SkippedRecord describes a connection dropped during load validation.
type SkippedRecord struct {
	Index  int              // Position in the source file
	Record ConnectionRecord // The record as parsed
	Reason string
}

// connectivityRootKey is the wrapper object key used by the CIM-style
// connectivity exports.
const connectivityRootKey = "ConnectivityNode"

// loadConnections parses the connectivity file and returns the usable
// records in file order along with the ones that were skipped.
func loadConnections(path string) ([]ConnectionRecord, []SkippedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading connectivity file: %w", err)
	}
	raw, err := parseConnectionObjects(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connectivity file %s: %w", path, err)
	}

	records := make([]ConnectionRecord, 0, len(raw))
	var skipped []SkippedRecord
	for i, obj := range raw {
		r := recordFromObject(obj)
		if err := formatValidationError(validate.Struct(r)); err != nil {
			skipped = append(skipped, SkippedRecord{Index: i, Record: r, Reason: err.Error()})
			continue
		}
		if r.isSelfLoop() {
			skipped = append(skipped, SkippedRecord{Index: i, Record: r, Reason: "self-loop: both ends in " + r.FromISO})
			continue
		}
		records = append(records, r)
	}
	return records, skipped, nil
}

// parseConnectionObjects accepts either a bare JSON list of connection
// objects or an object wrapping that list under "ConnectivityNode".
func parseConnectionObjects(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var list []map[string]any
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
	case '{':
		var root map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &root); err != nil {
			return nil, err
		}
		body, ok := root[connectivityRootKey]
		if !ok {
			return nil, fmt.Errorf("missing %q list", connectivityRootKey)
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("%s: %w", connectivityRootKey, err)
		}
	default:
		return nil, fmt.Errorf("unexpected top-level token %q", trimmed[0])
	}
	return list, nil
}

// recordFromObject maps one connection object onto a record. Keys may carry
// a class prefix such as "ConnectivityNode." or "IdentifiedObject.".
func recordFromObject(obj map[string]any) ConnectionRecord {
	var r ConnectionRecord
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if i := strings.LastIndexByte(k, '.'); i >= 0 {
			k = k[i+1:]
		}
		switch k {
		case "fromEndIsoCode":
			r.FromISO = toUpper(s)
		case "toEndIsoCode":
			r.ToISO = toUpper(s)
		case "fromEndName":
			r.FromName = s
		case "toEndName":
			r.ToName = s
		case "fromEndNameTso":
			r.FromOperator = s
		case "toEndNameTso":
			r.ToOperator = s
		case "description":
			r.Description = s
		}
	}
	return r
}

func toUpper(s string) string {
	return strings.ToUpper(s)
}
