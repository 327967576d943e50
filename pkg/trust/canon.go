package trust

import (
	"encoding/json"
	"fmt"
)

const (
	recordIDDomain = "git-warp:trust-record:v1\x00"
	signDomain     = "git-warp:trust-sign:v1\x00"
)

// toCanonicalMap round-trips r through encoding/json to get a
// map[string]any representation; encoding/json marshals map keys in sorted
// order with no insignificant whitespace by construction, which is exactly
// the canonical-JSON contract §4.F asks for.
func toCanonicalMap(r Record) (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("trust: marshaling record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("trust: remarshaling record as map: %w", err)
	}
	return m, nil
}

// RecordIDPayload renders the domain-separated payload whose SHA-256 hex is
// the record's id: the record with recordId and signature stripped.
func RecordIDPayload(r Record) ([]byte, error) {
	m, err := toCanonicalMap(r)
	if err != nil {
		return nil, err
	}
	delete(m, "recordId")
	delete(m, "signature")
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("trust: marshaling record-id payload: %w", err)
	}
	return append([]byte(recordIDDomain), body...), nil
}

// SignaturePayload renders the domain-separated payload a record's
// signature is computed over: the record with only signature stripped
// (recordId is retained).
func SignaturePayload(r Record) ([]byte, error) {
	m, err := toCanonicalMap(r)
	if err != nil {
		return nil, err
	}
	delete(m, "signature")
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("trust: marshaling signature payload: %w", err)
	}
	return append([]byte(signDomain), body...), nil
}
