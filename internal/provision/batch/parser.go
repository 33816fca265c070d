// Package batch applies the provisioning saga to each row of an uploaded
// delimited file, isolating failures so one bad row never aborts the batch.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"rollbook/internal/provision/models"
)

// Row is one parsed data row: its 1-based position in the file (header
// excluded) and its fields keyed by canonical column name.
type Row struct {
	Index  int
	Fields map[string]string
}

// headerAliases reconciles the two accepted header vocabularies (the
// human-friendly export headers and the machine ones) to one canonical name.
var headerAliases = map[string]string{
	"name":         "full_name",
	"full name":    "full_name",
	"full_name":    "full_name",
	"grade":        "grade",
	"parent email": "parent_email",
	"parent_email": "parent_email",
	"email":        "email",
	"phone":        "phone",
	"position":     "position",
}

// ParseRows reads a delimited UTF-8 file whose first row names the columns.
// Fields may be double-quoted to embed the delimiter; quotes inside a quoted
// field are escaped by doubling (encoding/csv semantics).
//
// A row whose column count does not match the header is silently dropped:
// a documented lossy-parse policy, not a crash. Dropped rows still advance
// the row index so surviving outcomes keep their file positions.
func ParseRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // column-count policy is ours, not the reader's

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = canonicalColumn(name)
	}

	var rows []Row
	index := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		index++
		if len(record) != len(columns) {
			continue
		}
		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			fields[col] = strings.TrimSpace(record[i])
		}
		rows = append(rows, Row{Index: index, Fields: fields})
	}
	return rows, nil
}

func canonicalColumn(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := headerAliases[key]; ok {
		return canonical
	}
	return strings.ReplaceAll(key, " ", "_")
}

// attributes maps a row's canonical fields onto provisioning attributes.
// For students the contact email arrives as parent_email.
func (r Row) attributes() models.Attributes {
	email := r.Fields["email"]
	if email == "" {
		email = r.Fields["parent_email"]
	}
	return models.Attributes{
		FullName: r.Fields["full_name"],
		Grade:    r.Fields["grade"],
		Position: r.Fields["position"],
		Email:    email,
		Phone:    r.Fields["phone"],
	}
}
