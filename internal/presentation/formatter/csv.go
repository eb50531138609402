package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVFormatter writes one record per entity attribute
type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

func (f *CSVFormatter) Format(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"Time", "Type", "ID", "Attribute", "Value"}); err != nil {
		return err
	}

	at := fmt.Sprintf("%g", r.Time)
	for _, typ := range r.Types() {
		for _, row := range r.Entities[typ] {
			id := formatValue(row["id"])
			for _, name := range columns([]map[string]interface{}{row}) {
				if name == "id" {
					continue
				}
				if err := cw.Write([]string{at, typ, id, name, formatValue(row[name])}); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
