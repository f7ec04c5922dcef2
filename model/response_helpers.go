package model

import (
	"fmt"
	"strings"
)

// EmptyRecords returns a record table with every known type mapped to an
// empty value list. Absence of a type is not an error, it is an empty result.
func EmptyRecords() Records {
	records := make(Records, len(RecordTypes))
	for _, rt := range RecordTypes {
		records[rt] = []string{}
	}

	return records
}

// NormalizeRecords fills the missing record types with empty value lists so
// the external record table always carries all known types.
func NormalizeRecords(records Records) Records {
	result := EmptyRecords()

	for rt, values := range records {
		if values != nil {
			result[rt] = values
		}
	}

	return result
}

// RecordsToString renders the record table in a compact single line form
// ("A (1.2.3.4, 5.6.7.8), MX (10 mail.example.com)"), used for logging.
func RecordsToString(records Records) string {
	var parts []string

	for _, rt := range RecordTypes {
		if values := records[rt]; len(values) > 0 {
			parts = append(parts, fmt.Sprintf("%s (%s)", rt, strings.Join(values, ", ")))
		}
	}

	return strings.Join(parts, ", ")
}

// FirstAddress returns a representative value of the record table: the first
// A value, falling back to the first AAAA value.
func FirstAddress(records Records) string {
	for _, rt := range []RecordType{RecordTypeA, RecordTypeAAAA} {
		if values := records[rt]; len(values) > 0 {
			return values[0]
		}
	}

	return ""
}

// PresentTypes lists the record types with at least one value, in query order.
func PresentTypes(records Records) []RecordType {
	var result []RecordType

	for _, rt := range RecordTypes {
		if len(records[rt]) > 0 {
			result = append(result, rt)
		}
	}

	return result
}
