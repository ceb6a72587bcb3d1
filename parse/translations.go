package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"buscom.dev/transit/model"
)

// translations.txt in these feeds uses the legacy three-column layout
// (language, field_value, translation) rather than the table-based
// GTFS one.
type TranslationCSV struct {
	Language    string `csv:"language"`
	FieldValue  string `csv:"field_value"`
	Translation string `csv:"translation"`
}

func ParseTranslations(data io.Reader) ([]model.Translation, error) {
	translationCsv := []*TranslationCSV{}
	if err := gocsv.Unmarshal(data, &translationCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling translations csv: %w", err)
	}

	translations := make([]model.Translation, 0, len(translationCsv))
	for _, tr := range translationCsv {
		if tr.Language == "" || tr.FieldValue == "" || tr.Translation == "" {
			continue
		}
		translations = append(translations, model.Translation{
			Language:    tr.Language,
			FieldValue:  tr.FieldValue,
			Translation: tr.Translation,
		})
	}

	return translations, nil
}
