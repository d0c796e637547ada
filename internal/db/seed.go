package db

import (
	"encoding/csv"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var seedNamespace = uuid.MustParse("6f1c2b8e-3a57-4d0e-9c61-2f4d8a9b7e10")

// SeedID derives a stable id so loading the same file twice updates rows in
// place.
func SeedID(parts ...string) string {
	return uuid.NewSHA1(seedNamespace, []byte(strings.Join(parts, "|"))).String()
}

// ReadWords loads word,word_en,category,category_en rows. The first row is a
// header.
func ReadWords(path string) ([]Word, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var words []Word
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		word := Word{
			Word:       strings.TrimSpace(row[0]),
			WordEn:     strings.TrimSpace(row[1]),
			Category:   strings.TrimSpace(row[2]),
			CategoryEn: strings.TrimSpace(row[3]),
		}
		if word.Word == "" || word.WordEn == "" {
			continue
		}
		word.ID = SeedID("word", word.Word, word.WordEn)
		word.Length = utf8.RuneCountInString(word.Word)
		words = append(words, word)
	}
	return words, nil
}

// ReadHintCatalog loads type,type_en,icon,value,value_en rows into hint types
// with their options, keeping file order.
func ReadHintCatalog(path string) ([]HintType, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	var types []HintType
	index := make(map[string]int)
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		name, nameEn := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		value, valueEn := strings.TrimSpace(row[3]), strings.TrimSpace(row[4])
		if nameEn == "" || valueEn == "" {
			continue
		}
		i, ok := index[nameEn]
		if !ok {
			i = len(types)
			index[nameEn] = i
			types = append(types, HintType{
				ID:        SeedID("hint_type", nameEn),
				Name:      name,
				NameEn:    nameEn,
				Icon:      strings.TrimSpace(row[2]),
				SortOrder: i + 1,
			})
		}
		t := &types[i]
		t.Options = append(t.Options, HintOption{
			ID:        SeedID("hint_option", nameEn, valueEn),
			TypeID:    t.ID,
			Value:     value,
			ValueEn:   valueEn,
			SortOrder: len(t.Options) + 1,
		})
	}
	return types, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}
