package skyban

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// The canonical header that will be present in all exported files
var ExportHeader = []string{
	"Key", "Kind", "Name", "Price",
}

func WriteExportToCSV(export ExportIndex, w io.Writer) error {
	csvWriter := csv.NewWriter(w)

	err := csvWriter.Write(ExportHeader)
	if err != nil {
		return err
	}

	for _, row := range export.Rows() {
		err = csvWriter.Write([]string{
			row.Key,
			row.Kind,
			row.Name,
			strconv.FormatFloat(row.Price, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func LoadExportFromCSV(r io.Reader) (ExportIndex, error) {
	csvReader := csv.NewReader(r)
	first, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("Empty input file")
	}
	if err != nil {
		return nil, fmt.Errorf("Error reading header: %v", err)
	}

	okHeader := len(first) >= len(ExportHeader)
	if okHeader {
		for i, tag := range ExportHeader {
			if tag != first[i] {
				okHeader = false
				break
			}
		}
	}
	if !okHeader {
		return nil, fmt.Errorf("Malformed export file")
	}

	export := ExportIndex{}
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Error reading record: %v", err)
		}

		price, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("Error reading record: %v", err)
		}

		key, kind, name := record[0], record[1], record[2]
		entry := export[key]
		switch kind {
		case KindItem:
			entry.LowestPrice = price
		case KindLevel:
			entry.Levels = setLeaf(entry.Levels, name, price)
		case KindAttribute:
			entry.Attributes = setLeaf(entry.Attributes, name, price)
		case KindCombo:
			entry.AttributeCombos = setLeaf(entry.AttributeCombos, name, price)
		default:
			return nil, fmt.Errorf("Unknown record kind %q", kind)
		}
		export[key] = entry
	}

	return export, nil
}

func setLeaf(leaves map[string]ExportRecord, name string, price float64) map[string]ExportRecord {
	if leaves == nil {
		leaves = map[string]ExportRecord{}
	}
	leaves[name] = ExportRecord{LowestPrice: price}
	return leaves
}
