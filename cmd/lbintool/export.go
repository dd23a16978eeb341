package main

import (
	"errors"
	"io"
	"log"
	"strings"

	"github.com/scizorman/go-ndjson"
	"github.com/xuri/excelize/v2"

	"github.com/skyban/go-skyban/skyban"
)

const xlsxSheetName = "lbin"

func writeExportToNDJSON(export skyban.ExportIndex, w io.Writer) error {
	rows := export.Rows()
	if len(rows) == 0 {
		return nil
	}

	output, err := ndjson.Marshal(rows)
	if err != nil {
		return err
	}

	_, err = w.Write(output)
	return err
}

func writeExportToXLSX(export skyban.ExportIndex, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	err := f.SetSheetName("Sheet1", xlsxSheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, 0, len(skyban.ExportHeader))
	for _, tag := range skyban.ExportHeader {
		header = append(header, tag)
	}
	err = f.SetSheetRow(xlsxSheetName, "A1", &header)
	if err != nil {
		return err
	}

	for i, row := range export.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(xlsxSheetName, cell, &[]interface{}{
			row.Key, row.Kind, row.Name, row.Price,
		})
		if err != nil {
			return err
		}
	}

	return f.Write(w)
}

func dumpExport(export skyban.ExportIndex, outputPath, name, format string) error {
	writer, err := putData("lbin/"+name+"."+format, outputPath)
	if err != nil {
		return err
	}

	switch strings.Split(format, ".")[0] {
	case "json":
		err = skyban.WriteExportToJSON(export, writer)
	case "csv":
		err = skyban.WriteExportToCSV(export, writer)
	case "ndjson":
		err = writeExportToNDJSON(export, writer)
	case "xlsx":
		err = writeExportToXLSX(export, writer)
	default:
		err = errors.New("invalid format")
	}
	if err != nil {
		writer.Close()
		return err
	}

	log.Println("Wrote", len(export), "records to", outputPath+"/lbin/"+name+"."+format)
	return writer.Close()
}
