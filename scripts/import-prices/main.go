package main

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"
	"strings"

	"clubreg/config"
	"clubreg/database"
	"clubreg/models"
)

// Imports the price grid from a CSV with columns: column,row,value.
// Example row: F,37,"$25.000,50"
func main() {
	config.LoadConfig()
	database.ConnectDb()

	path := "prices.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	if len(records) < 2 {
		log.Fatal("CSV file is empty or has only headers")
	}

	header := records[0]
	log.Printf("CSV Headers: %v", header)
	log.Printf("Total rows to import: %d", len(records)-1)

	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	colIdx, okCol := headerIndex["column"]
	rowIdx, okRow := headerIndex["row"]
	valIdx, okVal := headerIndex["value"]
	if !okCol || !okRow || !okVal {
		log.Fatal("CSV must have column, row and value headers")
	}

	db := database.Database.Db
	inserted := 0
	updated := 0
	skipped := 0

	for i, row := range records[1:] {
		column := strings.ToUpper(strings.TrimSpace(row[colIdx]))
		if column != "E" && column != "F" && column != "G" && column != "H" {
			log.Printf("Row %d: unknown column %q, skipping", i+2, column)
			skipped++
			continue
		}

		rowNum, err := strconv.Atoi(strings.TrimSpace(row[rowIdx]))
		if err != nil || rowNum < 17 || rowNum > 49 {
			log.Printf("Row %d: bad row number %q, skipping", i+2, row[rowIdx])
			skipped++
			continue
		}

		value := strings.TrimSpace(row[valIdx])
		if value == "" {
			skipped++
			continue
		}

		var existing models.PriceCell
		err = db.Where("\"column\" = ? AND row = ?", column, rowNum).First(&existing).Error
		if err == nil {
			existing.Value = value
			if err := db.Save(&existing).Error; err != nil {
				log.Printf("Row %d: update failed: %v", i+2, err)
				skipped++
				continue
			}
			updated++
			continue
		}

		cell := models.PriceCell{Column: column, Row: rowNum, Value: value}
		if err := db.Create(&cell).Error; err != nil {
			log.Printf("Row %d: insert failed: %v", i+2, err)
			skipped++
			continue
		}
		inserted++
	}

	log.Printf("Import finished: %d inserted, %d updated, %d skipped", inserted, updated, skipped)
}
