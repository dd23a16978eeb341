// Package database persists price indexes to MySQL, one row per price.
package database

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skyban/go-skyban/skyban"
)

const batchSize = 500

// PriceRow is a single price of a named index. Rows with an empty Name hold
// the price of the item itself.
type PriceRow struct {
	ID          uint       `gorm:"primaryKey"`
	IndexName   string     `gorm:"size:32;index:idx_index_identity"`
	Identity    string     `gorm:"size:128;index:idx_index_identity"`
	Kind        string     `gorm:"size:16"`
	Name        string     `gorm:"size:128"`
	Price       float64    `gorm:"not null"`
	LastUpdated *time.Time `gorm:"index"`
}

func (PriceRow) TableName() string {
	return "lbin_prices"
}

func Initialize(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(&PriceRow{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate price table: %w", err)
	}
	return db, nil
}

// SaveIndex replaces all the rows of the named index in a single transaction
func SaveIndex(db *gorm.DB, name string, index skyban.PriceIndex) error {
	rows := FlattenIndex(name, index)
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("index_name = ?", name).Delete(&PriceRow{}).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, batchSize).Error
	})
}

// LoadIndex rebuilds the named index, an unknown name yields an empty index
func LoadIndex(db *gorm.DB, name string) (skyban.PriceIndex, error) {
	var rows []PriceRow
	err := db.Where("index_name = ?", name).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return BuildIndex(rows)
}

// FlattenIndex returns one row per priced record of the index, sorted.
// Containers have no row of their own, they are rebuilt from their children.
func FlattenIndex(name string, index skyban.PriceIndex) []PriceRow {
	var rows []PriceRow
	for identity, record := range index {
		if record == nil {
			continue
		}
		if record.HasPrice() {
			rows = append(rows, newRow(name, identity, skyban.KindItem, "", record))
		}
		for kind, children := range map[string]map[string]*skyban.PriceRecord{
			skyban.KindLevel:     record.Levels,
			skyban.KindAttribute: record.Attributes,
			skyban.KindCombo:     record.AttributeCombos,
		} {
			for key, child := range children {
				if child == nil || !child.HasPrice() {
					continue
				}
				rows = append(rows, newRow(name, identity, kind, key, child))
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Identity != rows[j].Identity {
			return rows[i].Identity < rows[j].Identity
		}
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func newRow(name, identity, kind, key string, record *skyban.PriceRecord) PriceRow {
	row := PriceRow{
		IndexName: name,
		Identity:  identity,
		Kind:      kind,
		Name:      key,
		Price:     record.LowestPrice,
	}
	if !record.LastUpdated.IsZero() {
		ts := record.LastUpdated.UTC()
		row.LastUpdated = &ts
	}
	return row
}

// BuildIndex is the reverse of FlattenIndex
func BuildIndex(rows []PriceRow) (skyban.PriceIndex, error) {
	index := skyban.PriceIndex{}
	for _, row := range rows {
		var ts time.Time
		if row.LastUpdated != nil {
			ts = *row.LastUpdated
		}

		record := index[row.Identity]
		if record == nil {
			record = skyban.NewPriceRecord(0, time.Time{})
			index[row.Identity] = record
		}

		var children map[string]*skyban.PriceRecord
		switch row.Kind {
		case skyban.KindItem:
			record.LowestPrice = row.Price
			record.LastUpdated = ts
			continue
		case skyban.KindLevel:
			children = record.Levels
		case skyban.KindAttribute:
			children = record.Attributes
		case skyban.KindCombo:
			children = record.AttributeCombos
		default:
			return nil, fmt.Errorf("unknown row kind %q for %s", row.Kind, row.Identity)
		}
		children[row.Name] = skyban.NewPriceRecord(row.Price, ts)
	}
	return index, nil
}
