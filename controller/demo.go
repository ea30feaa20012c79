package controller

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part and StockItem make up the demo inventory schema served by the
// reference backend. Quantities are decimals: fractional stock (meters of
// cable, kilograms of solder) must not round.
type Part struct {
	PK          int64  `gorm:"primaryKey;autoIncrement;column:pk" json:"pk"`
	Name        string `gorm:"not null" json:"name"`
	IPN         string `gorm:"column:ipn" json:"ipn"`
	Description string `json:"description"`
	Active      bool   `gorm:"not null;default:true" json:"active"`
}

type StockItem struct {
	PK       int64           `gorm:"primaryKey;autoIncrement;column:pk" json:"pk"`
	Part     int64           `gorm:"not null;default:0" json:"part"`
	Status   string          `gorm:"not null;default:''" json:"status"`
	Quantity decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	Location string          `json:"location"`
	Updated  time.Time       `gorm:"autoUpdateTime" json:"updated"`
}

// MigrateDemo creates the demo inventory tables plus the audit table.
func MigrateDemo(db *gorm.DB) error {
	return db.AutoMigrate(&Part{}, &StockItem{}, &ChangeRecord{})
}

// SeedDemo fills the demo tables when they are empty.
func SeedDemo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Part{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	parts := []Part{
		{Name: "M3x8 Bolt", IPN: "FAST-001", Description: "Hex socket bolt, stainless", Active: true},
		{Name: "M3 Nut", IPN: "FAST-002", Description: "Hex nut, stainless", Active: true},
		{Name: "Hookup Wire", IPN: "ELEC-010", Description: "24 AWG, sold per meter", Active: true},
		{Name: "Legacy Bracket", IPN: "MECH-099", Description: "Superseded by MECH-100", Active: false},
	}
	if err := db.Create(&parts).Error; err != nil {
		return err
	}

	items := []StockItem{
		{Part: parts[0].PK, Status: "10", Quantity: decimal.NewFromInt(250), Location: "A1"},
		{Part: parts[0].PK, Status: "60", Quantity: decimal.NewFromInt(12), Location: "A2"},
		{Part: parts[1].PK, Status: "10", Quantity: decimal.NewFromInt(500), Location: "A1"},
		{Part: parts[2].PK, Status: "10", Quantity: decimal.RequireFromString("42.5"), Location: "B3"},
		{Part: parts[3].PK, Status: "70", Quantity: decimal.NewFromInt(3), Location: "QUARANTINE"},
	}
	return db.Create(&items).Error
}

// DemoTables lists the tables a demo controller should expose.
func DemoTables() []string {
	return []string{"parts", "stock_items", "change_records"}
}
