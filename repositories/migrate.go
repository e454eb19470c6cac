package repositories

import (
	"gorm.io/gorm"

	"poker-tournament-system/models"
)

// AutoMigrate creates or updates every table the runtime uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.League{},
		&models.PrizeTable{},
		&models.PrizeTableEntry{},
		&models.Tournament{},
		&models.BlindLevel{},
		&models.Participation{},
		&models.JackpotContribution{},
		&models.Expense{},
		&models.ExpenseShare{},
		&models.Payment{},
	)
}
