package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей платформы.
// Встроенные роли создаются сразу после схемы.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Role{},
		&UserRole{},
		&Client{},
		&Provider{},
		&AvailabilityWindow{},
		&ServiceTier{},
		&Project{},
		&Booking{},
		&Payment{},
		&Rating{},
		&ResourceCategory{},
		&Resource{},
		&ResourceAccess{},
		&ResourceRating{},
		&Event{},
	)
	if err != nil {
		return err
	}
	return seedRoles(db)
}
