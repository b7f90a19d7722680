package database

import "bolify/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Blog{},
		&models.Comment{},
		&models.BlogLike{},
		&models.BlogView{},
	}
}
