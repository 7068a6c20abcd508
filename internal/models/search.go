package models

import (
	"strings"

	"gorm.io/gorm"
)

// Fold is the case folding applied to searchable text on every backend.
// SQL stores persist folded copies so matching never depends on the
// database's LOWER or locale.
func Fold(s string) string {
	return strings.ToLower(s)
}

// BeforeSave keeps the folded name in step with Name.
func (c *Community) BeforeSave(_ *gorm.DB) error {
	c.NameFold = Fold(c.Name)
	return nil
}

// BeforeSave keeps the folded title and content in step with the originals.
func (p *Post) BeforeSave(_ *gorm.DB) error {
	p.TitleFold = Fold(p.Title)
	p.ContentFold = Fold(p.Content)
	return nil
}
