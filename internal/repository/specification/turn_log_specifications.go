package specification

import "gorm.io/gorm"

type BySessionHash struct {
	SessionHash string
}

func (s BySessionHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_hash = ?", s.SessionHash)
}

type ByStage struct {
	Stage string
}

func (s ByStage) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stage = ?", s.Stage)
}

// FallbackOnly keeps turns answered with the fallback text
type FallbackOnly struct{}

func (FallbackOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("fallback = ?", true)
}
