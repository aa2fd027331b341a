package postgres

import (
	"gorm.io/gorm"

	"github.com/viralforge/interaction-service/internal/ports"
)

type Repositories struct {
	Likes     ports.LikeRepository
	Bookmarks ports.BookmarkRepository
	Comments  ports.CommentRepository
	Refs      ports.ReferenceRepository
	Stats     ports.StatsRepository
	Failures  ports.FailureRepository
	Dedup     ports.EventDedupRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Likes:     &likeRepository{db: db},
		Bookmarks: &bookmarkRepository{db: db},
		Comments:  &commentRepository{db: db},
		Refs:      &referenceRepository{db: db},
		Stats:     &statsRepository{db: db},
		Failures:  &failureRepository{db: db},
		Dedup:     &eventDedupRepository{db: db},
	}
}
