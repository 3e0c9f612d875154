package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core/ranking"
)

type promotionRepository struct {
	db *DB
}

var _ ranking.Repository = (*promotionRepository)(nil)

func NewPromotionRepository(db *DB) ranking.Repository {
	return &promotionRepository{db: db}
}

func (repo *promotionRepository) GetPromotionByID(ctx context.Context, id string) (ranking.PromotionRecord, error) {
	defer repo.db.rlock(ctx)()

	if rec, ok := repo.db.t.promotions[id]; ok {
		return rec, nil
	}
	return ranking.PromotionRecord{}, ranking.ErrNotFound
}

func (repo *promotionRepository) FilterPromotions(ctx context.Context, classID, sessionID string) ([]ranking.PromotionRecord, error) {
	defer repo.db.rlock(ctx)()

	records := make([]ranking.PromotionRecord, 0)
	for _, rec := range repo.db.t.promotions {
		if (classID == "" || rec.FromClassID == classID) && (sessionID == "" || rec.SessionID == sessionID) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (repo *promotionRepository) CreatePromotion(ctx context.Context, rec ranking.PromotionRecord) (ranking.PromotionRecord, error) {
	defer repo.db.lock(ctx)()

	repo.db.t.promotions[rec.ID] = rec
	return rec, nil
}

func (repo *promotionRepository) DeletePromotion(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.promotions[id]; !ok {
		return ranking.ErrNotFound
	}
	delete(repo.db.t.promotions, id)
	return nil
}

func (repo *promotionRepository) UpdatePromotion(ctx context.Context, rec ranking.PromotionRecord) (ranking.PromotionRecord, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.promotions[rec.ID]; !ok {
		return ranking.PromotionRecord{}, ranking.ErrNotFound
	}
	repo.db.t.promotions[rec.ID] = rec
	return rec, nil
}
