package service

import (
	"context"
	"errors"
	"strings"

	"rewardledger/internal/model"
	"rewardledger/internal/repository"

	"gorm.io/gorm"
)

var ErrEmptyHeadline = errors.New("公告内容不能为空")

type HeadlineService struct {
	headlineRepo *repository.HeadlineRepository
	db           *gorm.DB
}

func NewHeadlineService(db *gorm.DB) *HeadlineService {
	return &HeadlineService{
		headlineRepo: repository.NewHeadlineRepository(db),
		db:           db,
	}
}

func (s *HeadlineService) Latest(ctx context.Context) (*model.Headline, error) {
	headline, err := s.headlineRepo.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	if headline == nil {
		return &model.Headline{Text: ""}, nil
	}
	return headline, nil
}

func (s *HeadlineService) Set(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyHeadline
	}
	return s.headlineRepo.Create(ctx, &model.Headline{Text: text})
}

// EnsureDefault 启动时兜底：一条公告都没有就插入默认文案
func (s *HeadlineService) EnsureDefault(ctx context.Context, text string) error {
	count, err := s.headlineRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.headlineRepo.Create(ctx, &model.Headline{Text: text})
}
