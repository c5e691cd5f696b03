package service

import (
	"context"
	"errors"

	"rewardledger/internal/model"
	"rewardledger/internal/repository"

	"gorm.io/gorm"
)

type AccountService struct {
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	db              *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		db:              db,
	}
}

// GetAccount 查询账户面板数据
// 账户不存在时返回零值投影（余额0、计数0），不算错误
func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return &model.Account{UserID: userID}, nil
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *AccountService) ListAll(ctx context.Context) ([]*model.Account, error) {
	return s.accountRepo.ListAll(ctx)
}

func (s *AccountService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}
