package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

const (
	BankSourceLocal = "local"
	BankSourceAPI   = "api"
)

// bankUpdateBudget bounds one UpdateBankData run; remaining banks are picked up next night.
const bankUpdateBudget = 4 * time.Minute

// majorBankCodes are refreshed first so a truncated run still covers most workers.
var majorBankCodes = []string{
	"0001", "0005", "0009", "0010", "0017",
	"0033", "0034", "0035", "0036", "0038", "0039", "0040", "0041", "0042",
	"9900",
}

type BankSearchResult struct {
	Banks             []domain.Bank `json:"banks"`
	Source            string        `json:"source"`
	ShowAPISearchHint bool          `json:"showApiSearchHint"`
}

type BranchSearchResult struct {
	Branches          []domain.Branch `json:"branches"`
	Source            string          `json:"source"`
	ShowAPISearchHint bool            `json:"showApiSearchHint"`
}

type BankUpdateResult struct {
	Banks          int      `json:"banks"`
	Branches       int      `json:"branches"`
	ProcessedBanks int      `json:"processed_banks"`
	TotalBanks     int      `json:"total_banks"`
	Errors         []string `json:"errors"`
}

// BankService backs the bank account form: local table first, remote directory on request.
type BankService struct {
	repo      BankRepository
	directory BankDirectory
	clock     domain.Clock
	logger    *zap.Logger
}

func NewBankService(repo BankRepository, directory BankDirectory, clock domain.Clock, logger *zap.Logger) *BankService {
	return &BankService{repo: repo, directory: directory, clock: clock, logger: logger}
}

func (s *BankService) SearchBanks(ctx context.Context, q, source string, limit int) (*BankSearchResult, error) {
	limit = clampLimit(limit, 10, 50)
	variants := domain.SearchVariants(q)
	if len(variants) == 0 {
		return &BankSearchResult{Banks: []domain.Bank{}, Source: BankSourceLocal}, nil
	}
	if source == BankSourceAPI {
		if s.directory == nil {
			return nil, domain.ErrUnavailable
		}
		banks, err := s.directory.SearchBanks(ctx, q, limit)
		if err != nil {
			s.logger.Warn("bank directory search", zap.String("query", q), zap.Error(err))
			banks = nil
		}
		if banks == nil {
			banks = []domain.Bank{}
		}
		return &BankSearchResult{Banks: banks, Source: BankSourceAPI}, nil
	}
	banks, err := s.repo.SearchBanks(ctx, variants, limit)
	if err != nil {
		return nil, fmt.Errorf("search banks: %w", err)
	}
	if banks == nil {
		banks = []domain.Bank{}
	}
	return &BankSearchResult{Banks: banks, Source: BankSourceLocal, ShowAPISearchHint: len(banks) == 0}, nil
}

// SearchBranches lists a bank's branches. An empty query returns the first branches by code.
func (s *BankService) SearchBranches(ctx context.Context, bankCode, q, source string, limit int) (*BranchSearchResult, error) {
	if !domain.IsBankCode(bankCode) {
		return nil, domain.Validation("銀行コードが不正です")
	}
	limit = clampLimit(limit, 50, 200)
	variants := domain.SearchVariants(q)
	if source == BankSourceAPI {
		if s.directory == nil {
			return nil, domain.ErrUnavailable
		}
		branches, err := s.directory.SearchBranches(ctx, bankCode, q, limit)
		if err != nil {
			s.logger.Warn("branch directory search", zap.String("bank_code", bankCode), zap.Error(err))
			branches = nil
		}
		if branches == nil {
			branches = []domain.Branch{}
		}
		return &BranchSearchResult{Branches: branches, Source: BankSourceAPI}, nil
	}
	branches, err := s.repo.SearchBranches(ctx, bankCode, variants, limit)
	if err != nil {
		return nil, fmt.Errorf("search branches: %w", err)
	}
	if branches == nil {
		branches = []domain.Branch{}
	}
	return &BranchSearchResult{
		Branches:          branches,
		Source:            BankSourceLocal,
		ShowAPISearchHint: len(variants) > 0 && len(branches) == 0,
	}, nil
}

// UpdateBankData refreshes the local bank and branch tables from the directory.
// A failing bank is recorded and skipped.
func (s *BankService) UpdateBankData(ctx context.Context) (*BankUpdateResult, error) {
	if s.directory == nil {
		return nil, domain.ErrUnavailable
	}
	started := s.clock.Now()
	banks, err := s.directory.AllBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch banks: %w", err)
	}
	res := &BankUpdateResult{TotalBanks: len(banks), Errors: []string{}}
	if err := s.repo.UpsertBanks(ctx, banks); err != nil {
		return nil, fmt.Errorf("upsert banks: %w", err)
	}
	res.Banks = len(banks)

	for _, code := range branchRefreshOrder(banks) {
		if s.clock.Now().Sub(started) > bankUpdateBudget || ctx.Err() != nil {
			s.logger.Warn("bank update budget exhausted", zap.Int("processed", res.ProcessedBanks))
			break
		}
		branches, err := s.directory.AllBranches(ctx, code)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", code, err))
			res.ProcessedBanks++
			continue
		}
		if err := s.repo.UpsertBranches(ctx, branches); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", code, err))
		} else {
			res.Branches += len(branches)
		}
		res.ProcessedBanks++
	}
	s.logger.Info("bank data updated", zap.Int("banks", res.Banks), zap.Int("branches", res.Branches),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

// branchRefreshOrder puts the major banks first, then the rest by code.
func branchRefreshOrder(banks []domain.Bank) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(banks)+len(majorBankCodes))
	for _, c := range majorBankCodes {
		seen[c] = true
		out = append(out, c)
	}
	rest := make([]string, 0, len(banks))
	for _, b := range banks {
		if !seen[b.Code] {
			seen[b.Code] = true
			rest = append(rest, b.Code)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
