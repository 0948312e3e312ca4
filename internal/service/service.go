// Package service handles business logic on top of the gateway: user
// registration and login, record writes, and orchestration of provider
// sync flows.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finwell/finance-gateway/internal/config"
	"github.com/finwell/finance-gateway/internal/gateway"
	"github.com/finwell/finance-gateway/internal/importer"
	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/provider"
	"github.com/finwell/finance-gateway/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	gw     *gateway.Gateway
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service
func NewService(repo *repository.Repository, gw *gateway.Gateway, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{repo: repo, gw: gw, log: log, config: cfg}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, &gateway.ValidationError{Violations: []string{"password must be at least 8 characters"}}
	}

	userID := uuid.NewString()
	in := &models.UserInput{UserID: userID, Email: email, Name: name}
	canonical, err := s.gw.ValidateAndSanitize(ctx, in, gateway.EntityUser, userID)
	if err != nil {
		return nil, err
	}
	user := canonical.(*models.User)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	// Generate JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.UserID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// CreateTransaction validates, sanitizes and persists a transaction for
// the acting user.
func (s *Service) CreateTransaction(ctx context.Context, actorID string, in *models.TransactionInput) (*models.Transaction, error) {
	canonical, err := s.gw.ValidateAndSanitize(ctx, in, gateway.EntityTransaction, actorID)
	if err != nil {
		return nil, err
	}
	tx := canonical.(*models.Transaction)
	tx.ID = uuid.NewString()

	if err := s.repo.CreateTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CreateAccount validates, sanitizes and persists an account for the
// acting user.
func (s *Service) CreateAccount(ctx context.Context, actorID string, in *models.AccountInput) (*models.Account, error) {
	canonical, err := s.gw.ValidateAndSanitize(ctx, in, gateway.EntityAccount, actorID)
	if err != nil {
		return nil, err
	}
	account := canonical.(*models.Account)
	account.ID = uuid.NewString()

	if err := s.repo.CreateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// CreateLinkToken starts the account linking flow.
func (s *Service) CreateLinkToken(ctx context.Context, actorID string) (*models.LinkTokenResponse, error) {
	return s.gw.CreateLinkToken(ctx, actorID, s.config.ClientName)
}

// ExchangePublicToken completes the linking flow and persists the item.
func (s *Service) ExchangePublicToken(ctx context.Context, actorID, publicToken string) (*models.Item, error) {
	resp, err := s.gw.ExchangePublicToken(ctx, actorID, publicToken)
	if err != nil {
		return nil, err
	}

	item := &models.Item{
		ItemID:      resp.ItemID,
		UserID:      actorID,
		AccessToken: resp.AccessToken,
		Status:      "good",
	}
	if err := s.repo.UpsertItem(item); err != nil {
		return nil, err
	}

	s.log.Infof("Item linked for user %s: %s", actorID, item.ItemID)
	return item, nil
}

// Accounts fetches the provider accounts for a linked item.
func (s *Service) Accounts(ctx context.Context, actorID, itemID string) (*models.AccountsResponse, error) {
	item, err := s.repo.FindItem(itemID, actorID)
	if err != nil {
		return nil, err
	}
	return s.gw.GetAccounts(ctx, actorID, item)
}

// Balances fetches real-time balances for a linked item.
func (s *Service) Balances(ctx context.Context, actorID, itemID string) (*models.AccountsResponse, error) {
	item, err := s.repo.FindItem(itemID, actorID)
	if err != nil {
		return nil, err
	}
	return s.gw.GetBalances(ctx, actorID, item)
}

// Institution fetches institution metadata.
func (s *Service) Institution(ctx context.Context, actorID, institutionID string) (*models.Institution, error) {
	return s.gw.GetInstitution(ctx, actorID, institutionID)
}

// RemoveItem unlinks an item at the provider and forgets it locally.
func (s *Service) RemoveItem(ctx context.Context, actorID, itemID string) error {
	item, err := s.repo.FindItem(itemID, actorID)
	if err != nil {
		return err
	}
	if _, err := s.gw.RemoveItem(ctx, actorID, item); err != nil {
		return err
	}
	return s.repo.DeleteItem(itemID, actorID)
}

// ItemStatus fetches connection health for a linked item and records it.
func (s *Service) ItemStatus(ctx context.Context, actorID, itemID string) (*models.ItemStatusResponse, error) {
	item, err := s.repo.FindItem(itemID, actorID)
	if err != nil {
		return nil, err
	}
	resp, err := s.gw.GetItemStatus(ctx, actorID, item)
	if err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != item.Status {
		item.Status = resp.Status
		if err := s.repo.UpsertItem(item); err != nil {
			s.log.WithError(err).Warn("failed to record item status")
		}
	}
	return resp, nil
}

// SyncReport summarizes one transactions sync run.
type SyncReport struct {
	Fetched  int `json:"fetched"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// SyncTransactions pages through the provider's transactions for a linked
// item over [startDate, endDate] and upserts every record that passes the
// integrity pipeline. Records that fail validation are counted and
// skipped, never partially applied.
func (s *Service) SyncTransactions(ctx context.Context, actorID, itemID, startDate, endDate string) (*SyncReport, error) {
	item, err := s.repo.FindItem(itemID, actorID)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	offset := 0
	for {
		page, err := s.gw.GetTransactions(ctx, actorID, item, startDate, endDate, provider.TransactionsOptions{
			Count:  provider.MaxTransactionsPerPage,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		if len(page.Transactions) == 0 {
			break
		}

		for _, pt := range page.Transactions {
			report.Fetched++
			in := providerTransactionInput(actorID, pt)
			canonical, err := s.gw.ValidateAndSanitize(ctx, in, gateway.EntityTransaction, actorID)
			if err != nil {
				report.Rejected++
				s.log.WithError(err).WithField("transaction_id", pt.TransactionID).Warn("synced transaction rejected")
				continue
			}
			tx := canonical.(*models.Transaction)
			tx.ID = pt.TransactionID
			if err := s.repo.UpsertTransaction(tx); err != nil {
				return nil, err
			}
			report.Accepted++
		}

		offset += len(page.Transactions)
		if offset >= page.TotalTransactions {
			break
		}
	}

	s.log.Infof("Synced %d transactions for item %s (%d rejected)", report.Accepted, itemID, report.Rejected)
	return report, nil
}

// providerTransactionInput maps a provider transaction onto the gateway's
// input shape. The provider reports outflows as positive amounts; the
// canonical convention is the opposite, so the sign flips.
func providerTransactionInput(actorID string, pt models.ProviderTransaction) *models.TransactionInput {
	category := ""
	if len(pt.Category) > 0 {
		category = pt.Category[len(pt.Category)-1]
	}
	return &models.TransactionInput{
		UserID:      actorID,
		Amount:      -pt.Amount,
		Description: pt.Name,
		Category:    category,
		Date:        pt.Date,
	}
}

// ImportReport summarizes one statement import.
type ImportReport struct {
	Total    int      `json:"total"`
	Accepted int      `json:"accepted"`
	Rejected []string `json:"rejected,omitempty"`
}

// ImportStatement parses an uploaded XML bank statement and persists every
// entry that passes the integrity pipeline. Rejected entries are reported
// back with their violation messages.
func (s *Service) ImportStatement(ctx context.Context, actorID string, statement []byte) (*ImportReport, error) {
	entries, err := importer.ParseStatement(statement)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Total: len(entries)}
	for i, in := range entries {
		in.UserID = actorID
		canonical, err := s.gw.ValidateAndSanitize(ctx, in, gateway.EntityTransaction, actorID)
		if err != nil {
			report.Rejected = append(report.Rejected, fmt.Sprintf("entry %d: %v", i+1, err))
			continue
		}
		tx := canonical.(*models.Transaction)
		tx.ID = uuid.NewString()
		if err := s.repo.CreateTransaction(tx); err != nil {
			return nil, err
		}
		report.Accepted++
	}

	s.log.Infof("Imported %d of %d statement entries for user %s", report.Accepted, report.Total, actorID)
	return report, nil
}
