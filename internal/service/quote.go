package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fcfmotors/marketplace/internal/mail"
	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/repo"
	"github.com/fcfmotors/marketplace/internal/roles"
)

type QuoteService struct {
	DB       *gorm.DB
	Quotes   *repo.QuoteRepo
	Products *repo.ProductRepo
	Dealers  *repo.DealerRepo
	Users    *repo.UserRepo
	Mail     *mail.Mailer
}

func NewQuoteService(db *gorm.DB, quotes *repo.QuoteRepo, products *repo.ProductRepo, dealers *repo.DealerRepo, users *repo.UserRepo, mailer *mail.Mailer) *QuoteService {
	return &QuoteService{DB: db, Quotes: quotes, Products: products, Dealers: dealers, Users: users, Mail: mailer}
}

// SendPrivateMessage opens a message thread with a private seller about one
// of their listings. The sender may be anonymous; the sender email is the
// reply address either way.
func (s *QuoteService) SendPrivateMessage(ctx context.Context, productID uint, senderID *uint, senderEmail, message string) (*models.QuoteRequest, error) {
	if senderEmail == "" || message == "" {
		return nil, fmt.Errorf("%w: sender email and message are required", ErrInvalid)
	}
	product, err := s.Products.ByID(ctx, productID)
	if err != nil {
		return nil, fromDB(err)
	}
	if product.SellerType != models.SellerTypePrivate {
		return nil, fmt.Errorf("%w: listing is not from a private seller", ErrInvalid)
	}
	seller, err := s.Users.ByID(ctx, product.SellerID)
	if err != nil {
		return nil, fromDB(err)
	}

	quote := &models.QuoteRequest{
		ProductID:      productID,
		UserID:         senderID,
		RequestType:    models.QuoteTypePrivate,
		Status:         models.QuoteStatusPending,
		UserEmail:      senderEmail,
		RecipientEmail: seller.Email,
		Message:        message,
		RequestDate:    time.Now(),
	}
	if err := s.Quotes.Create(ctx, quote); err != nil {
		return nil, err
	}

	s.Mail.PrivateMessage(ctx, seller.Email, senderEmail, productID, message)
	return quote, nil
}

// RequestDealerQuote asks a dealer for a price on one of their listings.
// Works for anonymous visitors as well as signed-in users.
func (s *QuoteService) RequestDealerQuote(ctx context.Context, productID uint, senderID *uint, senderEmail, message string) (*models.QuoteRequest, error) {
	if senderEmail == "" || message == "" {
		return nil, fmt.Errorf("%w: sender email and message are required", ErrInvalid)
	}
	product, err := s.Products.ByID(ctx, productID)
	if err != nil {
		return nil, fromDB(err)
	}
	if product.SellerType != models.SellerTypeDealer {
		return nil, fmt.Errorf("%w: listing is not from a dealer", ErrInvalid)
	}
	dealer, err := s.Dealers.ByOwner(ctx, product.SellerID)
	if err != nil {
		return nil, fromDB(err)
	}

	recipient := dealer.Email
	if recipient == "" {
		owner, err := s.Users.ByID(ctx, dealer.OwnerID)
		if err != nil {
			return nil, fromDB(err)
		}
		recipient = owner.Email
	}

	quote := &models.QuoteRequest{
		ProductID:      productID,
		UserID:         senderID,
		DealerID:       &dealer.ID,
		RequestType:    models.QuoteTypeDealer,
		Status:         models.QuoteStatusPending,
		UserEmail:      senderEmail,
		RecipientEmail: recipient,
		Message:        message,
		RequestDate:    time.Now(),
	}
	if err := s.Quotes.Create(ctx, quote); err != nil {
		return nil, err
	}

	s.Mail.QuoteReceived(ctx, recipient, senderEmail, productID, message)
	return quote, nil
}

// Respond closes a pending exchange with an answer. Either party may respond:
// the sender is matched by id, the recipient by email. A request that has
// already been answered stays as it is.
func (s *QuoteService) Respond(ctx context.Context, quoteID, callerID uint, callerEmail, response string) (*models.QuoteRequest, error) {
	if response == "" {
		return nil, fmt.Errorf("%w: response message is required", ErrInvalid)
	}

	var quote *models.QuoteRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quote, err = s.Quotes.WithTx(tx).ByID(ctx, quoteID)
		if err != nil {
			return fromDB(err)
		}

		isSender := quote.UserID != nil && *quote.UserID == callerID
		isRecipient := callerEmail != "" && quote.RecipientEmail == callerEmail
		if !isSender && !isRecipient {
			return ErrNotAuthorized
		}
		if quote.Status != models.QuoteStatusPending {
			return fmt.Errorf("%w: request has already been answered", ErrConflict)
		}

		quote.ResponseMessage = response
		quote.Status = models.QuoteStatusResponded
		return s.Quotes.WithTx(tx).Save(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	// Notify the party that did not write the response.
	to := quote.UserEmail
	if quote.UserID != nil && *quote.UserID == callerID {
		to = quote.RecipientEmail
	}
	switch quote.RequestType {
	case models.QuoteTypePrivate:
		s.Mail.PrivateMessageResponse(ctx, to, callerEmail, quote.ProductID, response)
	default:
		s.Mail.QuoteResponse(ctx, to, quote.ProductID, response)
	}
	return quote, nil
}

// MessagesForUser lists the private message threads the user appears in,
// whether as sender or as the listing's owner.
func (s *QuoteService) MessagesForUser(ctx context.Context, userID uint, email string) ([]models.QuoteRequest, error) {
	return s.Quotes.MessagesForUser(ctx, userID, email)
}

// QuotesForDealer lists the quote requests addressed to a storefront. Only
// its owner and admins may read them.
func (s *QuoteService) QuotesForDealer(ctx context.Context, dealerID, callerID uint, callerRoles roles.Set) ([]models.QuoteRequest, error) {
	dealer, err := s.Dealers.ByID(ctx, dealerID)
	if err != nil {
		return nil, fromDB(err)
	}
	if dealer.OwnerID != callerID && !callerRoles.Has(roles.Admin) {
		return nil, ErrNotAuthorized
	}
	return s.Quotes.QuotesForDealer(ctx, dealerID)
}

func (s *QuoteService) QuotesSent(ctx context.Context, userID uint) ([]models.QuoteRequest, error) {
	return s.Quotes.QuotesForSender(ctx, userID)
}

// Delete removes a quote request. Admin only; regular cleanup happens through
// the listing and dealer cascades.
func (s *QuoteService) Delete(ctx context.Context, quoteID uint) error {
	if err := s.Quotes.Delete(ctx, quoteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
