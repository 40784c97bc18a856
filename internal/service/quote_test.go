package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcfmotors/marketplace/internal/models"
	"github.com/fcfmotors/marketplace/internal/roles"
	"github.com/fcfmotors/marketplace/internal/service"
)

func TestPrivateMessageOnlyForPrivateListings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "bob")
	env.createDealer(t, owner)

	product, err := env.catalog.Add(ctx, owner.ID, carForm("Corolla", 9000))
	require.NoError(t, err)

	_, err = env.quoteSvc.SendPrivateMessage(ctx, product.ID, nil, "buyer@example.com", "hello")
	require.ErrorIs(t, err, service.ErrInvalid)

	// And dealer quotes only for dealer listings.
	private := env.createUser(t, "carol")
	listing, err := env.catalog.Add(ctx, private.ID, carForm("Camry", 7000))
	require.NoError(t, err)
	_, err = env.quoteSvc.RequestDealerQuote(ctx, listing.ID, nil, "buyer@example.com", "hello")
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestPrivateMessageFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.createUser(t, "alice")
	buyer := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)

	msg, err := env.quoteSvc.SendPrivateMessage(ctx, product.ID, &buyer.ID, buyer.Email, "still available?")
	require.NoError(t, err)
	require.Equal(t, models.QuoteStatusPending, msg.Status)
	require.Equal(t, seller.Email, msg.RecipientEmail)
	require.True(t, env.events.hasKind("private_message"))

	// The seller responds; status flips exactly once.
	answered, err := env.quoteSvc.Respond(ctx, msg.ID, seller.ID, seller.Email, "yes, come see it")
	require.NoError(t, err)
	require.Equal(t, models.QuoteStatusResponded, answered.Status)
	require.Equal(t, "yes, come see it", answered.ResponseMessage)
	require.True(t, env.events.hasKind("private_message_response"))

	_, err = env.quoteSvc.Respond(ctx, msg.ID, seller.ID, seller.Email, "again")
	require.ErrorIs(t, err, service.ErrConflict)
}

func TestRespondAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.createUser(t, "alice")
	buyer := env.createUser(t, "bob")
	stranger := env.createUser(t, "mallory")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	msg, err := env.quoteSvc.SendPrivateMessage(ctx, product.ID, &buyer.ID, buyer.Email, "still available?")
	require.NoError(t, err)

	_, err = env.quoteSvc.Respond(ctx, msg.ID, stranger.ID, stranger.Email, "mine now")
	require.ErrorIs(t, err, service.ErrNotAuthorized)

	// The sender may also respond, matched by id.
	_, err = env.quoteSvc.Respond(ctx, msg.ID, buyer.ID, buyer.Email, "never mind")
	require.NoError(t, err)
}

func TestMessagesForUserMatchesBothSides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.createUser(t, "alice")
	buyer := env.createUser(t, "bob")

	product, err := env.catalog.Add(ctx, seller.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	_, err = env.quoteSvc.SendPrivateMessage(ctx, product.ID, &buyer.ID, buyer.Email, "still available?")
	require.NoError(t, err)

	// Sender sees it by id; the seller never sent anything but is matched
	// as recipient by email.
	sent, err := env.quoteSvc.MessagesForUser(ctx, buyer.ID, buyer.Email)
	require.NoError(t, err)
	require.Len(t, sent, 1)

	received, err := env.quoteSvc.MessagesForUser(ctx, seller.ID, seller.Email)
	require.NoError(t, err)
	require.Len(t, received, 1)
}

func TestAnonymousDealerQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "bob")
	dealer := env.createDealer(t, owner)

	product, err := env.catalog.Add(ctx, owner.ID, carForm("Corolla", 9000))
	require.NoError(t, err)

	quote, err := env.quoteSvc.RequestDealerQuote(ctx, product.ID, nil, "visitor@example.com", "best price?")
	require.NoError(t, err)
	require.Nil(t, quote.UserID)
	require.Equal(t, &dealer.ID, quote.DealerID)
	require.Equal(t, models.QuoteStatusPending, quote.Status)
	require.True(t, env.events.hasKind("quote_received"))
}

func TestQuotesForDealerAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "bob")
	other := env.createUser(t, "mallory")
	dealer := env.createDealer(t, owner)

	product, err := env.catalog.Add(ctx, owner.ID, carForm("Corolla", 9000))
	require.NoError(t, err)
	_, err = env.quoteSvc.RequestDealerQuote(ctx, product.ID, nil, "visitor@example.com", "best price?")
	require.NoError(t, err)

	_, err = env.quoteSvc.QuotesForDealer(ctx, dealer.ID, other.ID, roles.Parse("USER"))
	require.ErrorIs(t, err, service.ErrNotAuthorized)

	quotes, err := env.quoteSvc.QuotesForDealer(ctx, dealer.ID, owner.ID, roles.Parse("DEALER"))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
}
