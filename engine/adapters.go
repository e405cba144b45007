package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/ledger"
	"github.com/cmtlabs/libcmt-go/oracle"
	"github.com/cmtlabs/libcmt-go/reward"
	"github.com/cmtlabs/libcmt-go/token"
)

// daoPool pays claims out of the DAO pool account through the transfer
// hook.
type daoPool struct {
	addr  common.Address
	book  *ledger.Book
	token *token.Token
}

var _ reward.RewardPool = (*daoPool)(nil)

func (p *daoPool) Withdraw(recipient common.Address, amount *uint256.Int) error {
	if bal := p.book.Balance(p.addr); bal.Lt(amount) {
		return fmt.Errorf("%w: has %s, needs %s", reward.ErrInsufficientPoolBalance, bal.Dec(), amount.Dec())
	}
	_, err := p.token.Transfer(p.addr, p.addr, recipient, amount)
	return err
}

// router sells tokens into the pair the way a swap router does: the seller
// transfers to the pair through the hook, then the pair swaps what arrived.
type router struct {
	pair  *oracle.ConstantProduct
	token *token.Token
	at    common.Address
}

// sell moves amount from seller to the pair and returns the receipt and the
// quote currency paid out.
func (r *router) sell(seller common.Address, amount *uint256.Int) (*token.Receipt, *uint256.Int, error) {
	rc, err := r.token.Transfer(seller, seller, r.at, amount)
	if err != nil {
		return nil, nil, err
	}
	out, err := r.pair.Swap(rc.Net, r.pair.Token(), r.pair.QuoteToken())
	if err != nil {
		return nil, nil, err
	}
	return rc, out, nil
}

// buy pays quoteIn into the pair and moves the tokens out to buyer. The
// hook sees pre-trade reserves.
func (r *router) buy(buyer common.Address, quoteIn *uint256.Int) (*token.Receipt, error) {
	tokenReserve, quoteReserve, err := r.pair.Reserves()
	if err != nil {
		return nil, err
	}
	out, err := oracle.GetAmountOut(quoteIn, quoteReserve, tokenReserve, r.pair.FeeBasisPoints())
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, oracle.ErrInsufficientOutputAmount
	}
	rc, err := r.token.Transfer(r.at, r.at, buyer, out)
	if err != nil {
		return nil, err
	}
	if _, err := r.pair.Swap(quoteIn, r.pair.QuoteToken(), r.pair.Token()); err != nil {
		return nil, err
	}
	return rc, nil
}

// claimSwapper sells withheld rewards from the DAO pool.
type claimSwapper struct {
	router *router
	from   common.Address
}

var _ reward.Swapper = (*claimSwapper)(nil)

func (s *claimSwapper) Swap(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	p := s.router.pair
	if tokenIn != p.Token() || tokenOut != p.QuoteToken() {
		return nil, fmt.Errorf("%w: %s -> %s", oracle.ErrUnknownToken, tokenIn, tokenOut)
	}
	_, out, err := s.router.sell(s.from, amountIn)
	return out, err
}
