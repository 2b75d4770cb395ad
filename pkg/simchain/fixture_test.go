package simchain

import (
	"context"
	"fmt"
	"testing"

	"github.com/satoshispalace/contest-harness/pkg/contest"
	"github.com/satoshispalace/contest-harness/pkg/contract"
	"github.com/satoshispalace/contest-harness/pkg/oracle"
	"github.com/satoshispalace/contest-harness/pkg/snip20"

	"github.com/stretchr/testify/require"
)

const (
	testStartTime     = 1_000_000
	testTimeOfClose   = 1_000_100
	testTimeOfResolve = 1_000_200
)

var (
	testTokenWasm   = []byte("\x00asm token")
	testContestWasm = []byte("\x00asm contest")
)

type fixture struct {
	chain   *Chain
	admin   string
	token   *snip20.Client
	contest *contest.Client
	signer  *oracle.Signer
}

type account struct {
	addr    string
	token   *snip20.Client
	contest *contest.Client
	key     string
}

func sequentialLabels() contract.LabelFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("test_contract_%d", n)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	c := New(WithBlockTime(testStartTime))
	_, err := c.BindByName(testTokenWasm, ProgramSnip20)
	require.NoError(t, err)
	_, err = c.BindByName(testContestWasm, ProgramContest)
	require.NoError(t, err)

	signer, err := oracle.GenerateSigner()
	require.NoError(t, err)

	admin := c.NewAccount()
	client := c.As(admin)
	labels := contract.WithLabel(sequentialLabels())

	th := contract.New(client, testTokenWasm, labels)
	require.NoError(t, th.Deploy(ctx))
	require.NoError(t, th.Instantiate(ctx, snip20.NewInitMsg("USDC", "USDC", 18, "seed")))

	ch := contract.New(client, testContestWasm, labels)
	require.NoError(t, ch.Deploy(ctx))
	require.NoError(t, ch.Instantiate(ctx, contest.InitMsg{OracleContract: "ABCDEFGH", SatoshisPalace: signer.PublicKeyHex()}))

	token, err := snip20.New(th)
	require.NoError(t, err)
	ct, err := contest.New(ch)
	require.NoError(t, err)

	tokenAddr, tokenHash, err := th.Ref()
	require.NoError(t, err)
	_, err = ct.Register(ctx, tokenAddr, tokenHash)
	require.NoError(t, err)

	return &fixture{chain: c, admin: admin, token: token, contest: ct, signer: signer}
}

// account creates a funded user with a viewing key and its own clients.
func (f *fixture) account(t *testing.T, funds string) *account {
	t.Helper()
	ctx := context.Background()

	addr := f.chain.NewAccount()
	client := f.chain.As(addr)

	tokenAddr, tokenHash, err := f.token.Handle().Ref()
	require.NoError(t, err)
	contestAddr, contestHash, err := f.contest.Handle().Ref()
	require.NoError(t, err)

	token, err := snip20.New(contract.Attach(client, tokenAddr, tokenHash))
	require.NoError(t, err)
	ct, err := contest.New(contract.Attach(client, contestAddr, contestHash))
	require.NoError(t, err)

	_, err = f.token.Mint(ctx, addr, funds)
	require.NoError(t, err)

	key, err := snip20.NewViewingKey()
	require.NoError(t, err)
	require.NoError(t, token.SetViewingKey(ctx, key))

	return &account{addr: addr, token: token, contest: ct, key: key}
}

func (a *account) balance(t *testing.T) string {
	t.Helper()
	b, err := a.token.Balance(context.Background(), a.addr, a.key)
	require.NoError(t, err)
	return b
}

func testContestInfo() contest.ContestInfo {
	return contest.ContestInfo{
		ID: 1,
		Options: []contest.ContestOutcome{
			{ID: 0, Name: "Arizona Cardinals"},
			{ID: 1, Name: "Atlanta Falcons"},
		},
		TimeOfClose:   testTimeOfClose,
		TimeOfResolve: testTimeOfResolve,
		EventDetails:  "NFL game 1",
	}
}

func (f *fixture) create(a *account, info contest.ContestInfo, outcome uint8, amount string) error {
	ctx := context.Background()
	sig, err := f.signer.Sign(info)
	if err != nil {
		return err
	}
	payload, err := a.contest.GetContestCreationPayload(ctx, info, sig, outcome)
	if err != nil {
		return err
	}
	_, err = a.token.Send(ctx, payload.Recipient, payload.RecipientCodeHash, amount, payload.Msg)
	return err
}

func (f *fixture) bet(a *account, contestID uint32, outcome uint8, amount string) error {
	ctx := context.Background()
	payload, err := a.contest.GetBetPayload(ctx, contestID, outcome)
	if err != nil {
		return err
	}
	_, err = a.token.Send(ctx, payload.Recipient, payload.RecipientCodeHash, amount, payload.Msg)
	return err
}

func (f *fixture) resolve(t *testing.T, contestID uint32, outcome uint8) {
	t.Helper()
	addr, err := f.contest.Handle().Address()
	require.NoError(t, err)
	require.NoError(t, f.chain.ResolveContest(context.Background(), addr, contestID, outcome))
}
