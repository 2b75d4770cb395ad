package contest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/contract"
)

// stubChain answers queries with a fixed body and records the last request
type stubChain struct {
	queryAnswer json.RawMessage
	lastQuery   json.RawMessage
	lastExecute json.RawMessage
}

func (s *stubChain) StoreCode(context.Context, []byte, uint64) (*chain.TxResponse, error) {
	return nil, errors.New("not supported")
}

func (s *stubChain) CodeHashByCodeID(context.Context, string) (string, error) {
	return "", errors.New("not supported")
}

func (s *stubChain) InstantiateContract(context.Context, chain.InstantiateRequest) (*chain.TxResponse, error) {
	return nil, errors.New("not supported")
}

func (s *stubChain) ExecuteContract(_ context.Context, req chain.ExecuteRequest) (*chain.TxResponse, error) {
	s.lastExecute = req.Msg
	return &chain.TxResponse{TxHash: "TX"}, nil
}

func (s *stubChain) QueryContract(_ context.Context, req chain.QueryRequest) (json.RawMessage, error) {
	s.lastQuery = req.Query
	return s.queryAnswer, nil
}

func newTestClient(t *testing.T, answer string) (*Client, *stubChain) {
	t.Helper()
	stub := &stubChain{queryAnswer: json.RawMessage(answer)}
	c, err := New(contract.Attach(stub, "secret1contest", "contesthash"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c, stub
}

func sampleInfo() ContestInfo {
	return ContestInfo{
		ID: 1,
		Options: []ContestOutcome{
			{ID: 0, Name: "Arizona Cardinals"},
			{ID: 1, Name: "Atlanta Falcons"},
		},
		TimeOfClose:   1384759,
		TimeOfResolve: 1385509,
		EventDetails:  "NFL game 1",
	}
}

func TestContestInfo_SignedJSON(t *testing.T) {
	got, err := sampleInfo().SignedJSON()
	if err != nil {
		t.Fatalf("SignedJSON() failed: %v", err)
	}
	want := `{"id":1,"options":[{"id":0,"name":"Arizona Cardinals"},{"id":1,"name":"Atlanta Falcons"}],"time_of_close":1384759,"time_of_resolve":1385509,"event_details":"NFL game 1"}`
	if string(got) != want {
		t.Errorf("SignedJSON() = %s\nwant %s", got, want)
	}

	info := sampleInfo()
	info.EventDetails = `Home <> Away & "friends"`
	got, err = info.SignedJSON()
	if err != nil {
		t.Fatalf("SignedJSON() failed: %v", err)
	}
	if want := `"event_details":"Home <> Away & "friends""`; !strings.Contains(string(got), want) {
		t.Errorf("SignedJSON() = %s, want it to contain %s", got, want)
	}
}

func TestContestInfo_Validate(t *testing.T) {
	if err := sampleInfo().Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	one := sampleInfo()
	one.Options = one.Options[:1]
	if err := one.Validate(); err == nil {
		t.Error("Validate() should reject a single option")
	}

	dup := sampleInfo()
	dup.Options[1].ID = 0
	if err := dup.Validate(); err == nil {
		t.Error("Validate() should reject duplicate options")
	}

	times := sampleInfo()
	times.TimeOfResolve = times.TimeOfClose - 1
	if err := times.Validate(); err == nil {
		t.Error("Validate() should reject resolve before close")
	}
}

func TestGetContestCreationPayload(t *testing.T) {
	answer := `{"send":{"recipient":"secret1contest","recipient_code_hash":"contesthash","amount":"1","msg":"eyJjcmVhdGVfY29udGVzdCI6e319","padding":null}}`
	c, stub := newTestClient(t, answer)

	payload, err := c.GetContestCreationPayload(context.Background(), sampleInfo(), "bb8e", 0)
	if err != nil {
		t.Fatalf("GetContestCreationPayload() failed: %v", err)
	}
	if payload.Msg != "eyJjcmVhdGVfY29udGVzdCI6e319" {
		t.Errorf("Msg = %q, should be the contract's value unchanged", payload.Msg)
	}
	if payload.Recipient != "secret1contest" || payload.Amount != "1" {
		t.Errorf("unexpected payload: %+v", payload)
	}

	var q QueryMsg
	if err := json.Unmarshal(stub.lastQuery, &q); err != nil {
		t.Fatal(err)
	}
	if q.GetContestCreationMsgBinary == nil || q.GetContestCreationMsgBinary.ContestInfoSignatureHex != "bb8e" {
		t.Errorf("unexpected query: %s", stub.lastQuery)
	}
}

func TestGetBetPayload_MissingMsg(t *testing.T) {
	c, stub := newTestClient(t, `{"send":{"recipient":"secret1contest","amount":"1","msg":""}}`)

	_, err := c.GetBetPayload(context.Background(), 1, 0)
	if !errors.Is(err, contract.ErrEncoding) {
		t.Fatalf("GetBetPayload() error = %v, want ErrEncoding", err)
	}
	if string(stub.lastQuery) != `{"get_bet_contest_msg_binary":{"contest_id":1,"outcome_id":0}}` {
		t.Errorf("unexpected query: %s", stub.lastQuery)
	}
}

func TestGetContest(t *testing.T) {
	answer := `{
		"contest_info": {"id":1,"options":[{"id":0,"name":"A"},{"id":1,"name":"B"}],"time_of_close":10,"time_of_resolve":20,"event_details":"x"},
		"contest_bet_summary": {"contest_id":1,"options":[{"option":{"id":0,"name":"A"},"bet_allocation":"2000"},{"option":{"id":1,"name":"B"},"bet_allocation":"0"}]}
	}`
	c, _ := newTestClient(t, answer)

	resp, err := c.GetContest(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetContest() failed: %v", err)
	}
	if resp.ContestInfo.ID != 1 || len(resp.ContestBetSummary.Options) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ContestBetSummary.Options[0].BetAllocation != "2000" {
		t.Errorf("allocation = %q, want 2000", resp.ContestBetSummary.Options[0].BetAllocation)
	}
	if resp.ContestBetSummary.Outcome != nil {
		t.Error("outcome should be unset before resolution")
	}
}

func TestListRegisteredTokensAndUserBet(t *testing.T) {
	c, stub := newTestClient(t, `{"snip20s":[{"address":"secret1token","code_hash":"abc"}]}`)
	tokens, err := c.ListRegisteredTokens(context.Background())
	if err != nil {
		t.Fatalf("ListRegisteredTokens() failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Address != "secret1token" {
		t.Errorf("unexpected tokens: %+v", tokens)
	}
	if string(stub.lastQuery) != `{"get_snip20s":{}}` {
		t.Errorf("unexpected query: %s", stub.lastQuery)
	}

	stub.queryAnswer = json.RawMessage(`{"bet":{"amount":"2000","outcome_id":0,"has_been_paid":false}}`)
	bet, err := c.GetUserBet(context.Background(), "secret1wallet", 1, "vk")
	if err != nil {
		t.Fatalf("GetUserBet() failed: %v", err)
	}
	if bet.Amount != "2000" || bet.HasBeenPaid {
		t.Errorf("unexpected bet: %+v", bet)
	}
	want := `{"get_user_bet":{"user_contest":{"address":"secret1wallet","contest_id":1},"key":"vk"}}`
	if string(stub.lastQuery) != want {
		t.Errorf("query = %s, want %s", stub.lastQuery, want)
	}
}

func TestRegisterAndClaimMessages(t *testing.T) {
	c, stub := newTestClient(t, `{}`)

	if _, err := c.Register(context.Background(), "secret1token", "abc"); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if string(stub.lastExecute) != `{"register":{"reg_addr":"secret1token","reg_hash":"abc"}}` {
		t.Errorf("unexpected register msg: %s", stub.lastExecute)
	}

	if _, err := c.ClaimReward(context.Background(), 1); err != nil {
		t.Fatalf("ClaimReward() failed: %v", err)
	}
	if string(stub.lastExecute) != `{"claim":{"contest_id":1}}` {
		t.Errorf("unexpected claim msg: %s", stub.lastExecute)
	}
}

func TestStage_Advance(t *testing.T) {
	s := StageUnregistered
	for _, next := range []Stage{StageTokenRegistered, StageContestCreated, StageBetPlaced, StageResolved, StageClaimed} {
		var err error
		s, err = s.Advance(next)
		if err != nil {
			t.Fatalf("Advance(%s) failed: %v", next, err)
		}
	}
	if s != StageClaimed {
		t.Errorf("stage = %s, want claimed", s)
	}
	if _, err := StageTokenRegistered.Advance(StageBetPlaced); err == nil {
		t.Error("Advance() should reject skipping a stage")
	}
	if _, err := StageBetPlaced.Advance(StageClaimed); err == nil {
		t.Error("Advance() should reject claiming before resolution")
	}
	if _, err := StageClaimed.Advance(StageClaimed); err == nil {
		t.Error("Advance() should reject repeating a stage")
	}
}
