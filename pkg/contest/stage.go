package contest

import "fmt"

// Stage is how far a contest has progressed within one harness run.
type Stage int

const (
	StageUnregistered Stage = iota
	StageTokenRegistered
	StageContestCreated
	StageBetPlaced
	StageResolved
	StageClaimed
)

var stageNames = map[Stage]string{
	StageUnregistered:    "unregistered",
	StageTokenRegistered: "token_registered",
	StageContestCreated:  "contest_created",
	StageBetPlaced:       "bet_placed",
	StageResolved:        "resolved",
	StageClaimed:         "claimed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Advance moves to the next stage. Stages cannot be skipped or repeated.
func (s Stage) Advance(to Stage) (Stage, error) {
	if to != s+1 {
		return s, fmt.Errorf("invalid stage transition %s -> %s", s, to)
	}
	return to, nil
}
