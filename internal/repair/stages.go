package repair

import (
	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/types"
)

// stageEvaluations enforces the canonical stage list. A list of the wrong length is
// discarded in favor of defaults; otherwise each entry keeps its valid handled, score and
// note values and takes the canonical label for its position.
func stageEvaluations(raw any) []types.StageEvaluation {
	list, _ := raw.([]any)
	out := make([]types.StageEvaluation, len(contract.Stages))
	if len(list) != len(contract.Stages) {
		for i, stage := range contract.Stages {
			out[i] = defaultStageEvaluation(stage)
		}
		return out
	}

	for i, stage := range contract.Stages {
		m, ok := list[i].(map[string]any)
		if !ok {
			out[i] = defaultStageEvaluation(stage)
			continue
		}
		out[i] = types.StageEvaluation{
			Stage:   stage,
			Handled: enumAt(contract.StageEvalField+".handled", m["handled"]),
			Score:   numberAt(contract.StageEvalField+".score", m["score"]),
			Note:    text(m["note"], notAssessed),
		}
	}
	return out
}

func defaultStageEvaluation(stage string) types.StageEvaluation {
	return types.StageEvaluation{
		Stage:   stage,
		Handled: report.MustLookup(contract.StageEvalField + ".handled").DefaultEnum,
		Score:   report.MustLookup(contract.StageEvalField + ".score").DefaultNumber,
		Note:    notAssessed,
	}
}

// handledCount returns how many stages were fully handled
func handledCount(evals []types.StageEvaluation) int {
	n := 0
	for _, e := range evals {
		if e.Handled == "yes" {
			n++
		}
	}
	return n
}

// weakestStage returns the lowest scoring stage, preferring the earliest on ties
func weakestStage(evals []types.StageEvaluation) (types.StageEvaluation, bool) {
	if len(evals) == 0 {
		return types.StageEvaluation{}, false
	}
	weakest := evals[0]
	for _, e := range evals[1:] {
		if e.Score < weakest.Score {
			weakest = e
		}
	}
	return weakest, true
}
