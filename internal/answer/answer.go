package answer

import (
	"context"

	"notice/internal/model"
)

// Evaluator turns a classified computation intent into an instant
// answer. Search intents return nil.
type Evaluator struct {
	Rates RateSource
}

func NewEvaluator(rates RateSource) *Evaluator {
	return &Evaluator{Rates: rates}
}

func (e *Evaluator) Evaluate(ctx context.Context, intent Intent) (*model.InstantAnswer, error) {
	switch intent.Kind {
	case KindTimer:
		return &model.InstantAnswer{Kind: KindTimer, Value: EvalTimer(intent.Expr)}, nil
	case KindMath:
		value, err := EvalMath(intent.Expr)
		if err != nil {
			return nil, err
		}
		return &model.InstantAnswer{Kind: KindMath, Value: value}, nil
	case KindUnit:
		value, err := ConvertUnits(intent.Expr)
		if err != nil {
			return nil, err
		}
		return &model.InstantAnswer{Kind: KindUnit, Value: value}, nil
	case KindCurrency:
		value, err := ConvertCurrency(ctx, e.Rates, intent.Expr)
		if err != nil {
			return nil, err
		}
		return &model.InstantAnswer{Kind: KindCurrency, Value: value}, nil
	default:
		return nil, nil
	}
}
