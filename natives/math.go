package natives

import (
	"math"

	"github.com/drses/frozen-realms-shim/graph"
)

// MathBundle returns the deterministic Math functions. Math.random is a
// host extension and deliberately absent.
func MathBundle() Bundle {
	unary := func(name string, f func(float64) float64) Native {
		return fn("Math."+name, 1, func(c graph.Call) (graph.Value, error) {
			x, err := argNumber(c, 0)
			if err != nil {
				return nil, err
			}
			return f(x), nil
		})
	}
	binary := func(name string, f func(float64, float64) float64) Native {
		return fn("Math."+name, 2, func(c graph.Call) (graph.Value, error) {
			x, err := argNumber(c, 0)
			if err != nil {
				return nil, err
			}
			y, err := argNumber(c, 1)
			if err != nil {
				return nil, err
			}
			return f(x, y), nil
		})
	}
	fold := func(name string, start float64, pick func(a, b float64) float64) Native {
		return fn("Math."+name, 2, func(c graph.Call) (graph.Value, error) {
			acc := start
			for i := range c.Args {
				x, err := argNumber(c, i)
				if err != nil {
					return nil, err
				}
				if math.IsNaN(x) {
					return nan(), nil
				}
				acc = pick(acc, x)
			}
			return acc, nil
		})
	}

	return NewBundle(
		unary("abs", math.Abs),
		unary("ceil", math.Ceil),
		unary("floor", math.Floor),
		unary("round", func(x float64) float64 { return math.Floor(x + 0.5) }),
		unary("sqrt", math.Sqrt),
		unary("exp", math.Exp),
		unary("log", math.Log),
		unary("sin", math.Sin),
		unary("cos", math.Cos),
		unary("tan", math.Tan),
		unary("atan", math.Atan),
		binary("atan2", math.Atan2),
		binary("pow", math.Pow),
		fold("max", math.Inf(-1), math.Max),
		fold("min", math.Inf(1), math.Min),
	)
}
